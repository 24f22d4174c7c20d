package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
	"github.com/alexchilton/calibre-janitor/pkg/dedupe"
	"github.com/alexchilton/calibre-janitor/pkg/enrich"
)

func cmdDedupe(args []string) {
	fs := flag.NewFlagSet("dedupe", flag.ExitOnError)
	findOnly := fs.Bool("find-only", false, "only report duplicates, delete nothing")
	interactive := fs.Bool("interactive", false, "confirm each duplicate group")
	autoDelete := fs.Bool("auto-delete", false, "delete duplicates automatically by score")
	dryRun := fs.Bool("dry-run", false, "show what would be deleted without deleting")
	priorityFlag := fs.String("format-priority", strings.Join(dedupe.DefaultFormatPriority, ","),
		"format preference order, least to most preferred")
	libraryPath := fs.String("library-path", defaultLibraryPath(), "path to the Calibre library")
	useSQL := fs.Bool("sql", false, "read records from metadata.db instead of calibredb")
	logPath := fs.String("log", dedupe.DefaultRecoveryLogPath(), "recovery log path")
	fs.Parse(args)

	logger := newLogger()
	ctx := context.Background()

	policy := dedupe.PolicyFindOnly
	switch {
	case *dryRun:
		policy = dedupe.PolicyDryRun
	case *interactive:
		policy = dedupe.PolicyInteractive
	case *autoDelete:
		policy = dedupe.PolicyAuto
	case *findOnly:
		policy = dedupe.PolicyFindOnly
	}
	priority := dedupe.ParseFormatPriority(*priorityFlag)

	fmt.Printf("Library: %s\n", *libraryPath)
	fmt.Printf("Format priority: %s (most preferred last)\n", strings.Join(priority, " > "))
	fmt.Printf("Mode: %s\n\n", policy)

	client := catalog.NewClient(*libraryPath)

	var source catalog.Source = client
	if *useSQL {
		sqlSrc, err := catalog.OpenSQLSource(*libraryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer sqlSrc.Close()
		source = sqlSrc
	}

	records, err := source.ListRecords(ctx, catalog.ListOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	results := dedupe.FindAll(records)
	groups := results.Groups()
	if len(groups) == 0 {
		fmt.Println("No duplicates found.")
		return
	}
	fmt.Printf("Found %d duplicate group(s)\n", len(groups))

	printGroups(groups, priority)

	resolver := &dedupe.Resolver{
		Policy:   policy,
		Priority: priority,
		Logger:   logger,
	}
	if policy == dedupe.PolicyInteractive || policy == dedupe.PolicyAuto {
		resolver.Deleter = client
		log, err := dedupe.OpenRecoveryLog(*logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Close()
		resolver.Log = log
	}
	if policy == dedupe.PolicyInteractive {
		resolver.Prompter = &stdinPrompter{in: bufio.NewReader(os.Stdin)}
	}

	summary, _, err := resolver.Resolve(ctx, groups)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("Groups:  %d\n", summary.Groups)
	switch policy {
	case dedupe.PolicyFindOnly, dedupe.PolicyDryRun:
		fmt.Printf("Would delete: %d book(s)\n", summary.WouldDelete)
	default:
		fmt.Printf("Deleted: %d\nFailed:  %d\nSkipped: %d\n",
			summary.Deleted, summary.Failed, summary.Skipped)
		if summary.Deleted > 0 {
			fmt.Printf("\nRecovery log: %s\n", *logPath)
		}
	}
}

// printGroups shows each group with its keeper recommendation and scores.
func printGroups(groups [][]catalog.Record, priority []string) {
	for i, group := range groups {
		d := dedupe.SelectKeeper(group, priority)
		fmt.Printf("\nDuplicate group %d:\n%s\n", i+1, strings.Repeat("-", 60))
		for _, b := range group {
			status := "DELETE"
			if b.ID == d.KeeperID {
				status = "KEEP  "
			}
			fmt.Printf("  [%s] ID %-5d %s by %s\n", status, b.ID, b.Title, b.Authors)
			fmt.Printf("           Formats: %s | Added: %s | Score: %d\n",
				strings.Join(b.Formats, ", "), b.Timestamp, d.Scores[b.ID])
		}
	}
}

// stdinPrompter asks for confirmation on the terminal:
// accept the recommendation, reject it and name a keeper, or skip the group.
type stdinPrompter struct {
	in *bufio.Reader
}

func (p *stdinPrompter) Confirm(group []catalog.Record, d dedupe.Decision) (dedupe.Decision, bool, error) {
	fmt.Printf("\nRecommended: keep book %d, delete %d duplicate(s)\n", d.KeeperID, len(d.DeleteIDs))
	fmt.Print("Proceed? [Y/n/s(kip)]: ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		return d, false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return d, true, nil
	case "s", "skip":
		return d, false, nil
	}

	fmt.Print("Enter book ID to keep (or 'skip'): ")
	line, err = p.in.ReadString('\n')
	if err != nil {
		return d, false, err
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "skip") {
		return d, false, nil
	}
	id, err := strconv.Atoi(line)
	if err != nil {
		fmt.Println("Invalid input, skipping group")
		return d, false, nil
	}
	return dedupe.OverrideKeeper(group, id, d.Scores), true, nil
}

func cmdEnrich(args []string) {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	libraryPath := fs.String("library-path", defaultLibraryPath(), "path to the Calibre library")
	limit := fs.Int("limit", 0, "maximum number of lookups to attempt (0 = all)")
	fs.Parse(args)

	logger := newLogger()
	client := catalog.NewClient(*libraryPath)

	results, err := enrich.NewClient().EnrichBatch(context.Background(), client, *limit, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No books are missing a description.")
		return
	}

	fetched, failed := 0, 0
	for _, res := range results {
		if res.Err != "" {
			failed++
			fmt.Printf("  [FAIL] ID %-5d %s: %s\n", res.ID, res.Title, res.Err)
			continue
		}
		fetched++
		fmt.Printf("  [OK]   ID %-5d %s (%d fields)\n", res.ID, res.Title, len(res.Metadata))
	}
	fmt.Printf("\nLooked up: %d\nFetched: %d\nFailed: %d\n", len(results), fetched, failed)
}

func cmdRepairISBNs(args []string) {
	fs := flag.NewFlagSet("repair-isbns", flag.ExitOnError)
	libraryPath := fs.String("library-path", defaultLibraryPath(), "path to the Calibre library")
	dryRun := fs.Bool("dry-run", false, "report candidates without writing")
	fs.Parse(args)

	logger := newLogger()
	client := catalog.NewClient(*libraryPath)

	sum, err := enrich.RepairISBNs(context.Background(), client, client, *dryRun, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Scanned: %d\nMissing ISBN: %d\nRepaired: %d\nFailed: %d\n",
		sum.Scanned, sum.Missing, sum.Repaired, sum.Failed)
}
