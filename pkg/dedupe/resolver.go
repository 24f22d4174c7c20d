package dedupe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
)

// Policy decides what happens to a group's deletion candidates.
type Policy string

const (
	// PolicyFindOnly reports groups and decisions, deletes nothing.
	PolicyFindOnly Policy = "find-only"
	// PolicyDryRun reports what would be deleted; no delete call, no log entry.
	PolicyDryRun Policy = "dry-run"
	// PolicyInteractive asks the Prompter to confirm, skip, or override the
	// keeper for each group.
	PolicyInteractive Policy = "interactive"
	// PolicyAuto confirms every group without prompting.
	PolicyAuto Policy = "auto"
)

// ParsePolicy validates a policy name from a CLI flag or tool argument.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyFindOnly, PolicyDryRun, PolicyInteractive, PolicyAuto:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown policy %q (want find-only, dry-run, interactive, or auto)", s)
}

// Deleter issues the external per-record delete. catalog.Client implements it.
type Deleter interface {
	DeleteRecord(ctx context.Context, id int, permanent bool) error
}

// Prompter handles interactive confirmation for one group. It returns the
// (possibly overridden) decision and whether to proceed; proceed=false skips
// the group.
type Prompter interface {
	Confirm(group []catalog.Record, d Decision) (Decision, bool, error)
}

// Summary aggregates the outcome counts of a resolve run.
type Summary struct {
	Groups      int `json:"groups"`
	Deleted     int `json:"deleted"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	WouldDelete int `json:"would_delete"`
}

// Resolver walks duplicate groups, picks a keeper per group, and applies the
// configured policy to the remaining candidates. Deletions happen one id at a
// time with independent outcomes: one failure never blocks the rest of the
// group or later groups. A recovery-log entry is appended only after a
// confirmed successful delete.
type Resolver struct {
	Deleter  Deleter
	Log      *RecoveryLog
	Prompter Prompter
	Policy   Policy
	Priority []string
	Logger   *slog.Logger
}

// Resolve processes every group and returns the run summary plus the final
// per-group decisions in group order.
func (rs *Resolver) Resolve(ctx context.Context, groups [][]catalog.Record) (*Summary, []Decision, error) {
	logger := rs.Logger
	if logger == nil {
		logger = slog.Default()
	}
	priority := rs.Priority
	if len(priority) == 0 {
		priority = DefaultFormatPriority
	}
	if rs.Policy == PolicyInteractive && rs.Prompter == nil {
		return nil, nil, fmt.Errorf("interactive policy requires a prompter")
	}
	mutating := rs.Policy == PolicyInteractive || rs.Policy == PolicyAuto
	if mutating && rs.Deleter == nil {
		return nil, nil, fmt.Errorf("policy %s requires a deleter", rs.Policy)
	}

	summary := &Summary{Groups: len(groups)}
	var decisions []Decision

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		byID := make(map[int]catalog.Record, len(group))
		for _, r := range group {
			byID[r.ID] = r
		}

		d := SelectKeeper(group, priority)

		switch rs.Policy {
		case PolicyFindOnly:
			summary.WouldDelete += len(d.DeleteIDs)
			decisions = append(decisions, d)
			continue
		case PolicyDryRun:
			for _, id := range d.DeleteIDs {
				logger.Info("would delete", "id", id, "title", byID[id].Title)
			}
			summary.WouldDelete += len(d.DeleteIDs)
			decisions = append(decisions, d)
			continue
		case PolicyInteractive:
			confirmed, proceed, err := rs.Prompter.Confirm(group, d)
			if err != nil {
				return nil, nil, fmt.Errorf("prompt: %w", err)
			}
			if !proceed {
				summary.Skipped += len(d.DeleteIDs)
				continue
			}
			if _, ok := byID[confirmed.KeeperID]; !ok {
				logger.Warn("keeper override not in group, skipping", "id", confirmed.KeeperID)
				summary.Skipped += len(d.DeleteIDs)
				continue
			}
			d = confirmed
		}

		decisions = append(decisions, d)

		for _, id := range d.DeleteIDs {
			rec := byID[id]
			if err := rs.Deleter.DeleteRecord(ctx, id, false); err != nil {
				logger.Error("delete failed", "id", id, "error", err)
				summary.Failed++
				continue
			}
			summary.Deleted++
			logger.Info("deleted", "id", id, "title", rec.Title, "keeper", d.KeeperID)
			if rs.Log != nil {
				if err := rs.Log.Append(rec); err != nil {
					logger.Error("recovery log write failed", "id", id, "error", err)
				}
			}
		}
	}

	return summary, decisions, nil
}

// OverrideKeeper rebuilds a decision around a caller-chosen keeper. Used by
// interactive prompters when the recommendation is rejected.
func OverrideKeeper(group []catalog.Record, keeperID int, scores map[int]int) Decision {
	d := Decision{KeeperID: keeperID, Scores: scores}
	for _, r := range group {
		if r.ID != keeperID {
			d.DeleteIDs = append(d.DeleteIDs, r.ID)
		}
	}
	return d
}
