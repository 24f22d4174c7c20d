package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexchilton/calibre-janitor/pkg/api"
	"github.com/alexchilton/calibre-janitor/pkg/dedupe"
	"github.com/alexchilton/calibre-janitor/pkg/enrich"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"
)

type config struct {
	Addr            string `yaml:"addr"`
	LibraryPath     string `yaml:"library_path"`
	RecoveryLogPath string `yaml:"recovery_log_path"`
	FormatPriority  string `yaml:"format_priority"`
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// .env overlay for CALIBRE_LIBRARY_PATH etc.; absent file is fine.
	_ = godotenv.Load()

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "dedupe":
		cmdDedupe(os.Args[2:])
	case "repair-isbns":
		cmdRepairISBNs(os.Args[2:])
	case "enrich":
		cmdEnrich(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: janitor <command>

Commands:
  serve         Start the HTTP API and MCP tool server
  dedupe        Find and resolve duplicate books
  repair-isbns  Extract ISBNs from descriptions and write them back
  enrich        Fetch missing metadata from online sources
`)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	stdio := fs.Bool("stdio", false, "serve MCP over stdio instead of HTTP (for desktop clients)")
	mcpAddr := fs.String("mcp-addr", ":8765", "listen address for the streamable-HTTP MCP transport")
	fs.Parse(args)

	logger := newLogger()
	cfg := loadConfig(*cfgPath, logger)

	svc := api.NewService(cfg.LibraryPath, logger)
	if cfg.RecoveryLogPath != "" {
		svc.RecoveryLogPath = cfg.RecoveryLogPath
	}
	ec := enrich.NewClient()
	svc.Fetcher = ec
	svc.Enricher = ec

	mcpSrv := server.NewMCPServer("calibre-janitor", "1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	api.RegisterMCPTools(mcpSrv, svc)

	if *stdio {
		logger.Info("serving MCP over stdio", "library", cfg.LibraryPath)
		if err := server.ServeStdio(mcpSrv); err != nil {
			logger.Error("stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewRouter(svc),
	}
	go func() {
		logger.Info("janitor API listening", "addr", cfg.Addr, "library", cfg.LibraryPath)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	mcpHTTP := server.NewStreamableHTTPServer(mcpSrv)
	go func() {
		logger.Info("MCP listening", "addr", *mcpAddr, "path", "/mcp")
		if err := mcpHTTP.Start(*mcpAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	httpSrv.Shutdown(context.Background())
	mcpHTTP.Shutdown(context.Background())
}

func loadConfig(path string, logger *slog.Logger) config {
	cfg := config{
		Addr:        ":8420",
		LibraryPath: defaultLibraryPath(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return applyEnv(cfg)
		}
		logger.Error("read config", "error", err)
		os.Exit(1)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("parse config", "error", err)
		os.Exit(1)
	}
	return applyEnv(cfg)
}

// applyEnv lets environment variables override file values, so the same
// binary works under a desktop MCP client that can only set env.
func applyEnv(cfg config) config {
	if v := os.Getenv("CALIBRE_LIBRARY_PATH"); v != "" {
		cfg.LibraryPath = v
	}
	if v := os.Getenv("JANITOR_ADDR"); v != "" {
		cfg.Addr = v
	}
	if cfg.RecoveryLogPath == "" {
		cfg.RecoveryLogPath = dedupe.DefaultRecoveryLogPath()
	}
	return cfg
}

func defaultLibraryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Calibre Library"
	}
	return filepath.Join(home, "Calibre Library")
}
