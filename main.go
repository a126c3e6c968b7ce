package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/ovsenka/mdvault/batch"
	"github.com/ovsenka/mdvault/vault"
)

var version = "dev"

func main() {
	vaultPath := flag.String("vault", "", "Path to the vault root directory (required)")
	backupDir := flag.String("backup-dir", "", "Batch backup directory (default: <vault>/.batch_backups)")
	readOnly := flag.Bool("read-only", false, "Disable all write operations")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if *vaultPath == "" {
		fmt.Fprintln(os.Stderr, "mdvault: -vault is required")
		flag.Usage()
		os.Exit(1)
	}

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	v, err := vault.New(*vaultPath, vault.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mdvault: %v\n", err)
		os.Exit(1)
	}

	dir := *backupDir
	if dir == "" {
		dir = filepath.Join(v.Root(), ".batch_backups")
	}

	snaps := batch.NewStore(dir, v, batch.WithStoreLogger(logger))
	engine := batch.NewEngine(v, snaps, batch.WithEngineLogger(logger))

	srv := newServer(v, snaps, engine, *readOnly)

	if err := srv.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		fmt.Fprintf(os.Stderr, "mdvault: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds a text slog.Logger on stderr. Stdout carries the MCP
// stdio transport and must stay clean.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
