package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/pactaudit/pactaudit/pkg/config"
	"github.com/pactaudit/pactaudit/pkg/contention"
	"github.com/pactaudit/pactaudit/pkg/kernel"
)

func runContentionScanCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("contention-scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("transcripts-dir", "", "directory of transcript JSON files to scan (required)")
	out := fs.String("out", "", "write report JSON to this file instead of stdout")
	sqliteFile := fs.String("sqlite-file", "pactaudit-contention.db", "local index file used when no --database-url/--redis is configured")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *dir == "" {
		fmt.Fprintln(stderr, "usage: pactaudit contention-scan --transcripts-dir <dir> [--out file]")
		return 1
	}

	paths, err := transcriptFilesInDir(*dir)
	if err != nil {
		return fail(stderr, "%v", err)
	}
	sort.Strings(paths)

	var inputs []contention.Input
	for _, p := range paths {
		t, err := readTranscript(p)
		if err != nil {
			return fail(stderr, "%v", err)
		}
		scope, _ := t.Metadata["scope"].(map[string]interface{})
		constraints, _ := t.Metadata["constraints"].(map[string]interface{})
		inputs = append(inputs, contention.Input{Transcript: t, Scope: scope, Constraints: constraints})
	}

	ctx := context.Background()
	idx, closeIdx, err := contentionIndexFromConfig(ctx, config.Load(), *sqliteFile)
	if err != nil {
		return fail(stderr, "contention index: %v", err)
	}
	defer closeIdx()

	report, err := contention.Scan(ctx, idx, inputs)
	if err != nil {
		return fail(stderr, "contention scan: %v", err)
	}

	if *out != "" {
		if err := writeJSONFile(*out, report); err != nil {
			return fail(stderr, "write %s: %v", *out, err)
		}
		return 0
	}
	if err := writeJSONStdout(stdout, report); err != nil {
		return fail(stderr, "write output: %v", err)
	}
	return 0
}

// contentionIndexFromConfig picks the fingerprint index backing a
// scan: Redis when REDIS_ADDR is set, shared Postgres when
// DATABASE_URL is set, otherwise a local sqlite file so repeat scans
// on one machine still detect double commits across runs. The
// returned closer releases whatever backing connection was opened;
// it is always safe to call.
func contentionIndexFromConfig(ctx context.Context, cfg *config.Config, sqliteFile string) (contention.FingerprintIndex, func(), error) {
	switch {
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		idx := contention.NewRedisIndex(client)
		guarded := contention.NewGuardedIndex(idx, kernel.NewMemoryLimiterStore(), kernel.BackpressurePolicy{RPM: 6000, Burst: 50})
		return guarded, func() { client.Close() }, nil
	case cfg.DatabaseURL != "":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open database: %w", err)
		}
		idx := contention.NewSQLIndex(db, contention.DialectPostgres)
		if err := idx.Init(ctx); err != nil {
			db.Close()
			return nil, func() {}, fmt.Errorf("init schema: %w", err)
		}
		return idx, func() { db.Close() }, nil
	default:
		db, err := sql.Open("sqlite", sqliteFile)
		if err != nil {
			return nil, func() {}, fmt.Errorf("open %s: %w", sqliteFile, err)
		}
		idx := contention.NewSQLIndex(db, contention.DialectSQLite)
		if err := idx.Init(ctx); err != nil {
			db.Close()
			return nil, func() {}, fmt.Errorf("init schema: %w", err)
		}
		return idx, func() { db.Close() }, nil
	}
}

// transcriptFilesInDir lists every *.json file directly under dir,
// shared by contention-scan and passport-recompute.
func transcriptFilesInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
