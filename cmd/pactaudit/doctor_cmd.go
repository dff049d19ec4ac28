package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/pactaudit/pactaudit/pkg/config"
)

// runDoctorCmd sanity-checks the environment pactaudit will run
// against: the optional Postgres registry, the optional Redis
// contention index, the blob store backend setting (and bucket, for s3
// or gcs), and the constitution registry file. It never modifies
// anything.
func runDoctorCmd(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	ok := true

	fmt.Fprintf(stdout, "log level: %s\n", cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		fmt.Fprintln(stdout, "database: not configured, will use local defaults")
	} else if err := checkDatabase(cfg.DatabaseURL); err != nil {
		fmt.Fprintf(stdout, "database: FAIL (%v)\n", err)
		ok = false
	} else {
		fmt.Fprintln(stdout, "database: OK")
	}

	if cfg.RedisAddr == "" {
		fmt.Fprintln(stdout, "redis: not configured, contention scans will use the SQL index (DATABASE_URL or a local sqlite file)")
	} else if err := checkRedis(cfg.RedisAddr); err != nil {
		fmt.Fprintf(stdout, "redis: FAIL (%v)\n", err)
		ok = false
	} else {
		fmt.Fprintln(stdout, "redis: OK")
	}

	switch cfg.BlobStoreBackend {
	case "fs":
		fmt.Fprintln(stdout, "blob store: fs backend, no connectivity check needed")
	case "s3", "gcs":
		if cfg.BlobStoreBucket == "" {
			fmt.Fprintf(stdout, "blob store: FAIL (%s backend configured without a bucket)\n", cfg.BlobStoreBackend)
			ok = false
		} else {
			fmt.Fprintf(stdout, "blob store: %s backend targeting bucket %q, credentials assumed ambient\n", cfg.BlobStoreBackend, cfg.BlobStoreBucket)
		}
	default:
		fmt.Fprintf(stdout, "blob store: FAIL (unknown backend %q)\n", cfg.BlobStoreBackend)
		ok = false
	}

	reg, err := config.LoadConstitutionRegistry(cfg.ConstitutionRegistryPath)
	if err != nil {
		fmt.Fprintf(stdout, "constitution registry: FAIL (%v)\n", err)
		ok = false
	} else {
		fmt.Fprintf(stdout, "constitution registry: OK (%d accepted hashes)\n", len(reg.Hashes()))
	}

	if ok {
		return 0
	}
	return 1
}

func checkDatabase(databaseURL string) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func checkRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}
