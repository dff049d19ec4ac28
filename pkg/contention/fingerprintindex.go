package contention

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
)

// FingerprintIndex records which transcript ids share an intent
// fingerprint. Implementations range from in-process (a single-shot
// CLI scan) to shared external stores (a fleet of scanners watching
// the same intent space for cross-process double commits).
type FingerprintIndex interface {
	Record(ctx context.Context, fingerprint, transcriptID string) error
	Members(ctx context.Context, fingerprint string) ([]string, error)
	Fingerprints(ctx context.Context) ([]string, error)
}

// MemoryIndex is the default, single-process FingerprintIndex.
type MemoryIndex struct {
	mu     sync.Mutex
	groups map[string]map[string]bool
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{groups: make(map[string]map[string]bool)}
}

func (m *MemoryIndex) Record(_ context.Context, fingerprint, transcriptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.groups[fingerprint] == nil {
		m.groups[fingerprint] = make(map[string]bool)
	}
	m.groups[fingerprint][transcriptID] = true
	return nil
}

func (m *MemoryIndex) Members(_ context.Context, fingerprint string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.groups[fingerprint]))
	for id := range m.groups[fingerprint] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryIndex) Fingerprints(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.groups))
	for fp := range m.groups {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out, nil
}

// RedisIndex backs a FingerprintIndex with a Redis set per
// fingerprint, so a fleet of scanners observing disjoint slices of a
// transcript store can still detect a cross-process double commit.
type RedisIndex struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client, keyPrefix: "pactaudit:contention:"}
}

func (r *RedisIndex) key(fingerprint string) string {
	return r.keyPrefix + fingerprint
}

func (r *RedisIndex) Record(ctx context.Context, fingerprint, transcriptID string) error {
	if err := r.client.SAdd(ctx, r.key(fingerprint), transcriptID).Err(); err != nil {
		return fmt.Errorf("contention: redis sadd: %w", err)
	}
	return r.client.SAdd(ctx, r.keyPrefix+"index", fingerprint).Err()
}

func (r *RedisIndex) Members(ctx context.Context, fingerprint string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.key(fingerprint)).Result()
	if err != nil {
		return nil, fmt.Errorf("contention: redis smembers: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

func (r *RedisIndex) Fingerprints(ctx context.Context) ([]string, error) {
	fps, err := r.client.SMembers(ctx, r.keyPrefix+"index").Result()
	if err != nil {
		return nil, fmt.Errorf("contention: redis smembers index: %w", err)
	}
	sort.Strings(fps)
	return fps, nil
}

// SQLIndex persists fingerprint membership through database/sql, for
// deployments that already run the evidence bundle's SQL-backed
// registry and want one durable store rather than two. dialect picks
// the placeholder style: sqlite/mysql use "?", Postgres uses "$1".
type SQLIndex struct {
	db      *sql.DB
	dialect Dialect
}

// Dialect distinguishes the two placeholder conventions this package
// needs to support across the drivers in use elsewhere in the module
// (modernc.org/sqlite for the CLI default, lib/pq for a shared Postgres
// deployment).
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func NewSQLIndex(db *sql.DB, dialect Dialect) *SQLIndex {
	return &SQLIndex{db: db, dialect: dialect}
}

const sqlIndexSchema = `
CREATE TABLE IF NOT EXISTS contention_members (
	fingerprint TEXT NOT NULL,
	transcript_id TEXT NOT NULL,
	PRIMARY KEY (fingerprint, transcript_id)
);
`

// Init creates the backing table if it does not already exist.
func (s *SQLIndex) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqlIndexSchema)
	return err
}

func (s *SQLIndex) insertQuery() string {
	if s.dialect == DialectPostgres {
		return `INSERT INTO contention_members (fingerprint, transcript_id) VALUES ($1, $2)
		        ON CONFLICT (fingerprint, transcript_id) DO NOTHING`
	}
	return `INSERT INTO contention_members (fingerprint, transcript_id) VALUES (?, ?)
	        ON CONFLICT (fingerprint, transcript_id) DO NOTHING`
}

func (s *SQLIndex) membersQuery() string {
	if s.dialect == DialectPostgres {
		return `SELECT transcript_id FROM contention_members WHERE fingerprint = $1 ORDER BY transcript_id`
	}
	return `SELECT transcript_id FROM contention_members WHERE fingerprint = ? ORDER BY transcript_id`
}

func (s *SQLIndex) Record(ctx context.Context, fingerprint, transcriptID string) error {
	_, err := s.db.ExecContext(ctx, s.insertQuery(), fingerprint, transcriptID)
	if err != nil {
		return fmt.Errorf("contention: insert member: %w", err)
	}
	return nil
}

func (s *SQLIndex) Members(ctx context.Context, fingerprint string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.membersQuery(), fingerprint)
	if err != nil {
		return nil, fmt.Errorf("contention: select members: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("contention: scan member: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLIndex) Fingerprints(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT fingerprint FROM contention_members ORDER BY fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("contention: select fingerprints: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("contention: scan fingerprint: %w", err)
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}
