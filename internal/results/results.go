// Package results records verification runs in SQLite. Failed runs keep
// their re-encoded output, zstd compressed, for later inspection.
package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/blake3"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
)

var ErrNoRun = errors.New("no recorded run")

// Run is one verification of one beatmap file.
type Run struct {
	Name     string
	Hash     [32]byte
	Status   Status
	Error    string
	Duration time.Duration
	Size     int64
	// Output is the re-encoded text. It is only stored for failures.
	Output   []byte
	At       time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT    NOT NULL,
	hash        BLOB    NOT NULL,
	status      TEXT    NOT NULL,
	error       TEXT    NOT NULL DEFAULT '',
	duration_ns INTEGER NOT NULL,
	size        INTEGER NOT NULL,
	output      BLOB,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_hash ON runs (hash, status);
CREATE INDEX IF NOT EXISTS runs_name ON runs (name, id);
`

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		panic("results: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("results: zstd decoder initialization failed: " + err.Error())
	}
}

// Hash is the content hash runs are keyed by.
func Hash(data []byte) [32]byte {
	return blake3.Sum256(data)
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("results store: %w", err)
	}
	// one writer; verification goroutines queue on the pool
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("results store: creating schema: %w", err)
	}
	logger.Debug("opened results store", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, run Run) error {
	if run.At.IsZero() {
		run.At = time.Now()
	}
	var output []byte
	if run.Status == StatusFail && len(run.Output) > 0 {
		output = zstdEncoder.EncodeAll(run.Output, nil)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (name, hash, status, error, duration_ns, size, output, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Name, run.Hash[:], string(run.Status), run.Error, int64(run.Duration), run.Size, output, run.At.UnixNano())
	if err != nil {
		return fmt.Errorf("results store: record %s: %w", run.Name, err)
	}
	s.logger.Debug("recorded run", "name", run.Name, "status", run.Status, "compressed", len(output))
	return nil
}

// Seen reports whether content with this hash already passed.
func (s *Store) Seen(ctx context.Context, hash [32]byte) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE hash = ? AND status = ?`, hash[:], string(StatusPass)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("results store: %w", err)
	}
	return n > 0, nil
}

// Latest returns the most recent run of name, with its output decompressed.
func (s *Store) Latest(ctx context.Context, name string) (Run, error) {
	var (
		run      Run
		hash     []byte
		status   string
		duration int64
		output   []byte
		at       int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, hash, status, error, duration_ns, size, output, created_at
		 FROM runs WHERE name = ? ORDER BY id DESC LIMIT 1`, name).
		Scan(&run.Name, &hash, &status, &run.Error, &duration, &run.Size, &output, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNoRun, name)
	}
	if err != nil {
		return Run{}, fmt.Errorf("results store: %w", err)
	}
	copy(run.Hash[:], hash)
	run.Status = Status(status)
	run.Duration = time.Duration(duration)
	run.At = time.Unix(0, at)
	if len(output) > 0 {
		if run.Output, err = zstdDecoder.DecodeAll(output, nil); err != nil {
			return Run{}, fmt.Errorf("results store: zstd decompress: %w", err)
		}
	}
	return run, nil
}

// Counts returns the number of recorded runs per status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("results store: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("results store: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}
