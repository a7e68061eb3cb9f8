// Package store persists clipboard history in a local SQLite database.
//
// The daemon writes and the popup reads the same file, so the database runs
// in WAL mode and each process watches PRAGMA data_version to notice the
// other's commits. When a seal token is configured, record text and the
// popup session are encrypted at rest and deduplicated by keyed digest.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"go.klb.dev/nozzle/internal/crypto"
	"go.klb.dev/nozzle/internal/history"
)

// ErrSealed is returned for sealed rows when no seal token is configured.
var ErrSealed = errors.New("history is sealed; set seal-token")

const (
	metaSealCheck = "seal_check"
	metaSession   = "session"
	sealCheck     = "nozzle"
)

// Options configures a store.
type Options struct {
	// Limit caps unpinned records; the oldest are evicted. 0 = unbounded.
	Limit int

	// SealToken enables encryption at rest when non-empty.
	SealToken string

	// Now overrides time.Now for record timestamps.
	Now func() time.Time
}

// SQLite is a history.Store backed by a SQLite file.
type SQLite struct {
	history.Notifier

	db        *sql.DB
	path      string
	limit     int
	seal      *crypto.Key
	digestKey *crypto.Key
	now       func() time.Time
}

var (
	_ history.Store        = (*SQLite)(nil)
	_ history.SessionStore = (*SQLite)(nil)
)

// Open opens or creates the database at path and applies migrations.
func Open(ctx context.Context, path string, opts Options) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &SQLite{db: db, path: path, limit: opts.Limit, now: opts.Now}
	if s.now == nil {
		s.now = time.Now
	}

	if err := s.init(ctx, opts.SealToken); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// connPragmas run on every pooled connection as the driver opens it.
// busy_timeout and synchronous are per-connection settings.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	q := make([]string, len(connPragmas))
	for i, p := range connPragmas {
		q[i] = "_pragma=" + p
	}
	return path + "?" + strings.Join(q, "&")
}

func (s *SQLite) init(ctx context.Context, token string) error {
	if err := migrate(ctx, s.db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if token == "" {
		return nil
	}

	var err error
	if s.seal, err = crypto.DeriveKey(token); err != nil {
		return err
	}
	if s.digestKey, err = crypto.DeriveDigestKey(token); err != nil {
		return err
	}
	return s.checkSeal(ctx)
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			digest TEXT NOT NULL UNIQUE,
			body BLOB NOT NULL,
			sealed INTEGER NOT NULL,
			pinned INTEGER NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_order ON records(pinned, created_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// checkSeal verifies the token against the database, stamping it on first use.
func (s *SQLite) checkSeal(ctx context.Context) error {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, metaSealCheck).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		ct, err := crypto.Seal([]byte(sealCheck), s.seal)
		if err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx, `INSERT INTO meta(k, v) VALUES(?, ?)`, metaSealCheck, ct)
		return err
	case err != nil:
		return err
	}
	if _, err := crypto.Open(v, s.seal); err != nil {
		return fmt.Errorf("seal token does not match %s: %w", s.path, err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Sealed reports whether encryption at rest is on.
func (s *SQLite) Sealed() bool { return s.seal != nil }

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) List(ctx context.Context) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body, sealed, pinned, created_at_unixms
		FROM records
		ORDER BY pinned DESC, created_at_unixms DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		var (
			id      string
			body    []byte
			sealed  bool
			pinned  bool
			created int64
		)
		if err := rows.Scan(&id, &body, &sealed, &pinned, &created); err != nil {
			return nil, err
		}
		text, err := s.unseal(body, sealed)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		out = append(out, history.Record{
			ID:        history.ID(id),
			Text:      text,
			Pinned:    pinned,
			CreatedAt: time.UnixMilli(created),
		})
	}
	return out, rows.Err()
}

func (s *SQLite) Add(ctx context.Context, text string) (history.Record, error) {
	if strings.TrimSpace(text) == "" {
		return history.Record{}, nil
	}
	body, err := s.sealText(text)
	if err != nil {
		return history.Record{}, err
	}
	digest := crypto.Digest(text, s.digestKey)
	now := s.now()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return history.Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	rec := history.Record{Text: text, CreatedAt: time.UnixMilli(now.UnixMilli())}
	var id string
	err = tx.QueryRowContext(ctx, `SELECT id, pinned FROM records WHERE digest = ?`, digest).Scan(&id, &rec.Pinned)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.ID = history.ID(uuid.NewString())
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records(id, digest, body, sealed, pinned, created_at_unixms) VALUES(?, ?, ?, ?, 0, ?)`,
			string(rec.ID), digest, body, s.seal != nil, now.UnixMilli()); err != nil {
			return history.Record{}, err
		}
	case err != nil:
		return history.Record{}, err
	default:
		rec.ID = history.ID(id)
		if _, err := tx.ExecContext(ctx,
			`UPDATE records SET body = ?, sealed = ?, created_at_unixms = ? WHERE id = ?`,
			body, s.seal != nil, now.UnixMilli(), id); err != nil {
			return history.Record{}, err
		}
	}

	if s.limit > 0 {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM records
			WHERE pinned = 0 AND id NOT IN (
				SELECT id FROM records WHERE pinned = 0
				ORDER BY created_at_unixms DESC, rowid DESC
				LIMIT ?
			)`, s.limit)
		if err != nil {
			return history.Record{}, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			slog.Debug("evicted history records", "count", n, "limit", s.limit)
		}
	}

	if err := tx.Commit(); err != nil {
		return history.Record{}, err
	}
	s.Notify()
	return rec, nil
}

func (s *SQLite) Delete(ctx context.Context, id history.ID) error {
	return s.execOne(ctx, `DELETE FROM records WHERE id = ?`, string(id))
}

func (s *SQLite) SetPinned(ctx context.Context, id history.ID, pinned bool) error {
	return s.execOne(ctx, `UPDATE records SET pinned = ? WHERE id = ?`, pinned, string(id))
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE pinned = 0`); err != nil {
		return err
	}
	s.Notify()
	return nil
}

// execOne runs a statement that must touch exactly one record.
func (s *SQLite) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return history.ErrNotFound
	}
	s.Notify()
	return nil
}

type sessionRow struct {
	Prompt  string   `json:"prompt"`
	Checked []string `json:"checked"`
}

func (s *SQLite) LoadSession(ctx context.Context) (history.Session, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, metaSession).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Session{}, nil
	}
	if err != nil {
		return history.Session{}, err
	}
	var row sessionRow
	raw, err := s.unseal(v, s.seal != nil)
	if err == nil {
		err = json.Unmarshal([]byte(raw), &row)
	}
	if err != nil {
		// Sessions saved before sealing was enabled do not decode.
		slog.Debug("discarding unreadable session", "err", err)
		return history.Session{}, nil
	}
	sess := history.Session{Prompt: row.Prompt}
	for _, id := range row.Checked {
		sess.Checked = append(sess.Checked, history.ID(id))
	}
	return sess, nil
}

func (s *SQLite) SaveSession(ctx context.Context, sess history.Session) error {
	row := sessionRow{Prompt: sess.Prompt, Checked: make([]string, len(sess.Checked))}
	for i, id := range sess.Checked {
		row.Checked[i] = string(id)
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	v, err := s.sealText(string(raw))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES(?, ?)`, metaSession, v)
	return err
}

// Watch polls the database for commits made by other processes and
// notifies subscribers. It blocks until ctx is done.
func (s *SQLite) Watch(ctx context.Context, interval time.Duration) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	version := func() (int64, error) {
		var v int64
		err := conn.QueryRowContext(ctx, `PRAGMA data_version;`).Scan(&v)
		return v, err
	}
	last, err := version()
	if err != nil {
		return fmt.Errorf("data_version: %w", err)
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			v, err := version()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("history watch failed", "err", err)
				continue
			}
			if v != last {
				last = v
				slog.Debug("history changed on disk")
				s.Notify()
			}
		}
	}
}

func (s *SQLite) sealText(text string) ([]byte, error) {
	if s.seal == nil {
		return []byte(text), nil
	}
	return crypto.Seal([]byte(text), s.seal)
}

func (s *SQLite) unseal(body []byte, sealed bool) (string, error) {
	if !sealed {
		return string(body), nil
	}
	if s.seal == nil {
		return "", ErrSealed
	}
	pt, err := crypto.Open(body, s.seal)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
