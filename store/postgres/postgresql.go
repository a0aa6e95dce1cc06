package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quintans/go-trafficlight/trafficlight"
)

const (
	driverName        = "postgres"
	pgUniqueViolation = "23505"
)

type Entry struct {
	LightID   string    `db:"light_id"`
	Seq       int64     `db:"seq"`
	Phase     string    `db:"phase"`
	At        time.Time `db:"at"`
	ElapsedMs int64     `db:"elapsed_ms"`
}

func toEntry(t trafficlight.Transition) *Entry {
	return &Entry{
		LightID:   t.LightID,
		Seq:       t.Seq,
		Phase:     t.Phase.String(),
		At:        t.At.UTC(),
		ElapsedMs: t.Elapsed.Milliseconds(),
	}
}

func fromEntry(e *Entry) (trafficlight.Transition, error) {
	phase, err := trafficlight.ParsePhase(e.Phase)
	if err != nil {
		return trafficlight.Transition{}, fmt.Errorf("transition %d of '%s': %w", e.Seq, e.LightID, err)
	}
	return trafficlight.Transition{
		LightID: e.LightID,
		Seq:     e.Seq,
		Phase:   phase,
		At:      e.At.UTC(),
		Elapsed: time.Duration(e.ElapsedMs) * time.Millisecond,
	}, nil
}

type StoreOption func(*Store)

func TableOption(tableName string) StoreOption {
	return func(ps *Store) {
		ps.tableName = tableName
	}
}

// Store is a PostgreSQL transition journal.
type Store struct {
	db        *sqlx.DB
	tableName string
}

func New(db *sql.DB, options ...StoreOption) *Store {
	ps := &Store{
		db:        sqlx.NewDb(db, driverName),
		tableName: "transitions",
	}

	for _, o := range options {
		o(ps)
	}

	return ps
}

// Schema returns the DDL for the journal table.
func (s *Store) Schema() string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s(
		light_id VARCHAR (100) NOT NULL,
		seq BIGINT NOT NULL,
		phase VARCHAR (10) NOT NULL,
		at TIMESTAMP NOT NULL,
		elapsed_ms BIGINT NOT NULL,
		PRIMARY KEY (light_id, seq)
	);`, s.tableName)
}

// Migrate creates the journal table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.Schema()); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", s.tableName, err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, t trafficlight.Transition) error {
	entry := toEntry(t)
	_, err := s.db.NamedExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO %s (light_id, seq, phase, at, elapsed_ms)
		VALUES (:light_id, :seq, :phase, :at, :elapsed_ms)`, s.tableName),
		entry,
	)
	if err == nil {
		return nil
	}

	if isDup(err) {
		return fmt.Errorf("append transition %d of '%s': %w", t.Seq, t.LightID, trafficlight.ErrTransitionExists)
	}

	return fmt.Errorf("failed to append transition %d of '%s': %w", t.Seq, t.LightID, err)
}

func (s *Store) List(ctx context.Context, lightID string) ([]trafficlight.Transition, error) {
	entries := []Entry{}
	err := s.db.SelectContext(ctx, &entries, fmt.Sprintf(`SELECT light_id, seq, phase, at, elapsed_ms FROM %s
	WHERE light_id = $1
	ORDER BY seq ASC`, s.tableName), lightID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions of '%s': %w", lightID, err)
	}

	transitions := make([]trafficlight.Transition, 0, len(entries))
	for i := range entries {
		t, err := fromEntry(&entries[i])
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}

	return transitions, nil
}

func (s *Store) Last(ctx context.Context, lightID string) (*trafficlight.Transition, error) {
	entry := &Entry{}
	err := s.db.GetContext(ctx, entry, fmt.Sprintf(`SELECT light_id, seq, phase, at, elapsed_ms FROM %s
	WHERE light_id = $1
	ORDER BY seq DESC
	LIMIT 1`, s.tableName), lightID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("last transition of '%s': %w", lightID, trafficlight.ErrTransitionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last transition of '%s': %w", lightID, err)
	}

	t, err := fromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.tableName))
	if err != nil {
		return fmt.Errorf("failed to clear: %w", err)
	}
	return nil
}

func isDup(err error) bool {
	var pgerr *pq.Error
	return errors.As(err, &pgerr) && pgerr.Code == pgUniqueViolation
}
