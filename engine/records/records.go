// Package records persists race results emitted by plugins.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fzracing/fz/engine/hostfuncs"
	"github.com/fzracing/fz/wire"
)

// FinishEvent is the emit_event payload name a Store listens for.
const FinishEventName = "race_finished"

// Finish is one recorded race result.
type Finish struct {
	ID       int64
	Plugin   string
	Client   *wire.ClientID
	RaceTime float64
	Laps     int
	Recorded time.Time
}

// finishPayload is the JSON body of a race_finished event.
type finishPayload struct {
	RaceTime float64 `json:"race_time"`
	Laps     int     `json:"laps"`
}

// Store persists finishes in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the records database at path and runs the
// schema migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening records db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating records db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS finishes (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			plugin    TEXT NOT NULL,
			client    INTEGER,
			race_time REAL NOT NULL,
			laps      INTEGER NOT NULL,
			recorded  TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordFinish stores one race result.
func (s *Store) RecordFinish(ctx context.Context, f Finish) error {
	var client any
	if f.Client != nil {
		client = int64(*f.Client)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO finishes (plugin, client, race_time, laps, recorded) VALUES (?, ?, ?, ?, ?)",
		f.Plugin, client, f.RaceTime, f.Laps,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// TopTimes returns the fastest finishes for a plugin, best first.
func (s *Store) TopTimes(ctx context.Context, plugin string, limit int) ([]Finish, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, plugin, client, race_time, laps, recorded FROM finishes WHERE plugin = ? ORDER BY race_time ASC LIMIT ?",
		plugin, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var finishes []Finish
	for rows.Next() {
		var f Finish
		var client sql.NullInt64
		var recorded string
		if err := rows.Scan(&f.ID, &f.Plugin, &client, &f.RaceTime, &f.Laps, &recorded); err != nil {
			return nil, err
		}
		if client.Valid {
			id := wire.ClientID(client.Int64)
			f.Client = &id
		}
		f.Recorded, _ = time.Parse(time.RFC3339Nano, recorded)
		finishes = append(finishes, f)
	}
	return finishes, rows.Err()
}

// Sink adapts the store into an emit_event handler. Events other than
// race_finished are accepted and dropped.
func (s *Store) Sink() hostfuncs.EventSink {
	return func(ctx context.Context, req hostfuncs.EmitEventRequest) hostfuncs.EmitEventResponse {
		if req.Name != FinishEventName {
			return hostfuncs.EmitEventResponse{Accepted: true}
		}
		var payload finishPayload
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return hostfuncs.EmitEventResponse{
				Error: &wire.ErrorDetail{Type: "validation", Message: fmt.Sprintf("bad %s payload: %v", FinishEventName, err)},
			}
		}
		err := s.RecordFinish(ctx, Finish{
			Plugin:   req.Context.Plugin,
			Client:   req.Client,
			RaceTime: payload.RaceTime,
			Laps:     payload.Laps,
		})
		if err != nil {
			return hostfuncs.EmitEventResponse{Error: wire.FromError(err)}
		}
		return hostfuncs.EmitEventResponse{Accepted: true}
	}
}
