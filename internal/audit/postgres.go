// internal/audit/postgres.go
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const createLogTable = `CREATE TABLE IF NOT EXISTS beacon_log (
	id             TEXT PRIMARY KEY,
	correlation_id TEXT,
	type           TEXT NOT NULL,
	method         TEXT NOT NULL,
	url            TEXT NOT NULL,
	beacon_id      TEXT,
	code           INTEGER,
	message        TEXT,
	request        TEXT,
	response       TEXT,
	elapsed_ms     BIGINT,
	created_at     TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
)`

const insertLogEntry = `INSERT INTO beacon_log
	(id, correlation_id, type, method, url, beacon_id, code, message, request, response, elapsed_ms, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const selectLastResponse = `SELECT id, correlation_id, type, method, url, beacon_id, code, message, request, response, elapsed_ms, created_at
	FROM beacon_log WHERE url = $1 AND code = 200 AND response IS NOT NULL
	ORDER BY created_at DESC LIMIT 1`

// PostgresStore keeps the durable request log.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

// EnsureSchema creates the log table when it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createLogTable); err != nil {
		return fmt.Errorf("create beacon_log: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, e *Entry) error {
	_, err := s.db.ExecContext(ctx, insertLogEntry,
		e.ID, nullString(e.CorrelationID), string(e.Type), e.Method, e.URL, nullString(e.BeaconID),
		e.Code, nullString(e.Message), nullString(e.Request), nullString(e.Response),
		e.ElapsedMS, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert beacon_log: %w", err)
	}
	return nil
}

func (s *PostgresStore) LastResponse(ctx context.Context, url string) (*Entry, error) {
	var (
		e                                                 Entry
		typ                                               string
		correlation, beaconID, message, request, response sql.NullString
	)
	err := s.db.QueryRowContext(ctx, selectLastResponse, url).Scan(
		&e.ID, &correlation, &typ, &e.Method, &e.URL, &beaconID,
		&e.Code, &message, &request, &response, &e.ElapsedMS, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select beacon_log: %w", err)
	}
	e.Type = RequestType(typ)
	e.CorrelationID = correlation.String
	e.BeaconID = beaconID.String
	e.Message = message.String
	e.Request = request.String
	e.Response = response.String
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
