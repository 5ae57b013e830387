package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/JonMunkholm/richway/internal/core"
)

const createMembersTable = `
CREATE TABLE IF NOT EXISTS members (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	phone      TEXT NOT NULL,
	city       TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`

const insertMember = `INSERT INTO members (id, name, email, phone, city, user_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`

const selectMembers = `SELECT name, email, phone, city, user_id, created_at FROM members ORDER BY created_at DESC`

// SQL stores records in a PostgreSQL table. user_id is deliberately not
// unique; the row key is a random UUID.
type SQL struct {
	db *sql.DB
}

// NewSQL opens a pgx-backed database/sql pool and creates the members table.
func NewSQL(ctx context.Context, url string, maxOpenConns int) (*SQL, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := newSQL(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newSQL(ctx context.Context, db *sql.DB) (*SQL, error) {
	if _, err := db.ExecContext(ctx, createMembersTable); err != nil {
		return nil, fmt.Errorf("create members table: %w", err)
	}
	return &SQL{db: db}, nil
}

// Append inserts one row.
func (s *SQL) Append(ctx context.Context, rec core.Record) error {
	_, err := s.db.ExecContext(ctx, insertMember,
		uuid.New(), rec.Name, rec.Email, rec.Phone, rec.City, rec.UserID, rec.Time)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// List returns every record, newest first.
func (s *SQL) List(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectMembers)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	records := []core.Record{}
	for rows.Next() {
		var rec core.Record
		if err := rows.Scan(&rec.Name, &rec.Email, &rec.Phone, &rec.City, &rec.UserID, &rec.Time); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return records, nil
}

// Export renders the List result.
func (s *SQL) Export(ctx context.Context) ([]byte, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return WriteWorkbook(records)
}

func (s *SQL) Backend() string { return "postgres" }

func (s *SQL) Close(context.Context) error {
	return s.db.Close()
}
