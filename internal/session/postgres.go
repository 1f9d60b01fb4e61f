package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Chicken/VenaaRauhassa/internal/models"
)

// rowID is the primary key of the only row in the session table
const rowID = 0

// Querier is the subset of *pgxpool.Pool used by PostgresStore
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps the session in a single-row table (see db.EnsureSchema)
type PostgresStore struct {
	db Querier
}

func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Get(ctx context.Context) (*models.Session, error) {
	var s models.Session
	err := p.db.QueryRow(ctx,
		`SELECT session_id, token, expires_on FROM session WHERE id = $1`,
		rowID,
	).Scan(&s.SessionID, &s.Token, &s.ExpiresOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) Set(ctx context.Context, s models.Session) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO session (id, session_id, token, expires_on)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET session_id = EXCLUDED.session_id,
		    token = EXCLUDED.token,
		    expires_on = EXCLUDED.expires_on
	`, rowID, s.SessionID, s.Token, s.ExpiresOn)
	if err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}
