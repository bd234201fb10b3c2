package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new identity record.
func (r *PostgresRepository) Create(ctx context.Context, i *Identity) error {
	query := `
		INSERT INTO identities (email, password_hash, display_name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		i.Email,
		i.PasswordHash,
		i.DisplayName,
	).Scan(&i.ID, &i.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailInUse
		}
		return fmt.Errorf("inserting identity: %w", err)
	}

	return nil
}

// GetByID retrieves a single identity by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	query := `
		SELECT id, email, password_hash, display_name, created_at
		FROM identities
		WHERE id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a single identity by its email address.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	query := `
		SELECT id, email, password_hash, display_name, created_at
		FROM identities
		WHERE email = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

// UpdateDisplayName changes the display name of an identity.
func (r *PostgresRepository) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE identities SET display_name = $2 WHERE id = $1`,
		id, displayName,
	)
	if err != nil {
		return fmt.Errorf("updating display name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

// BindClient upserts the client's signed-in identity.
func (r *PostgresRepository) BindClient(ctx context.Context, clientID string, identityID uuid.UUID) error {
	query := `
		INSERT INTO client_identities (client_id, identity_id)
		VALUES ($1, $2)
		ON CONFLICT (client_id) DO UPDATE
		SET identity_id = EXCLUDED.identity_id, signed_in_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, clientID, identityID); err != nil {
		return fmt.Errorf("binding client: %w", err)
	}
	return nil
}

// UnbindClient removes the client's signed-in identity.
func (r *PostgresRepository) UnbindClient(ctx context.Context, clientID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM client_identities WHERE client_id = $1`, clientID); err != nil {
		return fmt.Errorf("unbinding client: %w", err)
	}
	return nil
}

// ClientIdentity returns the identity bound to clientID.
func (r *PostgresRepository) ClientIdentity(ctx context.Context, clientID string) (*Identity, error) {
	query := `
		SELECT i.id, i.email, i.password_hash, i.display_name, i.created_at
		FROM client_identities c
		JOIN identities i ON i.id = c.identity_id
		WHERE c.client_id = $1`

	return r.scanOne(r.pool.QueryRow(ctx, query, clientID))
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Identity, error) {
	var i Identity
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.DisplayName, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("querying identity: %w", err)
	}
	return &i, nil
}
