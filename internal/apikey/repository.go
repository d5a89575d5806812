package apikey

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudipay/kudipay/internal/access"
)

// ErrKeyNotFound indicates no key matches the lookup.
var ErrKeyNotFound = errors.New("api key not found")

// Repository persists API keys.
type Repository interface {
	Create(ctx context.Context, key Key) error
	FindByID(ctx context.Context, id string) (Key, error)
	ListByUser(ctx context.Context, userID string) ([]Key, error)
	Revoke(ctx context.Context, userID, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed key repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new key.
func (r *PostgresRepository) Create(ctx context.Context, key Key) error {
	userID, err := uuid.Parse(key.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO api_keys (id, user_id, name, secret_hash, permissions, expires_at, revoked, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, userID, key.Name, key.SecretHash, access.Strings(key.Permissions),
		key.ExpiresAt.UTC(), key.Revoked, key.CreatedAt.UTC())
	return err
}

// FindByID fetches one key by its public identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Key, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, name, secret_hash, permissions, expires_at, revoked, created_at
        FROM api_keys WHERE id = $1`, id)
	return scanKey(row)
}

// ListByUser returns all of a user's keys, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Key, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, name, secret_hash, permissions, expires_at, revoked, created_at
        FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Revoke disables a key owned by the user.
func (r *PostgresRepository) Revoke(ctx context.Context, userID, id string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE api_keys SET revoked = TRUE WHERE id = $1 AND user_id = $2`, id, uid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

func scanKey(row pgx.Row) (Key, error) {
	var (
		userID    uuid.UUID
		scopes    []string
		expiresAt time.Time
		createdAt time.Time
		key       Key
	)
	if err := row.Scan(&key.ID, &userID, &key.Name, &key.SecretHash, &scopes, &expiresAt, &key.Revoked, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Key{}, ErrKeyNotFound
		}
		return Key{}, err
	}
	perms, err := access.ParseAll(scopes)
	if err != nil {
		return Key{}, err
	}
	key.UserID = userID.String()
	key.Permissions = perms
	key.ExpiresAt = expiresAt.UTC()
	key.CreatedAt = createdAt.UTC()
	return key, nil
}
