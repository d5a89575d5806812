package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudipay/kudipay/internal/ledger"
)

// Repository persists wallet metadata. Balances are owned by the ledger
// store, never by the repository.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	GetByUser(ctx context.Context, userID string) (Wallet, error)
	GetByNumber(ctx context.Context, walletNumber string) (Wallet, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a wallet row with a zero opening balance.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	walletID, err := uuid.Parse(wallet.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(wallet.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO wallets (id, user_id, wallet_number, balance, currency, created_at)
        VALUES ($1, $2, $3, 0, $4, $5)`, walletID, userID, wallet.WalletNumber, wallet.Currency, wallet.CreatedAt.UTC())
	return err
}

// GetByUser fetches the user's wallet.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (Wallet, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, ledger.ErrWalletNotFound
	}
	return r.get(ctx, `SELECT id, user_id, wallet_number, currency, created_at FROM wallets WHERE user_id = $1`, id)
}

// GetByNumber resolves a wallet from its shareable handle.
func (r *PostgresRepository) GetByNumber(ctx context.Context, walletNumber string) (Wallet, error) {
	return r.get(ctx, `SELECT id, user_id, wallet_number, currency, created_at FROM wallets WHERE wallet_number = $1`, walletNumber)
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (Wallet, error) {
	row := r.db.QueryRow(ctx, query, arg)
	var (
		w         Wallet
		id        uuid.UUID
		userID    uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &w.WalletNumber, &w.Currency, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ledger.ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}
