package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists wallets and ledger entries in PostgreSQL. Balances
// live on the wallet row and are mutated only inside transactions that hold
// the row lock, so balance == signed sum of success entries at all times.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectTransaction = `
        SELECT id, reference, wallet_id, user_id, kind, direction, amount, status,
               related_tx_id, COALESCE(metadata, '{}'::jsonb), created_at
        FROM transactions`

// EnsureWallet verifies the wallet row exists.
func (s *PostgresStore) EnsureWallet(ctx context.Context, walletID string) error {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return ErrWalletNotFound
	}
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id).Scan(&exists); err != nil {
		return mapPgError(err)
	}
	if !exists {
		return ErrWalletNotFound
	}
	return nil
}

// Balance returns the wallet's stored balance.
func (s *PostgresStore) Balance(ctx context.Context, walletID string) (int64, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return 0, ErrWalletNotFound
	}
	var balance int64
	if err := s.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrWalletNotFound
		}
		return 0, mapPgError(err)
	}
	return balance, nil
}

// Transfer posts the paired debit/credit atomically. Both wallet rows are
// locked in ascending id order before either balance is read or written.
func (s *PostgresStore) Transfer(ctx context.Context, args TransferArgs) (TransferResult, error) {
	if args.Amount <= 0 {
		return TransferResult{}, fmt.Errorf("amount must be positive")
	}
	fromID, err := uuid.Parse(args.FromWalletID)
	if err != nil {
		return TransferResult{}, ErrWalletNotFound
	}
	toID, err := uuid.Parse(args.ToWalletID)
	if err != nil {
		return TransferResult{}, ErrWalletNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, mapPgError(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := fromID, toID
	if first.String() > second.String() {
		first, second = second, first
	}
	balances := map[uuid.UUID]int64{}
	for _, id := range []uuid.UUID{first, second} {
		var balance int64
		if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return TransferResult{}, ErrWalletNotFound
			}
			return TransferResult{}, mapPgError(err)
		}
		balances[id] = balance
	}

	if balances[fromID] < args.Amount {
		return TransferResult{}, &InsufficientFundsError{Balance: balances[fromID], Required: args.Amount}
	}

	debitID := uuid.New()
	creditID := uuid.New()

	// The rows are inserted unlinked and cross-pointed once both exist: the
	// related_tx_id foreign key is checked per statement, so the first insert
	// may not reference the second before it lands.
	const insertEntry = `INSERT INTO transactions
                (id, reference, wallet_id, user_id, kind, direction, amount, status, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := tx.Exec(ctx, insertEntry,
		debitID, args.Reference+"_debit", fromID, args.FromUserID, KindTransfer, DirectionDebit,
		args.Amount, StatusSuccess, map[string]string{"counterparty_wallet": args.ToWalletID}); err != nil {
		return TransferResult{}, mapPgError(err)
	}
	if _, err := tx.Exec(ctx, insertEntry,
		creditID, args.Reference+"_credit", toID, args.ToUserID, KindTransfer, DirectionCredit,
		args.Amount, StatusSuccess, map[string]string{"counterparty_wallet": args.FromWalletID}); err != nil {
		return TransferResult{}, mapPgError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET related_tx_id = $1 WHERE id = $2`, creditID, debitID); err != nil {
		return TransferResult{}, mapPgError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET related_tx_id = $1 WHERE id = $2`, debitID, creditID); err != nil {
		return TransferResult{}, mapPgError(err)
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance - $1, updated_at = now() WHERE id = $2`, args.Amount, fromID); err != nil {
		return TransferResult{}, mapPgError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1, updated_at = now() WHERE id = $2`, args.Amount, toID); err != nil {
		return TransferResult{}, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, mapPgError(err)
	}

	return TransferResult{
		DebitTxID:   debitID.String(),
		CreditTxID:  creditID.String(),
		FromBalance: balances[fromID] - args.Amount,
		ToBalance:   balances[toID] + args.Amount,
	}, nil
}

// CreatePendingDeposit inserts the single pending credit entry for a deposit.
func (s *PostgresStore) CreatePendingDeposit(ctx context.Context, walletID, userID, reference string, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	wID, err := uuid.Parse(walletID)
	if err != nil {
		return "", ErrWalletNotFound
	}
	txID := uuid.New()
	_, err = s.db.Exec(ctx, `INSERT INTO transactions
                (id, reference, wallet_id, user_id, kind, direction, amount, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txID, reference, wID, userID, KindDeposit, DirectionCredit, amount, StatusPending)
	if err != nil {
		return "", mapPgError(err)
	}
	return txID.String(), nil
}

// FinalizeDeposit applies the provider outcome to the pending entry. The
// entry row is locked first so a concurrent redelivery serializes behind it
// and then observes the terminal state.
func (s *PostgresStore) FinalizeDeposit(ctx context.Context, reference string, reportedAmount int64, succeeded bool) (FinalizeResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return FinalizeResult{}, mapPgError(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		txID     uuid.UUID
		walletID uuid.UUID
		amount   int64
		status   Status
	)
	err = tx.QueryRow(ctx, `SELECT id, wallet_id, amount, status FROM transactions
                WHERE reference = $1 FOR UPDATE`, reference).Scan(&txID, &walletID, &amount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinalizeResult{}, ErrTransactionNotFound
		}
		return FinalizeResult{}, mapPgError(err)
	}

	if status.Terminal() {
		var balance int64
		if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance); err != nil {
			return FinalizeResult{}, mapPgError(err)
		}
		return FinalizeResult{TxID: txID.String(), Status: status, WalletBalance: balance, AlreadyFinal: true}, nil
	}

	fail := func(reason string) (FinalizeResult, error) {
		if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, metadata = COALESCE(metadata, '{}'::jsonb) || $2, updated_at = now() WHERE id = $3`,
			StatusFailed, map[string]string{"failure_reason": reason}, txID); err != nil {
			return FinalizeResult{}, mapPgError(err)
		}
		var balance int64
		if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance); err != nil {
			return FinalizeResult{}, mapPgError(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return FinalizeResult{}, mapPgError(err)
		}
		return FinalizeResult{TxID: txID.String(), Status: StatusFailed, WalletBalance: balance}, nil
	}

	if !succeeded {
		return fail("provider reported failure")
	}
	if reportedAmount != amount {
		res, err := fail("amount mismatch")
		if err != nil {
			return FinalizeResult{}, err
		}
		return res, &AmountMismatchError{Reference: reference, Expected: amount, Reported: reportedAmount}
	}

	var balance int64
	if err := tx.QueryRow(ctx, `UPDATE wallets SET balance = balance + $1, updated_at = now()
                WHERE id = $2 RETURNING balance`, amount, walletID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinalizeResult{}, ErrWalletNotFound
		}
		return FinalizeResult{}, mapPgError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = now() WHERE id = $2`, StatusSuccess, txID); err != nil {
		return FinalizeResult{}, mapPgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return FinalizeResult{}, mapPgError(err)
	}
	return FinalizeResult{TxID: txID.String(), Status: StatusSuccess, WalletBalance: balance}, nil
}

// MarkDepositFailed fails a still-pending deposit entry.
func (s *PostgresStore) MarkDepositFailed(ctx context.Context, reference string) error {
	tag, err := s.db.Exec(ctx, `UPDATE transactions SET status = $1, updated_at = now()
                WHERE reference = $2 AND status = $3`, StatusFailed, reference, StatusPending)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// TransactionByReference fetches one entry by its unique reference.
func (s *PostgresStore) TransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	row := s.db.QueryRow(ctx, selectTransaction+` WHERE reference = $1`, reference)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, mapPgError(err)
	}
	return t, nil
}

// TransactionsForWallet returns the wallet's history, newest first.
func (s *PostgresStore) TransactionsForWallet(ctx context.Context, walletID string) ([]Transaction, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	rows, err := s.db.Query(ctx, selectTransaction+` WHERE wallet_id = $1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, mapPgError(err)
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		t       Transaction
		id      uuid.UUID
		wID     uuid.UUID
		uID     uuid.UUID
		related *uuid.UUID
	)
	if err := row.Scan(&id, &t.Reference, &wID, &uID, &t.Kind, &t.Direction, &t.Amount, &t.Status, &related, &t.Metadata, &t.CreatedAt); err != nil {
		return Transaction{}, err
	}
	t.ID = id.String()
	t.WalletID = wID.String()
	t.UserID = uID.String()
	if related != nil {
		t.RelatedTxID = related.String()
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

// mapPgError translates Postgres failure codes into the store's taxonomy:
// unique violations become ErrDuplicateReference, serialization failures and
// deadlocks become the retryable ErrConflict.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicateReference
		case "40001", "40P01":
			return ErrConflict
		}
	}
	return err
}
