package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

// SQLiteRepository implements Store on a single SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

// DSN builds a modernc sqlite connection string with foreign keys enforced,
// which the cascading user delete depends on.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return Unavailable("ping", err)
	}
	return nil
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = core.NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, profile_picture, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.ProfilePicture, u.CreatedAt.Format(timestampLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, Unavailable("create user", err)
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return core.User{}, Unavailable("create user", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "user_id", u.ID)
	return u, nil
}

const userColumns = `id, name, email, password_hash, profile_picture, created_at`

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email))
	return scanUser(row)
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = core.NormalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, profile_picture = ? WHERE id = ?`,
		u.Name, u.Email, u.PasswordHash, u.ProfilePicture, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ErrEmailTaken
		}
		return core.User{}, Unavailable("update user", err)
	}
	if err := expectOne(res, "update user"); err != nil {
		return core.User{}, err
	}
	return r.GetUser(ctx, u.ID)
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return Unavailable("delete user", err)
	}
	if err := expectOne(res, "delete user"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User deleted with transactions", "user_id", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ProfilePicture, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, ErrNotFound
		}
		return core.User{}, Unavailable("scan user", err)
	}
	u.CreatedAt, _ = time.Parse(timestampLayout, created)
	return u, nil
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, kind, amount, category, occurred_on, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.OwnerID, string(tx.Kind), tx.Amount.StringFixed(2), tx.Category, tx.OccurredOn.String(),
		tx.Description, now.Format(timestampLayout), now.Format(timestampLayout))
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Transaction{}, fmt.Errorf("owner %d: %w", tx.OwnerID, ErrNotFound)
		}
		return core.Transaction{}, Unavailable("create transaction", err)
	}
	if tx.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, Unavailable("create transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"user_id", tx.OwnerID,
		"kind", tx.Kind,
		"amount", tx.Amount.StringFixed(2),
		"category", tx.Category)
	return tx, nil
}

const txColumns = `id, user_id, kind, amount, category, occurred_on, description, created_at, updated_at`

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, ownerID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, Unavailable("get transaction", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET kind = ?, amount = ?, category = ?, occurred_on = ?, description = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(tx.Kind), tx.Amount.StringFixed(2), tx.Category, tx.OccurredOn.String(), tx.Description,
		time.Now().UTC().Format(timestampLayout), tx.ID, tx.OwnerID)
	if err != nil {
		return core.Transaction{}, Unavailable("update transaction", err)
	}
	if err := expectOne(res, "update transaction"); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, tx.OwnerID, tx.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return Unavailable("delete transaction", err)
	}
	return expectOne(res, "delete transaction")
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID int64, f TransactionFilter) ([]core.Transaction, error) {
	where, args := filterClause(ownerID, f)
	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY occurred_on DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Unavailable("list transactions", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, Unavailable("scan transaction", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable("list transactions", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, ownerID int64, f TransactionFilter) (int, error) {
	where, args := filterClause(ownerID, f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&n); err != nil {
		return 0, Unavailable("count transactions", err)
	}
	return n, nil
}

func filterClause(ownerID int64, f TransactionFilter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{ownerID}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Window != nil {
		// dates are stored as YYYY-MM-DD so text comparison is chronological
		conds = append(conds, "occurred_on BETWEEN ? AND ?")
		args = append(args, f.Window.Start.String(), f.Window.End.String())
	}
	return strings.Join(conds, " AND "), args
}

// scanTransaction tolerates unparseable stored amounts and dates by leaving
// the field zero; validation downstream decides what to do with the record.
func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                     core.Transaction
		kind, amount, occurred string
		created, updated       string
	)
	if err := s.Scan(&tx.ID, &tx.OwnerID, &kind, &amount, &tx.Category, &occurred, &tx.Description, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.Kind(kind)
	if d, err := decimal.NewFromString(amount); err == nil {
		tx.Amount = d
	}
	if d, err := core.ParseDate(occurred); err == nil {
		tx.OccurredOn = d
	}
	tx.CreatedAt, _ = time.Parse(timestampLayout, created)
	tx.UpdatedAt, _ = time.Parse(timestampLayout, updated)
	return tx, nil
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return Unavailable(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
