// Package postgres implements storage.Store on PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Repository)(nil)

// New connects to dsn, verifies the connection and applies migrations.
func New(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := RunMigrations(dsn); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repository{pool: pool}, nil
}

// RunMigrations applies the embedded schema over a short-lived database/sql
// connection.
func RunMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("create pgx driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return storage.Unavailable("ping", err)
	}
	return nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const userColumns = `id, name, email, password_hash, profile_picture, created_at`

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = core.NormalizeEmail(u.Email)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, profile_picture)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.PasswordHash, u.ProfilePicture,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return core.User{}, storage.ErrEmailTaken
		}
		return core.User{}, storage.Unavailable("create user", err)
	}
	slog.InfoContext(ctx, "User saved to Postgres", "user_id", u.ID)
	return u, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, core.NormalizeEmail(email))
}

func (r *Repository) queryUser(ctx context.Context, query string, arg any) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, storage.ErrNotFound
	}
	if err != nil {
		return core.User{}, storage.Unavailable("get user", err)
	}
	return u, nil
}

func (r *Repository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $1, email = $2, password_hash = $3, profile_picture = $4 WHERE id = $5`,
		u.Name, core.NormalizeEmail(u.Email), u.PasswordHash, u.ProfilePicture, u.ID)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return core.User{}, storage.ErrEmailTaken
		}
		return core.User{}, storage.Unavailable("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return core.User{}, storage.ErrNotFound
	}
	return r.GetUser(ctx, u.ID)
}

func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storage.Unavailable("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	slog.InfoContext(ctx, "User deleted with transactions", "user_id", id)
	return nil
}

const txColumns = `id, user_id, kind, amount::text, category, occurred_on, description, created_at, updated_at`

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO transactions (user_id, kind, amount, category, occurred_on, description)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		tx.OwnerID, string(tx.Kind), tx.Amount.StringFixed(2), tx.Category, tx.OccurredOn.Time, tx.Description,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return core.Transaction{}, fmt.Errorf("owner %d: %w", tx.OwnerID, storage.ErrNotFound)
		}
		return core.Transaction{}, storage.Unavailable("create transaction", err)
	}
	tx.Amount = tx.Amount.Round(2)
	slog.InfoContext(ctx, "Transaction saved to Postgres",
		"id", tx.ID,
		"user_id", tx.OwnerID,
		"kind", tx.Kind,
		"amount", tx.Amount.StringFixed(2))
	return tx, nil
}

func (r *Repository) GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return core.Transaction{}, storage.Unavailable("get transaction", err)
	}
	tx, err := pgx.CollectExactlyOneRow(rows, scanTransaction)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, storage.Unavailable("get transaction", err)
	}
	return tx, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transactions
		 SET kind = $1, amount = $2::numeric, category = $3, occurred_on = $4, description = $5, updated_at = now()
		 WHERE id = $6 AND user_id = $7`,
		string(tx.Kind), tx.Amount.StringFixed(2), tx.Category, tx.OccurredOn.Time, tx.Description, tx.ID, tx.OwnerID)
	if err != nil {
		return core.Transaction{}, storage.Unavailable("update transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Transaction{}, storage.ErrNotFound
	}
	return r.GetTransaction(ctx, tx.OwnerID, tx.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return storage.Unavailable("delete transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) ListTransactions(ctx context.Context, ownerID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	where, args := filterClause(ownerID, f)
	query := `SELECT ` + txColumns + ` FROM transactions WHERE ` + where + ` ORDER BY occurred_on DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable("list transactions", err)
	}
	out, err := pgx.CollectRows(rows, scanTransaction)
	if err != nil {
		return nil, storage.Unavailable("list transactions", err)
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

func (r *Repository) CountTransactions(ctx context.Context, ownerID int64, f storage.TransactionFilter) (int, error) {
	where, args := filterClause(ownerID, f)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&n); err != nil {
		return 0, storage.Unavailable("count transactions", err)
	}
	return n, nil
}

func filterClause(ownerID int64, f storage.TransactionFilter) (string, []any) {
	args := []any{ownerID}
	conds := []string{"user_id = $1"}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Window != nil {
		add("occurred_on >= $%d", f.Window.Start.Time)
		add("occurred_on <= $%d", f.Window.End.Time)
	}
	return strings.Join(conds, " AND "), args
}

func scanTransaction(row pgx.CollectableRow) (core.Transaction, error) {
	var (
		tx       core.Transaction
		kind     string
		amount   string
		occurred time.Time
	)
	if err := row.Scan(&tx.ID, &tx.OwnerID, &kind, &amount, &tx.Category, &occurred,
		&tx.Description, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.Kind(kind)
	if d, err := decimal.NewFromString(amount); err == nil {
		tx.Amount = d
	}
	tx.OccurredOn = core.DateOf(occurred)
	return tx, nil
}
