package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Logendranm/wifi-hotspot-system-pro/internal/model"
	"github.com/Logendranm/wifi-hotspot-system-pro/internal/repository"
)

// ErrDuplicate is returned by Create when username or email already exist.
var ErrDuplicate = errors.New("duplicate user identity")

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

var _ repository.UserRepository = (*userRepository)(nil)

const userColumns = `
	id,
	username,
	email,
	password_hash,
	phone,
	role,
	status,
	data_balance,
	time_balance,
	created_at,
	updated_at
`

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	query := `
		INSERT INTO users (
			id, username, email, password_hash, phone, role, status,
			data_balance, time_balance, created_at, updated_at
		)
		VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11
		)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Role,
		user.Status,
		user.DataBalance,
		user.TimeBalance,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.UserStatus) error {
	query := `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *userRepository) CreditBalance(ctx context.Context, id uuid.UUID, dataDelta, timeDelta int64) error {
	query := `
		UPDATE users
		SET data_balance = data_balance + $2,
			time_balance = time_balance + $3,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, dataDelta, timeDelta)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *userRepository) List(ctx context.Context, filter repository.UserListFilter) ([]*model.User, error) {
	limit, offset := normalizePagination(filter.Pagination)

	args := make([]any, 0, 6)
	conditions := buildUserListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT ")
	builder.WriteString(userColumns)
	builder.WriteString(" FROM users")

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	args = append(args, limit, offset)
	_, _ = fmt.Fprintf(&builder, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*model.User, 0, limit)
	for rows.Next() {
		item, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userRepository) Count(ctx context.Context, filter repository.UserListFilter) (int64, error) {
	args := make([]any, 0, 4)
	conditions := buildUserListConditions(filter, &args)

	var builder strings.Builder
	builder.WriteString("SELECT COUNT(*) FROM users")
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, builder.String(), args...).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func buildUserListConditions(filter repository.UserListFilter, args *[]any) []string {
	conditions := make([]string, 0, 3)

	if filter.Role != nil {
		*args = append(*args, *filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(*args)))
	}
	if filter.Status != nil {
		*args = append(*args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(*args)))
	}
	if filter.Keyword != nil {
		keyword := "%" + strings.TrimSpace(*filter.Keyword) + "%"
		*args = append(*args, keyword)
		argPos := len(*args)
		conditions = append(conditions, fmt.Sprintf("(username ILIKE $%d OR email ILIKE $%d)", argPos, argPos))
	}

	return conditions
}

func scanUser(src scanTarget) (*model.User, error) {
	user := &model.User{}
	err := src.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Role,
		&user.Status,
		&user.DataBalance,
		&user.TimeBalance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}
