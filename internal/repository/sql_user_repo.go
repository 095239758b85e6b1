package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hitoshi/timesheet/internal/model"
	"github.com/lib/pq"
)

// SQLUserRepo はdatabase/sqlを使用したユーザーリポジトリ。
type SQLUserRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLUserRepo はSQLUserRepoを生成する。
func NewSQLUserRepo(db DBTX, d Dialect) *SQLUserRepo {
	return &SQLUserRepo{db: db, d: d}
}

const userColumns = `id, username, password, name, email, hourly_rate`

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		r.d.rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`),
		id,
	)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		r.d.rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`),
		username,
	)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *SQLUserRepo) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		r.d.rebind(`INSERT INTO users (username, password, name, email, hourly_rate)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		in.Username, in.Password, in.Name, in.Email, nullInt(in.HourlyRate),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &model.User{
		ID:         id,
		Username:   in.Username,
		Password:   in.Password,
		Name:       in.Name,
		Email:      in.Email,
		HourlyRate: cloneInt(in.HourlyRate),
	}, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u    model.User
		rate sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Name, &u.Email, &rate); err != nil {
		return nil, err
	}
	u.HourlyRate = intPtr(rate)
	return &u, nil
}

// isUniqueViolation は一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// modernc.org/sqlite はエラーメッセージに制約名を含める
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// compile-time interface check
var _ UserRepository = (*SQLUserRepo)(nil)
