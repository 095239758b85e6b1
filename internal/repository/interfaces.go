// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/timesheet/internal/model"
)

// ErrDuplicateUsername はユーザー名が既に使用されている場合に返される。
var ErrDuplicateUsername = errors.New("username already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDを含むユーザーを返す。
	// ユーザー名が重複する場合はErrDuplicateUsernameを返す。
	Create(ctx context.Context, in model.UserInput) (*model.User, error)
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Project, error)

	// List は全プロジェクトを作成順に返す。
	List(ctx context.Context) ([]model.Project, error)

	// Create はプロジェクトを作成する。
	Create(ctx context.Context, in model.ProjectInput) (*model.Project, error)

	// Update はプロジェクトを全置換で更新する。存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, in model.ProjectInput) (*model.Project, error)

	// Delete はプロジェクトと、それを参照する全工数記録を同一トランザクションで削除する。
	// 存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// TimeEntryFilter は工数記録の検索条件。
// nilのフィールドは条件に含めない。日付は両端を含む。
type TimeEntryFilter struct {
	UserID    *int64
	ProjectID *int64
	StartDate *time.Time
	EndDate   *time.Time
}

// TimeEntryRepository は工数記録の永続化インターフェース。
type TimeEntryRepository interface {
	// FindByID は指定IDの工数記録を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.TimeEntry, error)

	// List は条件に一致する工数記録を日付の新しい順に返す。同一日時はID昇順。
	List(ctx context.Context, filter TimeEntryFilter) ([]model.TimeEntry, error)

	// Create は工数記録を作成する。
	Create(ctx context.Context, in model.TimeEntryInput) (*model.TimeEntry, error)

	// Update は工数記録を全置換で更新する。存在しない場合はnilを返す。
	Update(ctx context.Context, id int64, in model.TimeEntryInput) (*model.TimeEntry, error)

	// Delete は工数記録を削除する。存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}

// Repositories は3種類のリポジトリの組。
type Repositories interface {
	Users() UserRepository
	Projects() ProjectRepository
	TimeEntries() TimeEntryRepository
}

// Store は3種類のリポジトリをまとめたエンティティストア。
// バックエンド（メモリ / PostgreSQL / SQLite）の差し替え単位となる。
type Store interface {
	Repositories

	// View はfnに渡したリポジトリ経由の読み取りが同一時点のデータを見ることを保証する。
	// fnの実行中に他の操作が割り込むことはない。fnの中で元のStoreを使ってはならない。
	View(ctx context.Context, fn func(Repositories) error) error

	// Ping はバックエンドへの疎通を確認する。
	Ping(ctx context.Context) error
	// Close はバックエンドの接続を解放する。
	Close() error
}
