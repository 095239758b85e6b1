package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect はSQLバックエンドの方言を表す。
// プレースホルダと日時の表現だけが異なり、クエリ本体は共通。
type Dialect int

const (
	// DialectPostgres はPostgreSQL（lib/pq）を表す。
	DialectPostgres Dialect = iota
	// DialectSQLite はSQLite（modernc.org/sqlite）を表す。
	DialectSQLite
)

// sqliteTimeLayout はSQLiteにTEXTで保存する日時の形式。
// 固定長のため文字列比較がそのまま時系列比較になる。
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// String は方言名を返す。
func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return "postgres"
	case DialectSQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// rebind は ? プレースホルダを方言に合わせて書き換える。
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg は日時をバインド引数に変換する。常にUTCに正規化する。
func (d Dialect) timeArg(t time.Time) any {
	t = t.UTC()
	if d == DialectSQLite {
		return t.Format(sqliteTimeLayout)
	}
	return t
}

// timeColumn はドライバによって time.Time / string / []byte のいずれかで返る日時列を読み取る。
type timeColumn struct {
	Time time.Time
}

// Scan はsql.Scannerを実装する。
func (c *timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		c.Time = v.UTC()
		return nil
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("unsupported time column type %T", src)
	}
}

func (c *timeColumn) parse(s string) error {
	layouts := []string{
		sqliteTimeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			c.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("failed to parse time column: %q", s)
}

// DBTX は*sql.DBと*sql.Txの共通部分。
// リポジトリはこれに依存し、トランザクション内でも同じクエリを使えるようにする。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// withinTx はfnをトランザクション内で実行し、fnがエラーを返した場合はロールバックする。
// dbが既に*sql.Txの場合は新たに開始せずそのまま使う。
func withinTx(ctx context.Context, db DBTX, opts *sql.TxOptions, fn func(tx DBTX) error) error {
	conn, ok := db.(*sql.DB)
	if !ok {
		return fn(db)
	}

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// SQLStore はdatabase/sqlを使用したStore実装。
// PostgreSQLとSQLiteで同一のクエリを共有する。
type SQLStore struct {
	db      *sql.DB
	dialect Dialect

	users   *SQLUserRepo
	project *SQLProjectRepo
	entries *SQLTimeEntryRepo
}

// NewPostgresStore はPostgreSQL接続からSQLStoreを生成する。
func NewPostgresStore(db *sql.DB) *SQLStore {
	return newSQLStore(db, DialectPostgres)
}

// NewSQLiteStore はSQLite接続からSQLStoreを生成する。
func NewSQLiteStore(db *sql.DB) *SQLStore {
	return newSQLStore(db, DialectSQLite)
}

func newSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		users:   NewSQLUserRepo(db, d),
		project: NewSQLProjectRepo(db, d),
		entries: NewSQLTimeEntryRepo(db, d),
	}
}

// Users はユーザーリポジトリを返す。
func (s *SQLStore) Users() UserRepository { return s.users }

// Projects はプロジェクトリポジトリを返す。
func (s *SQLStore) Projects() ProjectRepository { return s.project }

// TimeEntries は工数記録リポジトリを返す。
func (s *SQLStore) TimeEntries() TimeEntryRepository { return s.entries }

// View はfnを1つのトランザクション内で実行する。
// PostgreSQLでは読み取り専用のREPEATABLE READで開始し、fn内の読み取りは同一スナップショットを見る。
// SQLiteのトランザクションは最初の読み取り時点のスナップショットを保持する。
func (s *SQLStore) View(ctx context.Context, fn func(Repositories) error) error {
	var opts *sql.TxOptions
	if s.dialect == DialectPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return withinTx(ctx, s.db, opts, func(tx DBTX) error {
		return fn(&sqlRepositories{
			users:   NewSQLUserRepo(tx, s.dialect),
			project: NewSQLProjectRepo(tx, s.dialect),
			entries: NewSQLTimeEntryRepo(tx, s.dialect),
		})
	})
}

// sqlRepositories はトランザクションに束縛されたリポジトリの組。
type sqlRepositories struct {
	users   *SQLUserRepo
	project *SQLProjectRepo
	entries *SQLTimeEntryRepo
}

func (r *sqlRepositories) Users() UserRepository { return r.users }
func (r *sqlRepositories) Projects() ProjectRepository { return r.project }
func (r *sqlRepositories) TimeEntries() TimeEntryRepository { return r.entries }

// Ping はDB接続を確認する。
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close はDB接続を閉じる。
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// DB は内部のDB接続を返す。クリーンアップジョブなどバッチ処理用。
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect はストアの方言を返す。
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

// compile-time interface check
var _ Store = (*SQLStore)(nil)
