package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/timesheet/internal/model"
)

// SQLProjectRepo はdatabase/sqlを使用したプロジェクトリポジトリ。
type SQLProjectRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLProjectRepo はSQLProjectRepoを生成する。
func NewSQLProjectRepo(db DBTX, d Dialect) *SQLProjectRepo {
	return &SQLProjectRepo{db: db, d: d}
}

const projectColumns = `id, name, description, client, color, is_active`

// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
func (r *SQLProjectRepo) FindByID(ctx context.Context, id int64) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx,
		r.d.rebind(`SELECT `+projectColumns+` FROM projects WHERE id = ?`),
		id,
	)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project by ID: %w", err)
	}
	return p, nil
}

// List は全プロジェクトをID昇順（作成順）で返す。
func (r *SQLProjectRepo) List(ctx context.Context) ([]model.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// Create はプロジェクトを作成する。
func (r *SQLProjectRepo) Create(ctx context.Context, in model.ProjectInput) (*model.Project, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		r.d.rebind(`INSERT INTO projects (name, description, client, color, is_active)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		in.Name, nullString(in.Description), nullString(in.Client), in.Color, in.IsActive,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}

	p := projectFromInput(id, in)
	return &p, nil
}

// Update はプロジェクトを全置換で更新する。存在しない場合はnilを返す。
func (r *SQLProjectRepo) Update(ctx context.Context, id int64, in model.ProjectInput) (*model.Project, error) {
	result, err := r.db.ExecContext(ctx,
		r.d.rebind(`UPDATE projects
		 SET name = ?, description = ?, client = ?, color = ?, is_active = ?
		 WHERE id = ?`),
		in.Name, nullString(in.Description), nullString(in.Client), in.Color, in.IsActive, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	p := projectFromInput(id, in)
	return &p, nil
}

// Delete はプロジェクトと関連する工数記録を同一トランザクションで削除する。
// 存在しない場合はfalseを返し、何も変更しない。
func (r *SQLProjectRepo) Delete(ctx context.Context, id int64) (bool, error) {
	err := withinTx(ctx, r.db, nil, func(tx DBTX) error {
		if _, err := tx.ExecContext(ctx,
			r.d.rebind(`DELETE FROM time_entries WHERE project_id = ?`),
			id,
		); err != nil {
			return fmt.Errorf("failed to delete time entries of project: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			r.d.rebind(`DELETE FROM projects WHERE id = ?`),
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			// ロールバックさせる
			return sql.ErrNoRows
		}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		p           model.Project
		description sql.NullString
		client      sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &client, &p.Color, &p.IsActive); err != nil {
		return nil, err
	}
	p.Description = stringPtr(description)
	p.Client = stringPtr(client)
	return &p, nil
}

// compile-time interface check
var _ ProjectRepository = (*SQLProjectRepo)(nil)
