package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/timesheet/internal/model"
)

// SQLTimeEntryRepo はdatabase/sqlを使用した工数記録リポジトリ。
type SQLTimeEntryRepo struct {
	db DBTX
	d  Dialect
}

// NewSQLTimeEntryRepo はSQLTimeEntryRepoを生成する。
func NewSQLTimeEntryRepo(db DBTX, d Dialect) *SQLTimeEntryRepo {
	return &SQLTimeEntryRepo{db: db, d: d}
}

const timeEntryColumns = `id, project_id, user_id, task, "date", duration, notes, is_billable`

// FindByID は指定IDの工数記録を取得する。見つからない場合はnilを返す。
func (r *SQLTimeEntryRepo) FindByID(ctx context.Context, id int64) (*model.TimeEntry, error) {
	row := r.db.QueryRowContext(ctx,
		r.d.rebind(`SELECT `+timeEntryColumns+` FROM time_entries WHERE id = ?`),
		id,
	)
	e, err := scanTimeEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find time entry by ID: %w", err)
	}
	return e, nil
}

// List は条件に一致する工数記録を日付の新しい順に返す。
func (r *SQLTimeEntryRepo) List(ctx context.Context, filter TimeEntryFilter) ([]model.TimeEntry, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		conds = append(conds, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.ProjectID != nil {
		conds = append(conds, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.StartDate != nil {
		conds = append(conds, `"date" >= ?`)
		args = append(args, r.d.timeArg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conds = append(conds, `"date" <= ?`)
		args = append(args, r.d.timeArg(*filter.EndDate))
	}

	query := `SELECT ` + timeEntryColumns + ` FROM time_entries`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY "date" DESC, id ASC`

	rows, err := r.db.QueryContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.TimeEntry, 0)
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate time entries: %w", err)
	}
	return entries, nil
}

// Create は工数記録を作成する。
func (r *SQLTimeEntryRepo) Create(ctx context.Context, in model.TimeEntryInput) (*model.TimeEntry, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		r.d.rebind(`INSERT INTO time_entries (project_id, user_id, task, "date", duration, notes, is_billable)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		in.ProjectID, in.UserID, in.Task, r.d.timeArg(in.Date), in.Duration, nullString(in.Notes), in.IsBillable,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert time entry: %w", err)
	}

	e := timeEntryFromInput(id, in)
	return &e, nil
}

// Update は工数記録を全置換で更新する。存在しない場合はnilを返す。
func (r *SQLTimeEntryRepo) Update(ctx context.Context, id int64, in model.TimeEntryInput) (*model.TimeEntry, error) {
	result, err := r.db.ExecContext(ctx,
		r.d.rebind(`UPDATE time_entries
		 SET project_id = ?, user_id = ?, task = ?, "date" = ?, duration = ?, notes = ?, is_billable = ?
		 WHERE id = ?`),
		in.ProjectID, in.UserID, in.Task, r.d.timeArg(in.Date), in.Duration, nullString(in.Notes), in.IsBillable, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update time entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	e := timeEntryFromInput(id, in)
	return &e, nil
}

// Delete は工数記録を削除する。存在しない場合はfalseを返す。
func (r *SQLTimeEntryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		r.d.rebind(`DELETE FROM time_entries WHERE id = ?`),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete time entry: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func scanTimeEntry(row rowScanner) (*model.TimeEntry, error) {
	var (
		e     model.TimeEntry
		date  timeColumn
		notes sql.NullString
	)
	if err := row.Scan(&e.ID, &e.ProjectID, &e.UserID, &e.Task, &date, &e.Duration, &notes, &e.IsBillable); err != nil {
		return nil, err
	}
	e.Date = date.Time
	e.Notes = stringPtr(notes)
	return &e, nil
}

// compile-time interface check
var _ TimeEntryRepository = (*SQLTimeEntryRepo)(nil)
