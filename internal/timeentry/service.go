// Package timeentry は工数記録のドメインロジックを提供する。
package timeentry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/timesheet/internal/events"
	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/repository"
	"github.com/hitoshi/timesheet/internal/security"
)

// Params は工数記録作成・更新のリクエスト値。
// Date と Duration は必須で、IsBillable 未指定時はtrueとする。
type Params struct {
	ProjectID  int64
	UserID     int64
	Task       string
	Date       *time.Time
	Duration   *int
	Notes      *string
	IsBillable *bool
}

// MutationRecorder は更新操作のメトリクスを記録するインターフェース。
type MutationRecorder interface {
	RecordMutation(entity, action string)
}

// Service は工数記録のサービス層。
type Service struct {
	entries   repository.TimeEntryRepository
	projects  repository.ProjectRepository
	users     repository.UserRepository
	sanitizer security.TextSanitizer
	emitter   *events.Emitter
	recorder  MutationRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	entries repository.TimeEntryRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	sanitizer security.TextSanitizer,
	emitter *events.Emitter,
	recorder MutationRecorder,
) *Service {
	return &Service{
		entries:   entries,
		projects:  projects,
		users:     users,
		sanitizer: sanitizer,
		emitter:   emitter,
		recorder:  recorder,
	}
}

// List は条件に一致する工数記録を日付の新しい順に返す。
func (s *Service) List(ctx context.Context, filter repository.TimeEntryFilter) ([]model.TimeEntry, error) {
	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("工数記録一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// Get は指定IDの工数記録を返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.TimeEntry, error) {
	e, err := s.entries.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("工数記録の取得に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewTimeEntryNotFoundError(id)
	}
	return e, nil
}

// Create は入力を検証して工数記録を作成する。
func (s *Service) Create(ctx context.Context, params Params) (*model.TimeEntry, error) {
	in, err := s.resolve(ctx, params)
	if err != nil {
		return nil, err
	}

	e, err := s.entries.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("工数記録の作成に失敗しました: %w", err)
	}

	slog.Info("time entry created",
		slog.Int64("time_entry_id", e.ID),
		slog.Int64("project_id", e.ProjectID),
		slog.Int64("user_id", e.UserID),
		slog.Int("duration", e.Duration),
	)
	s.afterMutation(ctx, "create", events.TimeEntryCreated, e.ID)
	return e, nil
}

// Update は工数記録を全置換で更新する。
// 対象が存在しない場合は何も変更せずTIME_ENTRY_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, id int64, params Params) (*model.TimeEntry, error) {
	in, err := s.resolve(ctx, params)
	if err != nil {
		return nil, err
	}

	e, err := s.entries.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("工数記録の更新に失敗しました: %w", err)
	}
	if e == nil {
		return nil, model.NewTimeEntryNotFoundError(id)
	}

	slog.Info("time entry updated", slog.Int64("time_entry_id", id))
	s.afterMutation(ctx, "update", events.TimeEntryUpdated, id)
	return e, nil
}

// Delete は工数記録を削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.entries.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("工数記録の削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewTimeEntryNotFoundError(id)
	}

	slog.Info("time entry deleted", slog.Int64("time_entry_id", id))
	s.afterMutation(ctx, "delete", events.TimeEntryDeleted, id)
	return nil
}

// resolve は入力を検証し、参照先のプロジェクトとユーザーの存在を確認する。
// 形式エラーがあれば参照先の確認は行わない。
func (s *Service) resolve(ctx context.Context, params Params) (model.TimeEntryInput, error) {
	in := model.TimeEntryInput{
		ProjectID:  params.ProjectID,
		UserID:     params.UserID,
		IsBillable: true,
	}
	if params.IsBillable != nil {
		in.IsBillable = *params.IsBillable
	}

	var fields []model.FieldError
	if in.ProjectID <= 0 {
		fields = append(fields, model.FieldError{Field: "projectId", Message: "プロジェクトIDは必須です。"})
	}
	if in.UserID <= 0 {
		fields = append(fields, model.FieldError{Field: "userId", Message: "ユーザーIDは必須です。"})
	}
	task, ok := s.clean("task", params.Task, &fields)
	if ok && task == "" {
		fields = append(fields, model.FieldError{Field: "task", Message: "作業内容は必須です。"})
	}
	in.Task = task
	if params.Date == nil || params.Date.IsZero() {
		fields = append(fields, model.FieldError{Field: "date", Message: "日付は必須です。"})
	} else {
		in.Date = *params.Date
	}
	switch {
	case params.Duration == nil:
		fields = append(fields, model.FieldError{Field: "duration", Message: "作業時間（分）は必須です。"})
	case *params.Duration < 0:
		fields = append(fields, model.FieldError{Field: "duration", Message: "作業時間は0分以上で指定してください。"})
	default:
		in.Duration = *params.Duration
	}
	in.Notes = s.cleanOptional("notes", params.Notes, &fields)
	if len(fields) > 0 {
		return model.TimeEntryInput{}, model.NewValidationError(fields)
	}

	project, err := s.projects.FindByID(ctx, in.ProjectID)
	if err != nil {
		return model.TimeEntryInput{}, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		fields = append(fields, model.FieldError{Field: "projectId", Message: "指定されたプロジェクトが存在しません。"})
	}
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return model.TimeEntryInput{}, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		fields = append(fields, model.FieldError{Field: "userId", Message: "指定されたユーザーが存在しません。"})
	}
	if len(fields) > 0 {
		return model.TimeEntryInput{}, model.NewValidationError(fields)
	}

	return in, nil
}

// clean は前後の空白を除いた値を返す。
// HTMLタグを含む場合はfieldのエラーを追加してfalseを返す。
func (s *Service) clean(field, v string, fields *[]model.FieldError) (string, bool) {
	if s.sanitizer == nil {
		return strings.TrimSpace(v), true
	}
	cleaned, err := s.sanitizer.Clean(v)
	if err != nil {
		*fields = append(*fields, model.FieldError{Field: field, Message: "HTMLタグは使用できません。"})
		return "", false
	}
	return cleaned, true
}

func (s *Service) cleanOptional(field string, v *string, fields *[]model.FieldError) *string {
	if v == nil {
		return nil
	}
	cleaned, ok := s.clean(field, *v, fields)
	if !ok || cleaned == "" {
		return nil
	}
	return &cleaned
}

func (s *Service) afterMutation(ctx context.Context, action string, eventType events.Type, id int64) {
	if s.recorder != nil {
		s.recorder.RecordMutation("time_entry", action)
	}
	s.emitter.Emit(ctx, eventType, id)
}
