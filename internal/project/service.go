// Package project はプロジェクト管理のドメインロジックを提供する。
package project

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/hitoshi/timesheet/internal/events"
	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/repository"
	"github.com/hitoshi/timesheet/internal/security"
)

// UnassignedClient はクライアント未設定のプロジェクトをまとめるグループ名。
const UnassignedClient = "Unassigned"

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Params はプロジェクト作成・更新のリクエスト値。
// nilの項目は作成時も更新時もデフォルト値で補完する（全置換）。
type Params struct {
	Name        string
	Description *string
	Client      *string
	Color       *string
	IsActive    *bool
}

// MutationRecorder は更新操作のメトリクスを記録するインターフェース。
type MutationRecorder interface {
	RecordMutation(entity, action string)
}

// Service はプロジェクト管理のサービス層。
type Service struct {
	repo      repository.ProjectRepository
	sanitizer security.TextSanitizer
	emitter   *events.Emitter
	recorder  MutationRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
// sanitizer以外はnilでもよい。
func NewService(
	repo repository.ProjectRepository,
	sanitizer security.TextSanitizer,
	emitter *events.Emitter,
	recorder MutationRecorder,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		emitter:   emitter,
		recorder:  recorder,
	}
}

// List は全プロジェクトを作成順に返す。
func (s *Service) List(ctx context.Context) ([]model.Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// Get は指定IDのプロジェクトを返す。存在しない場合はPROJECT_NOT_FOUND。
func (s *Service) Get(ctx context.Context, id int64) (*model.Project, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}
	return p, nil
}

// Create は入力を検証してプロジェクトを作成する。
func (s *Service) Create(ctx context.Context, params Params) (*model.Project, error) {
	in, err := s.resolve(params)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	slog.Info("project created",
		slog.Int64("project_id", p.ID),
		slog.String("name", p.Name),
	)
	s.afterMutation(ctx, "create", events.ProjectCreated, p.ID)
	return p, nil
}

// Update はプロジェクトを全置換で更新する。
func (s *Service) Update(ctx context.Context, id int64, params Params) (*model.Project, error) {
	in, err := s.resolve(params)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProjectNotFoundError(id)
	}

	slog.Info("project updated", slog.Int64("project_id", id))
	s.afterMutation(ctx, "update", events.ProjectUpdated, id)
	return p, nil
}

// Delete はプロジェクトと、それに紐づく全工数記録を削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewProjectNotFoundError(id)
	}

	slog.Info("project deleted", slog.Int64("project_id", id))
	s.afterMutation(ctx, "delete", events.ProjectDeleted, id)
	return nil
}

// ListClients はプロジェクトをクライアント名でまとめて返す。
// グループの順序はプロジェクト一覧での初出順。
func (s *Service) ListClients(ctx context.Context) ([]model.ClientGroup, error) {
	projects, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]model.ClientGroup, 0)
	index := make(map[string]int)
	for _, p := range projects {
		name := UnassignedClient
		if p.Client != nil && strings.TrimSpace(*p.Client) != "" {
			name = *p.Client
		}
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, model.ClientGroup{Name: name, Projects: []model.Project{}})
		}
		groups[i].Projects = append(groups[i].Projects, p)
	}
	return groups, nil
}

// resolve は入力を検証し、デフォルト値を補完したリポジトリ入力を返す。
func (s *Service) resolve(params Params) (model.ProjectInput, error) {
	var fields []model.FieldError

	name, ok := s.clean("name", params.Name, &fields)
	if ok && name == "" {
		fields = append(fields, model.FieldError{Field: "name", Message: "プロジェクト名は必須です。"})
	}

	in := model.ProjectInput{
		Name:        name,
		Description: s.cleanOptional("description", params.Description, &fields),
		Client:      s.cleanOptional("client", params.Client, &fields),
		Color:       model.DefaultProjectColor,
		IsActive:    true,
	}
	if params.IsActive != nil {
		in.IsActive = *params.IsActive
	}

	if params.Color != nil {
		color := strings.TrimSpace(*params.Color)
		if !colorPattern.MatchString(color) {
			fields = append(fields, model.FieldError{Field: "color", Message: "色は #RRGGBB 形式で指定してください。"})
		}
		in.Color = color
	}
	if len(fields) > 0 {
		return model.ProjectInput{}, model.NewValidationError(fields)
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

// cleanOptional はnilをそのまま返し、空白のみの値もnilにする。
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
		s.recorder.RecordMutation("project", action)
	}
	s.emitter.Emit(ctx, eventType, id)
}
