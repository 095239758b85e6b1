package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	// List は全プロジェクトを返す。
	List(ctx context.Context) ([]model.Project, error)
	// Get はプロジェクトを取得する。存在しない場合はPROJECT_NOT_FOUND。
	Get(ctx context.Context, id int64) (*model.Project, error)
	// Create はプロジェクトを作成する。
	Create(ctx context.Context, params project.Params) (*model.Project, error)
	// Update はプロジェクトを全置換で更新する。
	Update(ctx context.Context, id int64, params project.Params) (*model.Project, error)
	// Delete はプロジェクトと紐づく工数記録を削除する。
	Delete(ctx context.Context, id int64) error
	// ListClients はプロジェクトをクライアント別にまとめて返す。
	ListClients(ctx context.Context) ([]model.ClientGroup, error)
}

var _ ProjectServiceInterface = (*project.Service)(nil)

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{
		service: service,
	}
}

// projectRequest はプロジェクト作成・更新リクエストのボディ。
type projectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Client      *string `json:"client"`
	Color       *string `json:"color"`
	IsActive    *bool   `json:"isActive"`
}

func (req projectRequest) params() project.Params {
	return project.Params{
		Name:        req.Name,
		Description: req.Description,
		Client:      req.Client,
		Color:       req.Color,
		IsActive:    req.IsActive,
	}
}

// ListProjects はプロジェクト一覧を返す。
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// GetProject はプロジェクトを1件返す。
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProject はプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), req.params())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProject はプロジェクトを全置換で更新する。
// PUT /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req projectRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), id, req.params())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject はプロジェクトを削除する。紐づく工数記録も削除される。
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ListClients はクライアント別のプロジェクト一覧を返す。
// GET /api/clients
func (h *ProjectHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListClients(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}
