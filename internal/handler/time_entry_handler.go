package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/timesheet/internal/middleware"
	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/repository"
	"github.com/hitoshi/timesheet/internal/timeentry"
)

// TimeEntryServiceInterface は工数記録ハンドラーが必要とするサービスインターフェース。
type TimeEntryServiceInterface interface {
	// List は条件に一致する工数記録を返す。
	List(ctx context.Context, filter repository.TimeEntryFilter) ([]model.TimeEntry, error)
	// Get は工数記録を取得する。存在しない場合はTIME_ENTRY_NOT_FOUND。
	Get(ctx context.Context, id int64) (*model.TimeEntry, error)
	// Create は工数記録を作成する。
	Create(ctx context.Context, params timeentry.Params) (*model.TimeEntry, error)
	// Update は工数記録を全置換で更新する。
	Update(ctx context.Context, id int64, params timeentry.Params) (*model.TimeEntry, error)
	// Delete は工数記録を削除する。
	Delete(ctx context.Context, id int64) error
}

var _ TimeEntryServiceInterface = (*timeentry.Service)(nil)

// TimeEntryHandler は工数記録のHTTPハンドラー。
type TimeEntryHandler struct {
	service TimeEntryServiceInterface
	loc     *time.Location
}

// NewTimeEntryHandler はTimeEntryHandlerを生成する。
// locは日付のみで指定された値を解釈するタイムゾーン。
func NewTimeEntryHandler(service TimeEntryServiceInterface, loc *time.Location) *TimeEntryHandler {
	if loc == nil {
		loc = time.Local
	}
	return &TimeEntryHandler{
		service: service,
		loc:     loc,
	}
}

// timeEntryRequest は工数記録の作成・更新リクエストのボディ。
// userIdを省略した場合は認証済み利用者のIDを使う。
type timeEntryRequest struct {
	ProjectID  int64   `json:"projectId"`
	UserID     int64   `json:"userId"`
	Task       string  `json:"task"`
	Date       *string `json:"date"`
	Duration   *int    `json:"duration"`
	Notes      *string `json:"notes"`
	IsBillable *bool   `json:"isBillable"`
}

// params はリクエストをサービスの入力に変換する。日付が解析できない場合は検証エラーを返す。
func (h *TimeEntryHandler) params(r *http.Request, req timeEntryRequest) (timeentry.Params, error) {
	params := timeentry.Params{
		ProjectID:  req.ProjectID,
		UserID:     req.UserID,
		Task:       req.Task,
		Duration:   req.Duration,
		Notes:      req.Notes,
		IsBillable: req.IsBillable,
	}
	if params.UserID == 0 {
		if userID, ok := middleware.UserIDFromContext(r.Context()); ok {
			params.UserID = userID
		}
	}
	if req.Date != nil && *req.Date != "" {
		d, ok := parseDate(*req.Date, h.loc, false)
		if !ok {
			return timeentry.Params{}, model.NewValidationError([]model.FieldError{
				{Field: "date", Message: "日付はRFC3339またはYYYY-MM-DD形式で指定してください。"},
			})
		}
		params.Date = &d
	}
	return params, nil
}

// ListTimeEntries は工数記録の一覧を返す。
// GET /api/time-entries?userId=&projectId=&startDate=&endDate=
func (h *TimeEntryHandler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	var (
		filter repository.TimeEntryFilter
		err    error
	)
	if filter.UserID, err = parseOptionalID(r, "userId"); err != nil {
		handleServiceError(w, err)
		return
	}
	if filter.ProjectID, err = parseOptionalID(r, "projectId"); err != nil {
		handleServiceError(w, err)
		return
	}
	if filter.StartDate, err = parseOptionalDate(r, "startDate", h.loc, false); err != nil {
		handleServiceError(w, err)
		return
	}
	if filter.EndDate, err = parseOptionalDate(r, "endDate", h.loc, true); err != nil {
		handleServiceError(w, err)
		return
	}

	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetTimeEntry は工数記録を1件返す。
// GET /api/time-entries/{id}
func (h *TimeEntryHandler) GetTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// CreateTimeEntry は工数記録を作成する。
// POST /api/time-entries
func (h *TimeEntryHandler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req timeEntryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	params, err := h.params(r, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entry, err := h.service.Create(r.Context(), params)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// UpdateTimeEntry は工数記録を全置換で更新する。
// PUT /api/time-entries/{id}
func (h *TimeEntryHandler) UpdateTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req timeEntryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	params, err := h.params(r, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entry, err := h.service.Update(r.Context(), id, params)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// DeleteTimeEntry は工数記録を削除する。
// DELETE /api/time-entries/{id}
func (h *TimeEntryHandler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
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
