package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/stats"
)

// StatsServiceInterface は集計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	// GetStats は指定ユーザーの期間内の集計を返す。
	GetStats(ctx context.Context, userID int64, start, end time.Time) (*model.Stats, error)
	// Location は曜日判定と日付解釈に使うタイムゾーンを返す。
	Location() *time.Location
}

var _ StatsServiceInterface = (*stats.Service)(nil)

// StatsHandler は工数集計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
	now     func() time.Time
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{
		service: service,
		now:     time.Now,
	}
}

// GetStats は工数集計を返す。
// GET /api/stats?userId=&startDate=&endDate=&range=
//
// 期間の決定順序:
//  1. rangeが指定されていればプリセットの期間、なければ今週月曜0時から現在まで
//  2. startDate / endDate が指定されていれば該当する端を上書き
//
// 開始が終了より後になる期間（未来のstartDateのみ指定など）は空の集計を返す。
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	loc := h.service.Location()
	now := h.now()

	userID := defaultUserID
	id, err := parseOptionalID(r, "userId")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if id != nil {
		userID = *id
	}

	start, end := stats.DefaultRange(now, loc)
	if raw := r.URL.Query().Get("range"); raw != "" {
		preset, err := stats.ParsePreset(raw)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidParameterError("range", raw))
			return
		}
		start, end = preset.Resolve(now, loc)
	}

	startDate, err := parseOptionalDate(r, "startDate", loc, false)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if startDate != nil {
		start = *startDate
	}
	endDate, err := parseOptionalDate(r, "endDate", loc, true)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if endDate != nil {
		end = *endDate
	}

	result, err := h.service.GetStats(r.Context(), userID, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
