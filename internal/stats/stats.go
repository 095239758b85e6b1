// Package stats は工数記録の期間集計を提供する。
//
// 集計結果はダッシュボードとレポートで使われる。永続化はせず、
// リクエストごとに工数記録から計算し直す。
package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/hitoshi/timesheet/internal/model"
	"github.com/hitoshi/timesheet/internal/repository"
)

// DefaultHourlyRate はユーザーに単価が設定されていない場合の時間単価。
const DefaultHourlyRate = 150

// dayLabels は月曜始まりの曜日ラベル。
var dayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Recorder は集計処理のメトリクスを記録するインターフェース。
type Recorder interface {
	RecordStatsComputation(duration time.Duration)
}

// Service は工数記録を集計するサービス層。
type Service struct {
	store       repository.Store
	defaultRate int
	loc         *time.Location
	recorder    Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
// defaultRateが0以下の場合はDefaultHourlyRate、locがnilの場合はtime.Localを使う。
// recorderはnilでもよい。
func NewService(store repository.Store, defaultRate int, loc *time.Location, recorder Recorder) *Service {
	if defaultRate <= 0 {
		defaultRate = DefaultHourlyRate
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:       store,
		defaultRate: defaultRate,
		loc:         loc,
		recorder:    recorder,
	}
}

// Location は曜日判定に使うタイムゾーンを返す。
func (s *Service) Location() *time.Location {
	return s.loc
}

// projectMinutes はプロジェクトごとの合計分数。
type projectMinutes struct {
	project *model.Project
	minutes int
}

// GetStats は指定ユーザーの [start, end] 期間の集計を返す。
// 存在しないユーザーはエラーにせず、デフォルト単価で計算する。
// startがendより後の場合は該当する記録がなく、すべて0の集計になる。
// 工数記録・ユーザー・プロジェクトは同一時点のスナップショットから読む。
func (s *Service) GetStats(ctx context.Context, userID int64, start, end time.Time) (*model.Stats, error) {
	began := time.Now()
	if s.recorder != nil {
		defer func() { s.recorder.RecordStatsComputation(time.Since(began)) }()
	}

	var result *model.Stats
	err := s.store.View(ctx, func(r repository.Repositories) error {
		var err error
		result, err = s.compute(ctx, r, userID, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) compute(ctx context.Context, r repository.Repositories, userID int64, start, end time.Time) (*model.Stats, error) {
	entries, err := r.TimeEntries().List(ctx, repository.TimeEntryFilter{
		UserID:    &userID,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("工数記録の取得に失敗しました: %w", err)
	}

	user, err := r.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	var totalMinutes, billableMinutes int
	for _, e := range entries {
		totalMinutes += e.Duration
		if e.IsBillable {
			billableMinutes += e.Duration
		}
	}

	rate := s.defaultRate
	if user != nil && user.HourlyRate != nil && *user.HourlyRate > 0 {
		rate = *user.HourlyRate
	}

	result := &model.Stats{
		WeeklyHours:    round1(float64(totalMinutes) / 60),
		BillableHours:  round1(float64(billableMinutes) / 60),
		BillableAmount: round2(float64(billableMinutes) / 60 * float64(rate)),
	}
	if totalMinutes > 0 {
		result.UtilizationRate = round1(float64(billableMinutes) / float64(totalMinutes) * 100)
	}

	breakdown, err := s.projectBreakdown(ctx, r.Projects(), entries, totalMinutes)
	if err != nil {
		return nil, err
	}
	result.ProjectBreakdown = breakdown
	result.DailyActivity = s.dailyActivity(entries)

	return result, nil
}

// projectBreakdown はプロジェクト別の時間と構成比を分数の多い順に返す。
// 削除済みなどで参照先プロジェクトが見つからない行は除外する。
func (s *Service) projectBreakdown(ctx context.Context, projects repository.ProjectRepository, entries []model.TimeEntry, totalMinutes int) ([]model.ProjectStats, error) {
	groups := make(map[int64]*projectMinutes)
	for _, e := range entries {
		g, ok := groups[e.ProjectID]
		if !ok {
			p, err := projects.FindByID(ctx, e.ProjectID)
			if err != nil {
				return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
			}
			g = &projectMinutes{project: p}
			groups[e.ProjectID] = g
		}
		g.minutes += e.Duration
	}

	rows := make([]projectMinutes, 0, len(groups))
	for _, g := range groups {
		if g.project == nil {
			continue
		}
		rows = append(rows, *g)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].minutes != rows[j].minutes {
			return rows[i].minutes > rows[j].minutes
		}
		return rows[i].project.ID < rows[j].project.ID
	})

	breakdown := make([]model.ProjectStats, len(rows))
	for i, r := range rows {
		var pct float64
		if totalMinutes > 0 {
			pct = round1(float64(r.minutes) / float64(totalMinutes) * 100)
		}
		breakdown[i] = model.ProjectStats{
			ID:         r.project.ID,
			Name:       r.project.Name,
			Color:      r.project.Color,
			Hours:      round2(float64(r.minutes) / 60),
			Percentage: pct,
		}
	}
	return breakdown, nil
}

// dailyActivity は月曜から日曜までの7日分の時間を返す。記録のない曜日は0。
func (s *Service) dailyActivity(entries []model.TimeEntry) []model.DayActivity {
	var minutes [7]int
	for _, e := range entries {
		minutes[weekdayIndex(e.Date.In(s.loc))] += e.Duration
	}

	days := make([]model.DayActivity, len(dayLabels))
	for i, label := range dayLabels {
		days[i] = model.DayActivity{Day: label, Hours: round2(float64(minutes[i]) / 60)}
	}
	return days
}

// weekdayIndex は月曜を0、日曜を6とする曜日番号を返す。
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func round1(x float64) float64 { return roundTo(x, 1) }
func round2(x float64) float64 { return roundTo(x, 2) }

// roundTo は小数点以下places桁で四捨五入する（0から遠い方向）。
func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
