package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hitoshi/timesheet/internal/config"
	"github.com/hitoshi/timesheet/internal/report"
	"github.com/hitoshi/timesheet/internal/seed"
	"github.com/hitoshi/timesheet/internal/stats"
	"github.com/hitoshi/timesheet/internal/user"
)

const reportDateLayout = "2006-01-02"

// reportOptions はreportサブコマンドのフラグ。
type reportOptions struct {
	UserID int64
	Range  string
	Start  string
	End    string
}

// resolve は集計期間を決める。既定は今週（月曜0時から現在まで）で、
// --rangeで置き換え、--start/--endが指定されていればさらに上書きする。
func (o reportOptions) resolve(now time.Time, loc *time.Location) (start, end time.Time, err error) {
	start, end = stats.DefaultRange(now, loc)

	if o.Range != "" {
		preset, err := stats.ParsePreset(o.Range)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start, end = preset.Resolve(now, loc)
	}

	if o.Start != "" {
		t, err := time.ParseInLocation(reportDateLayout, o.Start, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", o.Start)
		}
		start = t
	}
	if o.End != "" {
		t, err := time.ParseInLocation(reportDateLayout, o.End, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q: expected YYYY-MM-DD", o.End)
		}
		end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is after end %s", start.Format(reportDateLayout), end.Format(reportDateLayout))
	}
	return start, end, nil
}

// runReport は指定ユーザーと期間の集計結果を表形式で出力する。
func runReport(ctx context.Context, cfg *config.Config, out io.Writer, opts reportOptions) error {
	start, end, err := opts.resolve(time.Now(), cfg.Location)
	if err != nil {
		return err
	}

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	// メモリバックエンドは起動ごとに空になるため、設定に従いサンプルデータを入れてから集計する
	if cfg.DataBackend == config.BackendMemory && cfg.SeedOnStart {
		if _, err := seed.NewSeeder(c.store, slog.Default()).Run(ctx); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
	}

	u, err := user.NewService(c.store.Users()).Get(ctx, opts.UserID)
	if err != nil {
		return err
	}

	result, err := stats.NewService(c.store, cfg.DefaultHourlyRate, cfg.Location, c.collector).
		GetStats(ctx, opts.UserID, start, end)
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, report.Render(result, report.Options{User: u, Start: start, End: end}))
	return err
}
