package stats

import (
	"fmt"
	"time"
)

// Preset は集計期間のプリセット名。
type Preset string

// 集計期間プリセット。週は月曜始まり。
const (
	PresetThisWeek  Preset = "this_week"
	PresetLastWeek  Preset = "last_week"
	PresetThisMonth Preset = "this_month"
	PresetLastMonth Preset = "last_month"
)

// ParsePreset は文字列をPresetに変換する。未知の値はエラー。
func ParsePreset(s string) (Preset, error) {
	switch p := Preset(s); p {
	case PresetThisWeek, PresetLastWeek, PresetThisMonth, PresetLastMonth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown range preset: %q", s)
	}
}

// StartOfWeek はtを含む週の月曜0時（loc基準）を返す。
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	offset := int(t.Weekday())
	if offset == 0 {
		offset = 7
	}
	monday := t.AddDate(0, 0, -offset+1)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc)
}

// DefaultRange は期間指定がない場合の集計範囲を返す。
// 開始は直近の月曜0時（当日が月曜ならその日の0時）、終了はnow。
func DefaultRange(now time.Time, loc *time.Location) (start, end time.Time) {
	return StartOfWeek(now, loc), now
}

// Resolve はプリセットの期間を返す。終了は最終日の23:59:59.999999999。
func (p Preset) Resolve(now time.Time, loc *time.Location) (start, end time.Time) {
	switch p {
	case PresetLastWeek:
		start = StartOfWeek(now, loc).AddDate(0, 0, -7)
		end = start.AddDate(0, 0, 7)
	case PresetThisMonth:
		n := now.In(loc)
		start = time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	case PresetLastMonth:
		n := now.In(loc)
		end = time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, loc)
		start = end.AddDate(0, -1, 0)
	default:
		start = StartOfWeek(now, loc)
		end = start.AddDate(0, 0, 7)
	}
	return start, end.Add(-time.Nanosecond)
}
