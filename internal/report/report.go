// Package report は集計結果を端末向けのテキストレポートに整形する。
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hitoshi/timesheet/internal/model"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
	barWidth    = 20
	colGap      = 2
	dateLayout  = "2006-01-02"
)

var (
	colorHeader = lipgloss.Color("#fe8019")
	colorDim    = lipgloss.Color("#928374")
	colorAccent = lipgloss.Color("#0ea5e9")

	styleTitle  = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleHeader = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorDim)
	styleLabel  = lipgloss.NewStyle().Foreground(colorDim).Width(18)
	styleValue  = lipgloss.NewStyle().Bold(true)
	styleBox    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			PaddingLeft(2).
			PaddingRight(2)
)

// Options はレポート見出しに表示する付帯情報。
type Options struct {
	User  *model.User
	Start time.Time
	End   time.Time
}

// Render は集計結果をサマリ・プロジェクト内訳・曜日別稼働の3セクションに整形する。
func Render(stats *model.Stats, opts Options) string {
	if stats == nil {
		stats = &model.Stats{}
	}

	var b strings.Builder

	b.WriteString(styleTitle.Render("TIMESHEET REPORT"))
	b.WriteString("\n")
	b.WriteString(styleDim.Render(headline(opts)))
	b.WriteString("\n\n")

	b.WriteString(styleBox.Render(renderSummary(stats)))
	b.WriteString("\n\n")

	b.WriteString(section("Project breakdown"))
	if len(stats.ProjectBreakdown) == 0 {
		b.WriteString(styleDim.Render("No entries in this period."))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(stats.ProjectBreakdown))
		for _, p := range stats.ProjectBreakdown {
			rows = append(rows, []string{
				swatch(p.Color) + " " + p.Name,
				formatHours(p.Hours),
				fmt.Sprintf("%.1f%%", p.Percentage),
				renderBar(p.Percentage/100, barWidth, p.Color),
			})
		}
		b.WriteString(renderTable([]string{"PROJECT", "HOURS", "SHARE", ""}, rows))
	}
	b.WriteString("\n")

	b.WriteString(section("Daily activity"))
	maxHours := 0.0
	for _, d := range stats.DailyActivity {
		if d.Hours > maxHours {
			maxHours = d.Hours
		}
	}
	rows := make([][]string, 0, len(stats.DailyActivity))
	for _, d := range stats.DailyActivity {
		ratio := 0.0
		if maxHours > 0 {
			ratio = d.Hours / maxHours
		}
		rows = append(rows, []string{d.Day, formatHours(d.Hours), renderBar(ratio, barWidth, "")})
	}
	b.WriteString(renderTable([]string{"DAY", "HOURS", ""}, rows))

	return b.String()
}

func headline(opts Options) string {
	var parts []string
	if opts.User != nil {
		parts = append(parts, fmt.Sprintf("%s <%s>", opts.User.Name, opts.User.Email))
	}
	if !opts.Start.IsZero() && !opts.End.IsZero() {
		parts = append(parts, fmt.Sprintf("%s → %s", opts.Start.Format(dateLayout), opts.End.Format(dateLayout)))
	}
	return strings.Join(parts, "  ·  ")
}

func renderSummary(stats *model.Stats) string {
	lines := []string{
		styleLabel.Render("Total hours") + styleValue.Render(formatHours(stats.WeeklyHours)),
		styleLabel.Render("Billable hours") + styleValue.Render(formatHours(stats.BillableHours)),
		styleLabel.Render("Billable amount") + styleValue.Render(fmt.Sprintf("$%.2f", stats.BillableAmount)),
		styleLabel.Render("Utilization") + styleValue.Render(fmt.Sprintf("%.1f%%", stats.UtilizationRate)),
	}
	return strings.Join(lines, "\n")
}

func section(title string) string {
	upper := strings.ToUpper(title)
	return styleHeader.Render(upper) + "\n" + styleDim.Render(strings.Repeat("─", len(upper))) + "\n"
}

func formatHours(h float64) string {
	return fmt.Sprintf("%.1fh", h)
}

// swatch はプロジェクトカラーの色見本。色が未設定なら既定色を使う。
func swatch(color string) string {
	if color == "" {
		color = model.DefaultProjectColor
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}

// renderBar はratio（0〜1）をwidth文字の棒グラフにする。
func renderBar(ratio float64, width int, color string) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio*float64(width) + 0.5)
	if filled > width {
		filled = width
	}

	fg := colorAccent
	if color != "" {
		fg = lipgloss.Color(color)
	}
	return lipgloss.NewStyle().Foreground(fg).Render(strings.Repeat(filledBlock, filled)) +
		styleDim.Render(strings.Repeat(emptyBlock, width-filled))
}

// renderTable はヘッダー区切り線付きで列を揃えた表を描画する。
// 列幅はANSIエスケープを除いた表示幅で計算する。
func renderTable(headers []string, rows [][]string) string {
	cols := len(headers)
	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style *lipgloss.Style) {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
			if i < cols-1 {
				b.WriteString(strings.Repeat(" ", pad+colGap))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers, &styleHeader)
	for i, w := range widths {
		b.WriteString(styleDim.Render(strings.Repeat("─", w)))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row, nil)
	}

	return b.String()
}
