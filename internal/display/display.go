// Package display renders screening results as terminal tables.
package display

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"TrendScreener/internal/model"
	"TrendScreener/internal/pipeline"
	"TrendScreener/internal/screener"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	buyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	holdStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	sellStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func labelStyle(l model.Label) lipgloss.Style {
	switch l {
	case model.LabelStrongBuy, model.LabelBuy:
		return buyStyle
	case model.LabelHold:
		return holdStyle
	default:
		return sellStyle
	}
}

func signalStyle(v model.SignalValue) lipgloss.Style {
	switch v {
	case model.SignalBuy:
		return buyStyle
	case model.SignalSell:
		return sellStyle
	default:
		return holdStyle
	}
}

// Recommendations renders the consensus ranking.
func Recommendations(recs []model.Recommendation) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🏆 Top picks"))
	b.WriteString("\n")
	if len(recs) == 0 {
		b.WriteString(mutedStyle.Render("No symbol cleared the screening floor."))
		b.WriteString("\n")
		return b.String()
	}

	headers := []string{"#", "Symbol", "Label", "Consensus", "Passed"}
	for _, e := range recs[0].Experts {
		headers = append(headers, e.Expert)
	}
	headers = append(headers, "Confidence")

	t := newTable(headers...)
	for i, r := range recs {
		row := []string{
			strconv.Itoa(i + 1),
			r.Symbol,
			labelStyle(r.Label).Render(string(r.Label)),
			strconv.Itoa(r.ConsensusScore),
			fmt.Sprintf("%d/%d", r.ScreeningScore, model.TotalCriteria),
		}
		for _, e := range r.Experts {
			row = append(row, strconv.Itoa(e.Score))
		}
		row = append(row, fmt.Sprintf("%.0f%%", r.Confidence*100))
		t.Row(row...)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// Signals renders one row per signal.
func Signals(sigs []*model.Signal) string {
	t := newTable("Symbol", "Date", "Signal", "Confidence", "Source", "Price", "RSI", "MACD hist", "OBV")
	for _, s := range sigs {
		ind := s.Indicators
		t.Row(
			s.Symbol,
			s.Date.Format(model.DateLayout),
			signalStyle(s.Value).Render(s.Value.String()),
			fmt.Sprintf("%.0f%%", s.Confidence*100),
			string(s.Source),
			fmt.Sprintf("%.2f", ind.Price),
			fmt.Sprintf("%.1f", ind.RSI),
			fmt.Sprintf("%+.3f", ind.MACDHistogram),
			strconv.FormatInt(ind.OBV, 10),
		)
	}
	return titleStyle.Render("📈 Signals") + "\n" + t.Render() + "\n"
}

// Criteria renders the pass/fail grid of one screening record.
func Criteria(r *model.ScreeningRecord) string {
	t := newTable("Criterion", "Result")
	for i, v := range r.Criteria.Values() {
		mark := warningStyle.Render("✗")
		if v {
			mark = buyStyle.Render("✓")
		}
		t.Row(model.CriteriaNames[i], mark)
	}
	rs := "n/a"
	if r.RelativeStrength != nil {
		rs = fmt.Sprintf("%+.2f", *r.RelativeStrength)
	}
	title := fmt.Sprintf("🔎 %s %s | passed %d/%d | RS %s",
		r.Symbol, r.Date.Format(model.DateLayout), r.PassedCriteria, r.TotalCriteria, rs)
	return titleStyle.Render(title) + "\n" + t.Render() + "\n"
}

// RunSummary renders the per-symbol outcome of a run.
func RunSummary(rep *pipeline.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("📊 Run %s", rep.RunID)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Screened: %d | Insufficient: %d | Failed: %d\n",
		rep.Screened, rep.Insufficient, rep.Failed))
	for _, o := range rep.Outcomes {
		if o.Outcome == pipeline.OutcomeScreened {
			continue
		}
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s %s: %v", o.Symbol, o.Outcome, o.Err)))
		b.WriteString("\n")
	}
	return b.String()
}

// Inconsistencies renders the consistency check result.
func Inconsistencies(found []screener.Inconsistency) string {
	if len(found) == 0 {
		return buyStyle.Render("✅ All stored records are consistent.") + "\n"
	}
	t := newTable("Symbol", "Date", "Stored", "Recount")
	for _, f := range found {
		t.Row(f.Symbol, f.Date.Format(model.DateLayout), strconv.Itoa(f.Stored), strconv.Itoa(f.Recount))
	}
	return warningStyle.Render(fmt.Sprintf("⚠️ %d inconsistent records", len(found))) + "\n" + t.Render() + "\n"
}

// Print writes a rendered block to w.
func Print(w io.Writer, s string) {
	fmt.Fprint(w, s)
}
