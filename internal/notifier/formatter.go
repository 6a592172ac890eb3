package notifier

import (
	"fmt"
	"html"
	"strings"

	"TrendScreener/internal/model"
	"TrendScreener/internal/pipeline"
	"TrendScreener/internal/screener"
)

// FormatRunReport formats a finished batch run and its top picks.
func FormatRunReport(rep *pipeline.Report, recs []model.Recommendation) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>TrendScreener daily run</b> | %s\n\n", rep.FinishedAt.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Screened: %d | Insufficient: %d | Failed: %d\n",
		rep.Screened, rep.Insufficient, rep.Failed))
	source := "rules"
	if rep.UsingModel {
		source = "model with rule fallback"
	}
	b.WriteString(fmt.Sprintf("Signals: %s\n", source))
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n\n", rep.RunID))

	b.WriteString(FormatRecommendations(recs))

	if failed := failedSymbols(rep); len(failed) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ Failed: %s\n", html.EscapeString(strings.Join(failed, ", "))))
	}
	return b.String()
}

func failedSymbols(rep *pipeline.Report) []string {
	var out []string
	for _, o := range rep.Outcomes {
		if o.Outcome == pipeline.OutcomeFailed {
			out = append(out, o.Symbol)
		}
	}
	return out
}

// FormatRecommendations formats the consensus ranking.
func FormatRecommendations(recs []model.Recommendation) string {
	if len(recs) == 0 {
		return "🏆 <b>Top picks</b>\nNo symbol cleared the screening floor.\n"
	}
	var b strings.Builder
	b.WriteString("🏆 <b>Top picks</b>\n")
	for i, r := range recs {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s (%d) | passed %d/%d | conf %.0f%%\n",
			i+1, html.EscapeString(r.Symbol), r.Label, r.ConsensusScore,
			r.ScreeningScore, model.TotalCriteria, r.Confidence*100))
		for _, e := range r.Experts {
			b.WriteString(fmt.Sprintf("   %s %d: %s\n", e.Expert, e.Score, html.EscapeString(e.Rationale)))
		}
	}
	return b.String()
}

// FormatSignal formats one signal with its indicator snapshot.
func FormatSignal(sig *model.Signal) string {
	var b strings.Builder
	ind := sig.Indicators
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> %s | %s\n\n", html.EscapeString(sig.Symbol), sig.Value, sig.Date.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Confidence: %.0f%% (%s)\n", sig.Confidence*100, sig.Source))
	b.WriteString(fmt.Sprintf("Price: %.2f\n", ind.Price))
	b.WriteString(fmt.Sprintf("RSI: %.1f\n", ind.RSI))
	b.WriteString(fmt.Sprintf("MACD: %.3f / %.3f (hist %+.3f)\n", ind.MACD, ind.MACDSignal, ind.MACDHistogram))
	b.WriteString(fmt.Sprintf("Bollinger: %.2f / %.2f / %.2f\n", ind.BollingerLower, ind.BollingerMiddle, ind.BollingerUpper))
	b.WriteString(fmt.Sprintf("MA20 %.2f vs MA50 %.2f\n", ind.ShortMA, ind.MediumMA))
	b.WriteString(fmt.Sprintf("Ichimoku: tenkan %.2f kijun %.2f cloud %.2f~%.2f\n", ind.Tenkan, ind.Kijun, ind.SenkouA, ind.SenkouB))
	b.WriteString(fmt.Sprintf("OBV: %d\n", ind.OBV))
	return b.String()
}

// FormatInconsistencies formats the read-side consistency check.
func FormatInconsistencies(found []screener.Inconsistency) string {
	if len(found) == 0 {
		return "✅ All stored records are consistent."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>%d inconsistent records</b>\n", len(found)))
	for _, f := range found {
		b.WriteString(html.EscapeString(f.String()) + "\n")
	}
	return b.String()
}

// FormatHelp lists the chat commands.
func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/top - latest consensus ranking\n" +
		"/signal SYMBOL - latest signal for a symbol\n" +
		"/status - last run and model state\n" +
		"/check - stored record consistency\n" +
		"/help - this message"
}
