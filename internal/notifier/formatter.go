package notifier

import (
	"fmt"
	"html"
	"strings"

	"BTCForecaster/internal/model"
)

// FormatReport renders the narrative as the plain-text report document.
func FormatReport(n model.Narrative) string {
	return strings.Join(n.Lines, "\n")
}

// FormatTelegram renders a run result as an HTML Telegram message.
func FormatTelegram(res *model.RunResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>BTC Forecast</b> | %s\n\n", res.Forecast.AsOf.UTC().Format("2006-01-02")))
	for _, line := range res.Narrative.Lines {
		b.WriteString(html.EscapeString(line))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n<i>run %s</i>", html.EscapeString(res.RunID)))
	return b.String()
}
