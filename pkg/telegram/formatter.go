package telegram

import (
	"fmt"
	"strings"
	"time"
)

// FormatSweepSummary renders a sweep result as a Markdown message.
func FormatSweepSummary(startDate, endDate time.Time, tickers, total, withData, fallback int, duration time.Duration) string {
	var sb strings.Builder
	sb.WriteString("*Sentiment Sweep Completed*\n\n")
	sb.WriteString(fmt.Sprintf("Range: `%s` to `%s`\n", startDate.Format(time.DateOnly), endDate.Format(time.DateOnly)))
	sb.WriteString(fmt.Sprintf("Tickers: %d\n", tickers))
	sb.WriteString(fmt.Sprintf("Signals: %d (%d with data, %d fallback)\n", total, withData, fallback))
	sb.WriteString(fmt.Sprintf("Duration: %s\n", duration.Round(time.Second)))
	return sb.String()
}
