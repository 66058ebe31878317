package notifier

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"TrendSentinel/internal/model"
)

const timeLayout = "02-01-2006 03:04:05 PM"

func fmtOpt(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

// TradingViewURL returns the TradingView chart link for a Binance symbol.
func TradingViewURL(symbol, timeframe string) string {
	return fmt.Sprintf("https://www.tradingview.com/chart?symbol=%s&interval=%s",
		url.QueryEscape("BINANCE:"+symbol), tradingViewInterval(timeframe))
}

// tradingViewInterval converts an exchange interval such as "4h" to TradingView's
// notation, where intraday intervals are given in minutes.
func tradingViewInterval(timeframe string) string {
	if len(timeframe) < 2 {
		return timeframe
	}
	var n int
	if _, err := fmt.Sscanf(timeframe[:len(timeframe)-1], "%d", &n); err != nil {
		return timeframe
	}
	switch timeframe[len(timeframe)-1] {
	case 'm':
		return fmt.Sprint(n)
	case 'h':
		return fmt.Sprint(n * 60)
	case 'd':
		return fmt.Sprintf("%dD", n)
	case 'w':
		return fmt.Sprintf("%dW", n)
	case 'M':
		return fmt.Sprintf("%dM", n)
	default:
		return timeframe
	}
}

// FormatAlert formats an analysis into a Telegram alert.
func FormatAlert(a *model.Analysis, marker, timeframe string, now time.Time) string {
	m := a.Metrics
	if m == nil {
		m = &model.Metrics{}
	}
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Trading Update for %s%s</b> (%s)\n", a.Symbol, marker, timeframe))
	b.WriteString(fmt.Sprintf("📈 Current Price: %.4f\n", m.CurrentPrice))
	b.WriteString(fmt.Sprintf("📈 Highest Price (%s): %s\n", timeframe, fmtOpt(m.WindowHigh, "%.4f")))
	b.WriteString(fmt.Sprintf("📉 Lowest Price (%s): %s\n", timeframe, fmtOpt(m.WindowLow, "%.4f")))
	b.WriteString(fmt.Sprintf("🔼 Last Candle Buy Volume: %.2f\n", m.BuyVolume))
	b.WriteString(fmt.Sprintf("🔽 Last Candle Sell Volume: %.2f\n", m.SellVolume))
	b.WriteString(fmt.Sprintf("📊 Volume Difference: %.2f\n", m.VolumeDifference))
	b.WriteString(fmt.Sprintf("💰 Volume in Quote Units: %.2f\n", m.VolumeInQuoteUnits))
	b.WriteString(fmt.Sprintf("📈 Volume Percentage: %.2f%%\n", m.VolumePercentage))
	b.WriteString(fmt.Sprintf("📉 Support Level: %s\n", fmtOpt(m.Support, "%.4f")))
	b.WriteString(fmt.Sprintf("📈 Resistance Level: %s\n", fmtOpt(m.Resistance, "%.4f")))
	b.WriteString(fmt.Sprintf("📏 Distance from Support: %s\n", fmtOpt(m.DistanceFromSupport, "%.2f%%")))
	b.WriteString(fmt.Sprintf("📏 Distance from Resistance: %s\n", fmtOpt(m.DistanceFromResistance, "%.2f%%")))
	b.WriteString(fmt.Sprintf("📉 Price Change: %s\n", fmtOpt(m.PriceChangePct, "%.2f%%")))

	c := a.Classification
	if len(a.Trendlines.ResistanceFull) > 0 {
		b.WriteString(fmt.Sprintf("\n🧭 Breakouts: %d | Breakdowns: %d | Touches: %d\n",
			len(c.Breakout), len(c.Breakdown), len(c.Touching)))
	}
	if a.Signals != nil && len(a.Signals.Crossovers) > 0 {
		x := a.Signals.Crossovers[len(a.Signals.Crossovers)-1]
		b.WriteString(fmt.Sprintf("🔀 Last SMA crossover: %s at %.4f (%s)\n",
			x.Side, x.Price, x.Time.Format(timeLayout)))
	}

	b.WriteString(fmt.Sprintf("\nTime: %s\n", now.Format(timeLayout)))
	b.WriteString(fmt.Sprintf(`<a href="%s">TradingView chart</a>`, TradingViewURL(a.Symbol, timeframe)))
	return b.String()
}

// FormatStart formats the message sent when the bot starts.
func FormatStart(symbols []string, timeframe, schedule string) string {
	var b strings.Builder
	b.WriteString("🚀 <b>TrendSentinel started</b>\n\n")
	b.WriteString(fmt.Sprintf("Symbols: %s\n", strings.Join(symbols, ", ")))
	b.WriteString(fmt.Sprintf("Timeframe: %s\n", timeframe))
	b.WriteString(fmt.Sprintf("Schedule: %s\n", schedule))
	return b.String()
}

// FormatBacktest formats crossover backtest results.
func FormatBacktest(results []*model.BacktestResult) string {
	var b strings.Builder
	b.WriteString("🧪 <b>SMA crossover backtest</b>\n\n")
	if len(results) == 0 {
		b.WriteString("No results.\n")
		return b.String()
	}
	for _, r := range results {
		b.WriteString(fmt.Sprintf("%s: %+.2f%% over %d bars, %d trades\n",
			r.Symbol, r.TotalReturn*100, len(r.Rows), r.Trades))
	}
	return b.String()
}

// FormatStatus formats the last run summary.
func FormatStatus(s *model.RunSummary, symbols []string) string {
	var b strings.Builder
	b.WriteString("📦 <b>Status</b>\n\n")
	b.WriteString(fmt.Sprintf("Watching: %s\n", strings.Join(symbols, ", ")))
	if s == nil {
		b.WriteString("No run yet.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Last run: %s (%s)\n", s.StartedAt.Format("2006-01-02 15:04"), s.Duration.Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("Symbols: %d | Alerts: %d\n", s.Symbols, s.Alerts))

	outcomes := make([]string, 0, len(s.Outcomes))
	for k := range s.Outcomes {
		outcomes = append(outcomes, k)
	}
	sort.Strings(outcomes)
	for _, k := range outcomes {
		b.WriteString(fmt.Sprintf("  %s: %d\n", k, s.Outcomes[k]))
	}
	return b.String()
}
