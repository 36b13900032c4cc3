package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a cryptocurrency trading assistant for a paper trading account.
Reply with a single JSON object and nothing else:
{"decision":"BUY|SELL|HOLD","confidence":0.0-1.0,"reason":"short explanation"}`

// maxPromptCandles bounds how much history goes into the prompt.
const maxPromptCandles = 30

// BuildPrompt renders the user message for req.
func BuildPrompt(req Request) string {
	var b strings.Builder

	ind := req.Indicators
	fmt.Fprintf(&b, "Market: %s (%s candles)\n", req.Market, req.Interval)
	fmt.Fprintf(&b, "Price: %g  tick size: %g\n", ind.Price, req.MarketConfig.TickSize)
	fmt.Fprintf(&b, "Account balance: %.2f  open positions: %d\n\n", req.Balance, req.OpenPositions)

	b.WriteString("Indicators:\n")
	fmt.Fprintf(&b, "  RSI(14): %.2f (%s)\n", ind.RSI, ind.Momentum)
	fmt.Fprintf(&b, "  EMA12: %g  EMA26: %g (trend %s)\n", ind.EMAFast, ind.EMASlow, ind.Trend)
	fmt.Fprintf(&b, "  MACD: %g  signal: %g  histogram: %g\n", ind.MACD.MACD, ind.MACD.Signal, ind.MACD.Histogram)
	fmt.Fprintf(&b, "  Bollinger: %g / %g / %g\n", ind.Bollinger.Lower, ind.Bollinger.Middle, ind.Bollinger.Upper)
	fmt.Fprintf(&b, "  ATR(14): %g (%.2f%% of price, volatility %s)\n\n", ind.ATR, 100*ind.ATRPercent, ind.Volatility)

	candles := req.Candles
	if len(candles) > maxPromptCandles {
		candles = candles[len(candles)-maxPromptCandles:]
	}
	b.WriteString("Recent candles (time,open,high,low,close,volume):\n")
	for _, c := range candles {
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,%g\n",
			c.Time.UTC().Format("2006-01-02T15:04Z"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	return b.String()
}
