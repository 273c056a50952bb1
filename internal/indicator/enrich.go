package indicator

import (
	"fmt"

	"github.com/replaykit/replay/internal/core"
)

// Default indicator parameters, matching the common daily-bar setup.
const (
	DefaultRSIPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// Config selects which indicator fields enrichment attaches.
type Config struct {
	SMAPeriods []int // one SMA_<n> field per period
	RSIPeriod  int   // 0 disables RSI
	MACD       bool  // adds MACD and Signal_Line
}

// SMAField returns the schema name for an SMA of the given period.
func SMAField(period int) string {
	return fmt.Sprintf("SMA_%d", period)
}

// Indicator field names shared with the strategies.
const (
	FieldRSI        = "RSI"
	FieldMACD       = "MACD"
	FieldSignalLine = "Signal_Line"
)

// Enrich returns a new series whose bars carry the configured indicator
// fields. Bars inside an indicator's warm-up window simply do not get that
// field. The input series is never mutated: every bar's field map is copied
// before anything is attached.
func Enrich(s *core.Series, cfg Config) (*core.Series, error) {
	bars := make([]core.Bar, s.Len())
	for i, b := range s.Bars {
		fields := make(map[string]float64, len(b.Fields)+len(cfg.SMAPeriods)+3)
		for k, v := range b.Fields {
			fields[k] = v
		}
		b.Fields = fields
		bars[i] = b
	}

	closes := s.Closes()

	for _, period := range cfg.SMAPeriods {
		attach(bars, SMAField(period), SMA(closes, period), period-1)
	}

	if cfg.RSIPeriod > 0 {
		attach(bars, FieldRSI, RSI(closes, cfg.RSIPeriod), cfg.RSIPeriod)
	}

	if cfg.MACD {
		macd, signalLine := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
		attach(bars, FieldMACD, macd, DefaultMACDSlow-1)
		attach(bars, FieldSignalLine, signalLine, DefaultMACDSlow+DefaultMACDSignal-2)
	}

	return core.NewSeries(s.Symbol, s.Interval, bars)
}

// attach writes values onto bars starting at the given bar offset.
func attach(bars []core.Bar, name string, values []float64, offset int) {
	for j, v := range values {
		i := offset + j
		if i >= len(bars) {
			break
		}
		bars[i].Fields[name] = v
	}
}
