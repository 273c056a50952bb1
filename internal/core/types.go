package core

import "time"

// Asset identifies what the simulated account holds at a point in time.
type Asset string

const (
	// AssetCash is the designated no-position asset. It earns nothing.
	AssetCash Asset = "cash"
	// AssetEquity is a direct, unleveraged holding of the backtested symbol.
	AssetEquity Asset = "equity"
	// AssetLeveraged models an instrument returning a fixed multiple of the
	// underlying's per-bar return.
	AssetLeveraged Asset = "leveraged"
	// AssetDefensive models an interest-bearing parking asset that accrues
	// the risk-free rate.
	AssetDefensive Asset = "defensive"
)

// Action is a discrete trading decision for one bar.
type Action int8

const (
	ActionSell Action = -1
	ActionHold Action = 0
	ActionBuy  Action = 1
)

// String returns a human-readable action name.
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "hold"
	}
}

// IsTrade reports whether the action is a non-hold decision.
func (a Action) IsTrade() bool { return a != ActionHold }

// Signal is one trading decision attached to a bar index.
type Signal struct {
	Index  int
	Time   time.Time
	Action Action
	Reason string
}

// Bar is one time step of price/volume data plus named indicator values.
// Bars are immutable once produced; enrichment copies rather than mutates.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Fields map[string]float64
}

// Field returns the named indicator value if it is defined on this bar.
func (b Bar) Field(name string) (float64, bool) {
	v, ok := b.Fields[name]
	return v, ok
}

// Series is an ordered sequence of bars sharing a common indicator schema.
// Timestamps are strictly increasing with no duplicates.
type Series struct {
	Symbol   string
	Interval string
	Bars     []Bar

	fields map[string]bool
}

// NewSeries validates bar ordering and wraps the bars in a Series.
func NewSeries(symbol, interval string, bars []Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, WrapError(ErrBadOrder, &OrderViolation{
				Symbol: symbol,
				Index:  i,
				Prev:   bars[i-1].Time,
				Curr:   bars[i].Time,
			})
		}
	}
	s := &Series{Symbol: symbol, Interval: interval, Bars: bars, fields: map[string]bool{}}
	for _, b := range bars {
		for name := range b.Fields {
			s.fields[name] = true
		}
	}
	return s, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// HasField reports whether the named indicator is part of the series schema.
// A field is part of the schema if any bar defines it; bars inside the
// indicator's warm-up window simply lack the value.
func (s *Series) HasField(name string) bool {
	return s != nil && s.fields[name]
}

// FieldNames returns the indicator schema in unspecified order.
func (s *Series) FieldNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	return names
}

// Closes extracts the closing prices.
func (s *Series) Closes() []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// TrimWarmup returns a view of the series starting at the first bar on which
// every required field is defined. Fields entirely absent from the schema are
// a data error; fields that never become defined leave an empty view.
func (s *Series) TrimWarmup(required []string) (*Series, error) {
	for _, name := range required {
		if !s.HasField(name) {
			return nil, WrapError(ErrMissingField, &FieldMissing{Symbol: s.Symbol, Field: name})
		}
	}
	start := s.Len()
	for i, b := range s.Bars {
		if barHasAll(b, required) {
			start = i
			break
		}
	}
	return &Series{
		Symbol:   s.Symbol,
		Interval: s.Interval,
		Bars:     s.Bars[start:],
		fields:   s.fields,
	}, nil
}

func barHasAll(b Bar, required []string) bool {
	for _, name := range required {
		if _, ok := b.Fields[name]; !ok {
			return false
		}
	}
	return true
}
