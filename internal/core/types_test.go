package core

import (
	"errors"
	"testing"
	"time"
)

func bar(day int, close float64, fields map[string]float64) Bar {
	return Bar{
		Symbol: "TEST",
		Time:   time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Close:  close,
		Fields: fields,
	}
}

func TestNewSeriesOrdering(t *testing.T) {
	tests := []struct {
		name    string
		bars    []Bar
		wantErr bool
	}{
		{"empty", nil, false},
		{"single", []Bar{bar(1, 10, nil)}, false},
		{"increasing", []Bar{bar(1, 10, nil), bar(2, 11, nil), bar(3, 12, nil)}, false},
		{"duplicate timestamp", []Bar{bar(1, 10, nil), bar(1, 11, nil)}, true},
		{"decreasing", []Bar{bar(2, 10, nil), bar(1, 11, nil)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeries("TEST", "1d", tt.bars)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSeries() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrBadOrder) {
				t.Errorf("NewSeries() error = %v, want BAD_ORDER", err)
			}
		})
	}
}

func TestSeriesSchema(t *testing.T) {
	bars := []Bar{
		bar(1, 10, nil),
		bar(2, 11, map[string]float64{"RSI": 55}),
		bar(3, 12, map[string]float64{"RSI": 60, "SMA_20": 11}),
	}
	s, err := NewSeries("TEST", "1d", bars)
	if err != nil {
		t.Fatalf("NewSeries() error = %v", err)
	}

	if !s.HasField("RSI") || !s.HasField("SMA_20") {
		t.Error("schema should include fields defined on any bar")
	}
	if s.HasField("MACD") {
		t.Error("schema should not include undefined fields")
	}
	if got := len(s.FieldNames()); got != 2 {
		t.Errorf("FieldNames() len = %d, want 2", got)
	}
}

func TestTrimWarmup(t *testing.T) {
	bars := []Bar{
		bar(1, 10, nil),
		bar(2, 11, map[string]float64{"RSI": 55}),
		bar(3, 12, map[string]float64{"RSI": 60, "SMA_20": 11}),
		bar(4, 13, map[string]float64{"RSI": 65, "SMA_20": 12}),
	}
	s, err := NewSeries("TEST", "1d", bars)
	if err != nil {
		t.Fatalf("NewSeries() error = %v", err)
	}

	trimmed, err := s.TrimWarmup([]string{"RSI", "SMA_20"})
	if err != nil {
		t.Fatalf("TrimWarmup() error = %v", err)
	}
	if trimmed.Len() != 2 {
		t.Errorf("TrimWarmup() len = %d, want 2", trimmed.Len())
	}
	if trimmed.Bars[0].Close != 12 {
		t.Errorf("TrimWarmup() first close = %v, want 12", trimmed.Bars[0].Close)
	}

	if _, err := s.TrimWarmup([]string{"MACD"}); !errors.Is(err, ErrMissingField) {
		t.Errorf("TrimWarmup(absent field) error = %v, want MISSING_FIELD", err)
	}
}

func TestTrimWarmupNeverDefined(t *testing.T) {
	// The field is in the schema but no single bar defines both at once.
	bars := []Bar{
		bar(1, 10, map[string]float64{"A": 1}),
		bar(2, 11, map[string]float64{"B": 2}),
	}
	s, err := NewSeries("TEST", "1d", bars)
	if err != nil {
		t.Fatalf("NewSeries() error = %v", err)
	}

	trimmed, err := s.TrimWarmup([]string{"A", "B"})
	if err != nil {
		t.Fatalf("TrimWarmup() error = %v", err)
	}
	if trimmed.Len() != 0 {
		t.Errorf("TrimWarmup() len = %d, want 0", trimmed.Len())
	}
}

func TestNilSeries(t *testing.T) {
	var s *Series
	if s.Len() != 0 {
		t.Error("nil series should have length 0")
	}
	if s.HasField("RSI") {
		t.Error("nil series should have no fields")
	}
}

func TestActionString(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionBuy, "buy"},
		{ActionSell, "sell"},
		{ActionHold, "hold"},
	}
	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%d).String() = %q, want %q", tt.action, got, tt.want)
		}
	}

	if ActionHold.IsTrade() {
		t.Error("hold should not count as a trade")
	}
	if !ActionBuy.IsTrade() || !ActionSell.IsTrade() {
		t.Error("buy and sell should count as trades")
	}
}
