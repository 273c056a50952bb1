// Package archive writes finished run reports to durable storage, either
// the local filesystem or an S3-compatible bucket.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/replaykit/replay/internal/backtest"
)

// Storage is the backend contract.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Document is the archived shape of one run: the summary plus the rendered
// metric map, without the full bar-level series.
type Document struct {
	ID          string             `json:"id" yaml:"id"`
	Strategy    string             `json:"strategy" yaml:"strategy"`
	Symbol      string             `json:"symbol" yaml:"symbol"`
	Start       time.Time          `json:"start" yaml:"start"`
	End         time.Time          `json:"end" yaml:"end"`
	Bars        int                `json:"bars" yaml:"bars"`
	Switches    int                `json:"switches" yaml:"switches"`
	Clips       int                `json:"clips,omitempty" yaml:"clips,omitempty"`
	Metrics     map[string]float64 `json:"metrics" yaml:"metrics"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
}

// NewDocument builds the archive document for a run.
func NewDocument(res *backtest.Result) Document {
	return Document{
		ID:          res.ID,
		Strategy:    res.Strategy,
		Symbol:      res.Symbol,
		Start:       res.Start,
		End:         res.End,
		Bars:        res.Bars,
		Switches:    res.Switches,
		Clips:       res.Clips,
		Metrics:     res.Report.Map(),
		GeneratedAt: time.Now().UTC(),
	}
}

// Encode renders the document as "json" or "yaml".
func (d Document) Encode(format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(d)
	case "json", "":
		return json.MarshalIndent(d, "", "  ")
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// SaveReport archives one run under runs/<symbol>/<id>.<ext>.
func SaveReport(ctx context.Context, st Storage, res *backtest.Result, format string) (string, error) {
	if format == "" {
		format = "json"
	}
	data, err := NewDocument(res).Encode(format)
	if err != nil {
		return "", err
	}

	ext := format
	if ext == "yaml" {
		ext = "yml"
	}
	key := fmt.Sprintf("runs/%s/%s.%s", res.Symbol, res.ID, ext)
	if err := st.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("archiving report %s: %w", res.ID, err)
	}
	return key, nil
}
