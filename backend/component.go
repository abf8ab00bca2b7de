package backend

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Component types understood by the canvas. Anything else renders as a
// plain text card so that unknown backend components degrade gracefully.
const (
	TypeBar         = "bar"
	TypeLine        = "line"
	TypeCandlestick = "candlestick"
	TypeTable       = "table"
	TypeMetric      = "metric"
	TypeText        = "text"
)

// GridPlacement records where a component sits on the dashboard grid.
// Col and Row are 1-based; zero means the component has never been placed
// and must be migrated from its legacy pixel geometry.
type GridPlacement struct {
	Col     int `json:"col"`
	Row     int `json:"row"`
	ColSpan int `json:"col_span"`
	RowSpan int `json:"row_span"`
}

// Component mirrors the backend's component record. The layout fields
// (width_ratio, width, height, order_index) are the persisted legacy
// geometry and must round-trip unchanged; grid placement lives in the
// dashboard's layout map.
type Component struct {
	ID          string         `json:"id"`
	DashboardID string         `json:"dashboard_id"`
	Name        string         `json:"name"`
	Type        string         `json:"component_type"`
	Config      map[string]any `json:"config"`
	QueryConfig map[string]any `json:"query_config"`
	WidthRatio  float64        `json:"width_ratio"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	OrderIndex  int            `json:"order_index"`
	Minimized   bool           `json:"minimized"`
}

// Dashboard mirrors the backend's dashboard record. Layout maps component
// IDs to grid placements and is the canvas's single persisted source of
// grid geometry.
type Dashboard struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Layout     map[string]GridPlacement `json:"layout"`
	Components []Component              `json:"components"`
}

// SeriesSpec is one entry of the multi-series encoding.
type SeriesSpec struct {
	Y     string `json:"y"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Encoding describes how query rows map onto chart axes. Line and bar
// charts use X plus Series; candlesticks use the OHLCV field names. The
// legacy single-y form (encoding.y, optional encoding.color grouping
// column) predates multi-series support and is still accepted.
type Encoding struct {
	X      string       `json:"x"`
	Series []SeriesSpec `json:"series"`
	Y      string       `json:"y"`
	Open   string       `json:"open"`
	High   string       `json:"high"`
	Low    string       `json:"low"`
	Close  string       `json:"close"`
	Volume string       `json:"volume"`
}

// DecodeEncoding extracts the encoding block from a component config,
// upgrading the legacy single-y form to a one-element series list.
func DecodeEncoding(config map[string]any) (Encoding, error) {
	raw, ok := config["encoding"]
	if !ok {
		return Encoding{}, fmt.Errorf("component config has no encoding")
	}
	blob, err := json.Marshal(raw)
	if err != nil {
		return Encoding{}, fmt.Errorf("re-encoding config: %w", err)
	}
	var enc Encoding
	if err := json.Unmarshal(blob, &enc); err != nil {
		return Encoding{}, fmt.Errorf("decoding encoding block: %w", err)
	}
	if len(enc.Series) == 0 && enc.Y != "" {
		enc.Series = []SeriesSpec{{Y: enc.Y, Label: enc.Y}}
	}
	if enc.X == "" {
		return Encoding{}, fmt.Errorf("encoding has no x field")
	}
	return enc, nil
}

// Dataset is one named series sharing the chart's label axis by position:
// Data[i] belongs to the label at index i.
type Dataset struct {
	Label string
	Data  []float64
	Color string
}

// ChartInput is the complete input of a bar or line renderer. Renderers
// treat it as immutable.
type ChartInput struct {
	Labels   []string
	Datasets []Dataset
	Stacked  bool
}

// Candle is one OHLCV row for the candlestick renderer.
type Candle struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether the candle can be drawn without producing
// NaN-derived geometry.
func (c Candle) Valid() bool {
	return c.High >= c.Low && !anyNaN(c.Open, c.High, c.Low, c.Close, c.Volume)
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if v != v {
			return true
		}
	}
	return false
}

// QueryResult is the row set a query config produced on the backend.
type QueryResult struct {
	Rows []map[string]any `json:"rows"`
}

// ChartInputFromRows projects query rows through an encoding into chart
// input. Rows missing the x column are skipped; missing series cells
// become zero so every dataset keeps the shared label axis length.
func ChartInputFromRows(rows []map[string]any, enc Encoding, stacked bool) ChartInput {
	in := ChartInput{Stacked: stacked}
	for _, spec := range enc.Series {
		label := spec.Label
		if label == "" {
			label = spec.Y
		}
		in.Datasets = append(in.Datasets, Dataset{Label: label, Color: spec.Color})
	}
	for _, row := range rows {
		x, ok := row[enc.X]
		if !ok {
			continue
		}
		in.Labels = append(in.Labels, stringify(x))
		for i, spec := range enc.Series {
			v, _ := numeric(row[spec.Y])
			in.Datasets[i].Data = append(in.Datasets[i].Data, v)
		}
	}
	return in
}

// CandlesFromRows projects query rows into candles, dropping rows that
// fail numeric validation.
func CandlesFromRows(rows []map[string]any, enc Encoding) []Candle {
	out := make([]Candle, 0, len(rows))
	for _, row := range rows {
		x, ok := row[enc.X]
		if !ok {
			continue
		}
		c := Candle{Date: stringify(x)}
		var okO, okH, okL, okC bool
		c.Open, okO = numeric(row[enc.Open])
		c.High, okH = numeric(row[enc.High])
		c.Low, okL = numeric(row[enc.Low])
		c.Close, okC = numeric(row[enc.Close])
		if enc.Volume != "" {
			c.Volume, _ = numeric(row[enc.Volume])
		}
		if !okO || !okH || !okL || !okC || !c.Valid() {
			continue
		}
		out = append(out, c)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format("2006-01-02")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, t == t
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
