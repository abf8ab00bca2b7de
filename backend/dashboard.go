package backend

import (
	"context"

	"git.sr.ht/~gioverse/skel/stream"
)

// Session is the progressively-loaded state of one open dashboard. It is
// emitted once as soon as the dashboard record arrives and again each time
// a component's data lands, so the canvas can render cards before their
// queries finish.
type Session struct {
	Dashboard Dashboard
	// Inputs and Candles are keyed by component ID and hold whatever data
	// has arrived so far.
	Inputs  map[string]ChartInput
	Candles map[string][]Candle
	Err     error
}

// clone returns a Session whose maps are independent of the receiver,
// so an emitted Session is never written again by the loader. The map
// values themselves are written once and shared.
func (s Session) clone() Session {
	out := s
	out.Inputs = make(map[string]ChartInput, len(s.Inputs))
	for k, v := range s.Inputs {
		out.Inputs[k] = v
	}
	out.Candles = make(map[string][]Candle, len(s.Candles))
	for k, v := range s.Candles {
		out.Candles[k] = v
	}
	return out
}

// DashboardStore loads dashboards and fans their component queries out as
// skel mutations, one session per dashboard ID.
type DashboardStore struct {
	pool *stream.MutationPool[string, Session]
	api  *Client
}

func NewDashboardStore(mutator *stream.Mutator, api *Client) *DashboardStore {
	return &DashboardStore{
		pool: stream.NewMutationPool[string, Session](mutator),
		api:  api,
	}
}

// Open loads the dashboard and begins streaming session states. Repeated
// calls for the same ID share one mutation.
func (d *DashboardStore) Open(dashboardID string) *stream.Mutation[Session] {
	mut, _ := stream.Mutate(d.pool, dashboardID, func(ctx context.Context) <-chan Session {
		out := make(chan Session, 1)
		go func() {
			defer close(out)
			d.load(ctx, dashboardID, out)
		}()
		return out
	})
	return mut
}

// load fetches the dashboard and streams session snapshots to out. Each
// emitted Session owns its maps; the loader keeps writing only its own
// private copy between emissions.
func (d *DashboardStore) load(ctx context.Context, dashboardID string, out chan<- Session) {
	session := Session{
		Inputs:  map[string]ChartInput{},
		Candles: map[string][]Candle{},
	}
	dash, err := d.api.Dashboard(ctx, dashboardID)
	if err != nil {
		session.Err = err
		out <- session.clone()
		return
	}
	session.Dashboard = dash
	out <- session.clone()

	type componentData struct {
		id       string
		input    ChartInput
		candles  []Candle
		isCandle bool
		err      error
	}
	pending := 0
	for _, comp := range dash.Components {
		if chartType(comp.Type) {
			pending++
		}
	}
	// Buffered so workers never block on send if the session is
	// cancelled before their results are collected.
	results := make(chan componentData, pending)
	for _, comp := range dash.Components {
		if !chartType(comp.Type) {
			continue
		}
		comp := comp
		go func() {
			data := componentData{id: comp.ID}
			defer func() { results <- data }()
			enc, err := DecodeEncoding(comp.Config)
			if err != nil {
				data.err = err
				return
			}
			rows, err := d.api.Query(ctx, comp.ID, comp.QueryConfig)
			if err != nil {
				data.err = err
				return
			}
			if comp.Type == TypeCandlestick {
				data.isCandle = true
				data.candles = CandlesFromRows(rows.Rows, enc)
			} else {
				data.input = ChartInputFromRows(rows.Rows, enc, stackedOption(comp.Config))
			}
		}()
	}
	for ; pending > 0; pending-- {
		select {
		case <-ctx.Done():
			return
		case data := <-results:
			if data.err != nil {
				// A failed query leaves its card empty; the renderer
				// draws the no-data placeholder.
				session.Err = data.err
			} else if data.isCandle {
				session.Candles[data.id] = data.candles
			} else {
				session.Inputs[data.id] = data.input
			}
			out <- session.clone()
		}
	}
}

func chartType(t string) bool {
	switch t {
	case TypeBar, TypeLine, TypeCandlestick, TypeTable, TypeMetric:
		return true
	default:
		return false
	}
}

func stackedOption(config map[string]any) bool {
	opts, ok := config["options"].(map[string]any)
	if !ok {
		return false
	}
	stacked, _ := opts["stacked"].(bool)
	return stacked
}
