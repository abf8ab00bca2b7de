package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func lineEncoding() map[string]any {
	return map[string]any{
		"encoding": map[string]any{
			"x":      "t",
			"series": []any{map[string]any{"y": "v", "label": "v"}},
		},
	}
}

// testDashboardServer serves one dashboard with two line components.
// When gate is non-nil, query responses are held back until it closes.
func testDashboardServer(t *testing.T, gate <-chan struct{}) *httptest.Server {
	t.Helper()
	dash := Dashboard{
		ID:   "d1",
		Name: "Test",
		Components: []Component{
			{ID: "c1", Type: TypeLine, Config: lineEncoding()},
			{ID: "c2", Type: TypeBar, Config: lineEncoding()},
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dashboards/d1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(dash)
	})
	mux.HandleFunc("/api/components/", func(w http.ResponseWriter, r *http.Request) {
		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}
		if !strings.HasSuffix(r.URL.Path, "/query") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(QueryResult{Rows: []map[string]any{
			{"t": "2024-01-02", "v": 1.5},
			{"t": "2024-01-03", "v": 2.5},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadEmitsIndependentSnapshots(t *testing.T) {
	srv := testDashboardServer(t, nil)
	store := &DashboardStore{api: NewClient(srv.URL, zerolog.Nop())}

	out := make(chan Session, 8)
	store.load(context.Background(), "d1", out)
	close(out)
	var sessions []Session
	for s := range out {
		sessions = append(sessions, s)
	}

	if len(sessions) != 3 {
		t.Fatalf("expected 3 session emissions, got %d", len(sessions))
	}
	if sessions[0].Err != nil {
		t.Fatalf("first session carries an error: %v", sessions[0].Err)
	}
	// Each snapshot keeps the state it was emitted with; later query
	// results must not leak into earlier snapshots through shared maps.
	for i, want := range []int{0, 1, 2} {
		if got := len(sessions[i].Inputs); got != want {
			t.Errorf("snapshot %d holds %d inputs, want %d", i, got, want)
		}
	}
	in, ok := sessions[2].Inputs["c1"]
	if !ok {
		t.Fatal("final snapshot is missing component c1")
	}
	if len(in.Labels) != 2 || in.Datasets[0].Data[1] != 2.5 {
		t.Errorf("unexpected chart input %+v", in)
	}
}

func TestLoadStopsOnCancel(t *testing.T) {
	gate := make(chan struct{})
	srv := testDashboardServer(t, gate)
	store := &DashboardStore{api: NewClient(srv.URL, zerolog.Nop())}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Session, 8)
	baseline := runtime.NumGoroutine()
	done := make(chan struct{})
	go func() {
		store.load(ctx, "d1", out)
		close(done)
	}()

	// The dashboard snapshot arrives while both queries are still held.
	select {
	case <-out:
	case <-time.After(5 * time.Second):
		t.Fatal("no session emitted")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("load did not return after cancellation")
	}

	// The abandoned query workers must still be able to finish.
	close(gate)
	srv.CloseClientConnections()
	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > baseline+1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := runtime.NumGoroutine(); n > baseline+1 {
		t.Errorf("query workers appear stuck: %d goroutines running, baseline %d", n, baseline)
	}
}

func TestSessionCloneIsolatesMaps(t *testing.T) {
	s := Session{
		Inputs:  map[string]ChartInput{"a": {Labels: []string{"x"}}},
		Candles: map[string][]Candle{"b": {{Date: "2024-01-02", High: 1}}},
	}
	c := s.clone()
	s.Inputs["later"] = ChartInput{}
	s.Candles["later"] = nil
	if len(c.Inputs) != 1 || len(c.Candles) != 1 {
		t.Errorf("clone shares maps with the original: %d inputs, %d candle series",
			len(c.Inputs), len(c.Candles))
	}
	if got := c.Inputs["a"].Labels[0]; got != "x" {
		t.Errorf("clone lost existing entries, got label %q", got)
	}
}
