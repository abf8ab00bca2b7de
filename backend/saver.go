package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"git.sr.ht/~gioverse/skel/stream"
	"github.com/rs/zerolog"
)

// SaveState is the observable state of the layout persistence loop.
type SaveState struct {
	// Dirty is true while a change is waiting out the quiet period.
	Dirty bool
	// Saving is true while a request is in flight.
	Saving bool
	// LastErr holds the most recent failure. Auto-save failures are only
	// logged; the manual save button surfaces this value.
	LastErr error
	// LastSaved is the wall time of the last successful persist.
	LastSaved time.Time
}

// saveRequest is one enqueued layout snapshot.
type saveRequest struct {
	dashboardID string
	updates     []LayoutUpdate
	manual      bool
}

// Saver debounces layout persistence. Geometry changes arrive on every
// drag/resize completion; the saver waits for a quiet period, skips
// states whose content signature matches the last persisted one, and
// swallows auto-save failures so interaction is never interrupted.
type Saver struct {
	pool     *stream.MutationPool[string, SaveState]
	api      *Client
	log      zerolog.Logger
	quiet    time.Duration
	requests chan saveRequest
}

const defaultQuietPeriod = time.Second

func NewSaver(mutator *stream.Mutator, api *Client, log zerolog.Logger) *Saver {
	return &Saver{
		pool:     stream.NewMutationPool[string, SaveState](mutator),
		api:      api,
		log:      log.With().Str("component", "saver").Logger(),
		quiet:    defaultQuietPeriod,
		requests: make(chan saveRequest, 16),
	}
}

// Enqueue records a layout change for debounced persistence.
func (s *Saver) Enqueue(dashboardID string, updates []LayoutUpdate) {
	s.submit(saveRequest{dashboardID: dashboardID, updates: cloneUpdates(updates)})
}

// SaveNow bypasses the quiet period. Used by the explicit save action,
// whose failures are surfaced rather than swallowed.
func (s *Saver) SaveNow(dashboardID string, updates []LayoutUpdate) {
	s.submit(saveRequest{dashboardID: dashboardID, updates: cloneUpdates(updates), manual: true})
}

func (s *Saver) submit(req saveRequest) {
	select {
	case s.requests <- req:
	default:
		// The loop is behind; drop the oldest pending snapshot in favor of
		// the newest one.
		select {
		case <-s.requests:
		default:
		}
		s.requests <- req
	}
}

// Run starts the persistence loop and returns its state mutation.
func (s *Saver) Run() *stream.Mutation[SaveState] {
	mut, _ := stream.Mutate(s.pool, "layout-saver", func(ctx context.Context) <-chan SaveState {
		out := make(chan SaveState, 1)
		go func() {
			defer close(out)
			var (
				state     SaveState
				pending   *saveRequest
				lastSig   string
				timer     = time.NewTimer(s.quiet)
				timerLive = false
			)
			defer timer.Stop()
			emit := func() {
				select {
				case out <- state:
				case <-ctx.Done():
				}
			}
			persist := func(req saveRequest) {
				sig := LayoutSignature(req.updates)
				if sig == lastSig && !req.manual {
					return
				}
				state.Saving = true
				state.Dirty = false
				emit()
				err := s.api.SaveLayout(ctx, req.dashboardID, req.updates)
				state.Saving = false
				state.LastErr = err
				if err != nil {
					if req.manual {
						s.log.Error().Err(err).Msg("manual save failed")
					} else {
						s.log.Warn().Err(err).Msg("auto-save failed")
					}
				} else {
					lastSig = sig
					state.LastSaved = time.Now()
				}
				emit()
			}
			for {
				select {
				case <-ctx.Done():
					return
				case req := <-s.requests:
					if req.manual {
						pending = nil
						timerLive = false
						persist(req)
						continue
					}
					pending = &req
					state.Dirty = true
					emit()
					if !timerLive {
						timer.Reset(s.quiet)
						timerLive = true
					} else {
						if !timer.Stop() {
							<-timer.C
						}
						timer.Reset(s.quiet)
					}
				case <-timer.C:
					timerLive = false
					if pending != nil {
						persist(*pending)
						pending = nil
					}
				}
			}
		}()
		return out
	})
	return mut
}

// LayoutSignature returns a stable digest of a layout snapshot. Two
// snapshots with the same geometry in any order share a signature, which
// is what keeps redundant identical states from being re-persisted.
func LayoutSignature(updates []LayoutUpdate) string {
	sorted := cloneUpdates(updates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ComponentID < sorted[j].ComponentID })
	blob, err := json.Marshal(sorted)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func cloneUpdates(updates []LayoutUpdate) []LayoutUpdate {
	out := make([]LayoutUpdate, len(updates))
	copy(out, updates)
	return out
}
