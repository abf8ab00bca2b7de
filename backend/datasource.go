package backend

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"git.sr.ht/~gioverse/skel/stream"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReplayData is the state of one local price-file replay session.
type ReplayData struct {
	Symbol  string
	Candles []Candle
	Err     error
}

// Datasource replays OHLCV data from local CSV files, re-reading whenever
// the file grows. It exists so charts can be exercised without the HTTP
// backend, and it is the reason renderers must tolerate their dataset
// being replaced mid-flight.
type Datasource struct {
	pool    *stream.MutationPool[string, ReplayData]
	watcher *fsnotify.Watcher
	log     zerolog.Logger
}

func NewDatasource(log zerolog.Logger) (*Datasource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return &Datasource{
		watcher: watcher,
		log:     log.With().Str("component", "datasource").Logger(),
	}, nil
}

// Attach connects the datasource to a mutator. Must be called once before Replay.
func (d *Datasource) Attach(mutator *stream.Mutator) {
	d.pool = stream.NewMutationPool[string, ReplayData](mutator)
}

// Replay streams the candles parsed from path, re-emitting the full slice
// whenever the file is appended to. The emitted slices are never mutated
// after emission; each reload allocates a fresh one.
func (d *Datasource) Replay(path string) *stream.Mutation[ReplayData] {
	mut, _ := stream.Mutate(d.pool, path, func(ctx context.Context) <-chan ReplayData {
		out := make(chan ReplayData, 1)
		go func() {
			defer close(out)
			data := ReplayData{Symbol: symbolFromPath(path)}
			emit := func() {
				select {
				case out <- data:
				case <-ctx.Done():
				}
			}
			load := func() {
				file, err := os.Open(path)
				if err != nil {
					data.Err = err
					return
				}
				defer file.Close()
				candles, err := ParseCandleCSV(file)
				if err != nil {
					data.Err = err
					return
				}
				data.Err = nil
				data.Candles = candles
			}
			load()
			emit()
			if err := d.watcher.Add(path); err != nil {
				d.log.Warn().Err(err).Str("path", path).Msg("cannot watch file, live reload disabled")
				return
			}
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-d.watcher.Events:
					if !ok {
						return
					}
					if ev.Name == path && ev.Has(fsnotify.Write) {
						load()
						emit()
					}
				case err, ok := <-d.watcher.Errors:
					if !ok {
						return
					}
					d.log.Warn().Err(err).Msg("watcher error")
				}
			}
		}()
		return out
	})
	return mut
}

func symbolFromPath(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, os.PathSeparator); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.IndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	return strings.ToUpper(base)
}

// ParseCandleCSV reads OHLCV rows from CSV data with a
// date,open,high,low,close,volume heading. Rows that fail numeric
// validation are skipped rather than aborting the parse, because a file
// being written concurrently routinely ends in a partial row.
func ParseCandleCSV(r io.Reader) ([]Candle, error) {
	csvReader := csv.NewReader(newLineReader(r))
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	headings, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv headings: %w", err)
	}
	cols := map[string]int{}
	for i, h := range headings {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv is missing a %q column", required)
		}
	}
	var candles []Candle
	for {
		rec, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return candles, nil
			}
			return candles, fmt.Errorf("reading csv row: %w", err)
		}
		field := func(name string) (float64, bool) {
			idx, ok := cols[name]
			if !ok || idx >= len(rec) {
				return 0, false
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
			return v, err == nil
		}
		c := Candle{Date: strings.TrimSpace(rec[cols["date"]])}
		var okO, okH, okL, okC bool
		c.Open, okO = field("open")
		c.High, okH = field("high")
		c.Low, okL = field("low")
		c.Close, okC = field("close")
		c.Volume, _ = field("volume")
		if c.Date == "" || !okO || !okH || !okL || !okC || !c.Valid() {
			continue
		}
		candles = append(candles, c)
	}
}

// lineReader yields only whole newline-terminated lines, holding back any
// trailing partial line. Parsing a file that is still being appended to
// would otherwise hand the CSV reader half a row.
type lineReader struct {
	r       *bufio.Reader
	partial []byte
}

var _ io.Reader = (*lineReader)(nil)

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

func (l *lineReader) Read(b []byte) (int, error) {
	data, err := l.r.ReadBytes('\n')
	if err != nil {
		l.partial = append(l.partial, data...)
		return 0, io.EOF
	}
	var n int
	if len(l.partial) > 0 {
		n = copy(b, l.partial)
		l.partial = l.partial[:copy(l.partial, l.partial[n:])]
		b = b[n:]
	}
	return n + copy(b, data), nil
}
