package main

import (
	"context"
	"flag"
	"os"
	"time"

	"gioui.org/app"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/x/explorer"
	"git.sr.ht/~gioverse/skel/stream"
	"github.com/rs/zerolog"

	"github.com/finboard/finboard/backend"
)

func main() {
	backendURL := flag.String("backend", "http://localhost:8000", "base URL of the dashboard API")
	dashboardID := flag.String("dashboard", "", "dashboard ID to open")
	dataPath := flag.String("data", "", "replay OHLCV data from a local CSV file instead of the API")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*debug {
		log = log.Level(zerolog.InfoLevel)
	}
	if *dashboardID == "" && *dataPath == "" {
		log.Fatal().Msg("either -dashboard or -data is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	mutator := stream.NewMutator(ctx, time.Second)
	bundle, err := backend.NewBundle(mutator, *backendURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing backend")
	}

	go func() {
		defer cancel()
		w := app.NewWindow(
			app.Title("finboard"),
			app.Size(unit.Dp(1200), unit.Dp(800)),
		)
		ws := backend.NewWindowState(ctx, bundle, w)
		expl := explorer.NewExplorer(w)
		ui := NewUI(ws, w, expl, *dashboardID, *dataPath)
		if err := loop(w, expl, ui); err != nil {
			log.Fatal().Err(err).Msg("window loop")
		}
		os.Exit(0)
	}()

	app.Main()
}

func loop(w *app.Window, expl *explorer.Explorer, ui *UI) error {
	var ops op.Ops
	for {
		ev := w.NextEvent()
		expl.ListenEvents(ev)
		switch ev := ev.(type) {
		case system.DestroyEvent:
			return ev.Err
		case system.FrameEvent:
			gtx := layout.NewContext(&ops, ev)
			ui.Layout(gtx)
			ev.Frame(gtx.Ops)
		}
	}
}
