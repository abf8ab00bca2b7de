package backend

import (
	"context"

	"gioui.org/app"
	"git.sr.ht/~gioverse/skel/stream"
	"github.com/rs/zerolog"
)

// WindowState couples a bundle to one window's stream controller.
type WindowState struct {
	Bundle
	Controller *stream.Controller
}

func NewWindowState(ctx context.Context, bundle Bundle, win *app.Window) WindowState {
	return WindowState{
		Bundle:     bundle,
		Controller: stream.NewController(ctx, win.Invalidate),
	}
}

// Bundle holds every non-UI resource the application uses.
type Bundle struct {
	API        *Client
	Dashboards *DashboardStore
	Saver      *Saver
	Datasource *Datasource
}

func NewBundle(mutator *stream.Mutator, backendURL string, log zerolog.Logger) (Bundle, error) {
	api := NewClient(backendURL, log)
	ds, err := NewDatasource(log)
	if err != nil {
		return Bundle{}, err
	}
	ds.Attach(mutator)
	return Bundle{
		API:        api,
		Dashboards: NewDashboardStore(mutator, api),
		Saver:      NewSaver(mutator, api, log),
		Datasource: ds,
	}, nil
}
