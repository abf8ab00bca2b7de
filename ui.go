package main

import (
	"context"
	"fmt"
	"image"
	"time"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/component"
	"gioui.org/x/explorer"
	"git.sr.ht/~gioverse/skel/stream"
	"golang.org/x/exp/shiny/materialdesign/icons"

	"github.com/finboard/finboard/backend"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

// card pairs a grid item with the renderer for its component type. Only
// one of the renderer fields is non-nil.
type card struct {
	item   *GridItem
	chart  *Chart
	candle *Candlestick

	tableState component.GridState
	textField  component.TextField
	textLoaded bool
}

// UI holds the top-level state and draws the dashboard canvas.
type UI struct {
	ws   backend.WindowState
	win  *app.Window
	expl *explorer.Explorer
	th   *material.Theme

	dashboardID string
	session     backend.Session
	sessions    *stream.Stream[backend.Session]
	haveSession bool

	saves     *stream.Stream[backend.SaveState]
	saveState backend.SaveState

	replayPath string
	replays    *stream.Stream[backend.ReplayData]
	replay     backend.ReplayData
	replayCard *Candlestick

	grid  Grid
	cards map[string]*card

	canvas     widget.List
	saveBtn    widget.Clickable
	exportBtn  widget.Clickable
	openBtn    widget.Clickable
	presetBtns [len(presetOrder)]widget.Clickable

	saveIcon   *widget.Icon
	exportIcon *widget.Icon
	openIcon   *widget.Icon

	exportResult chan error
	exportErr    string
	replayChosen chan string
}

var presetOrder = [...]struct {
	label  string
	preset RangePreset
}{
	{"1M", Preset1M},
	{"3M", Preset3M},
	{"6M", Preset6M},
	{"1Y", Preset1Y},
}

func NewUI(ws backend.WindowState, win *app.Window, expl *explorer.Explorer, dashboardID, replayPath string) *UI {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()), text.NoSystemFonts())
	ui := &UI{
		ws:           ws,
		win:          win,
		expl:         expl,
		th:           th,
		dashboardID:  dashboardID,
		replayPath:   replayPath,
		cards:        map[string]*card{},
		canvas:       widget.List{List: layout.List{Axis: layout.Vertical}},
		exportResult: make(chan error, 1),
		replayChosen: make(chan string, 1),
	}
	ui.saveIcon = mustIcon(icons.ContentSave)
	ui.exportIcon = mustIcon(icons.FileFileDownload)
	ui.openIcon = mustIcon(icons.FileFolder)
	if dashboardID != "" {
		ui.sessions = stream.New(ws.Controller, ws.Bundle.Dashboards.Open(dashboardID).Stream)
	}
	ui.saves = stream.New(ws.Controller, ws.Bundle.Saver.Run().Stream)
	if replayPath != "" {
		ui.startReplay(replayPath)
	}
	ui.grid.OnItemsChange = func(items []*GridItem) {
		ui.ws.Bundle.Saver.Enqueue(ui.dashboardID, ui.layoutUpdates())
	}
	ui.grid.OnRename = func(it *GridItem, name string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = ui.ws.Bundle.API.Rename(ctx, it.ID, name)
		}()
	}
	return ui
}

func mustIcon(data []byte) *widget.Icon {
	ic, err := widget.NewIcon(data)
	if err != nil {
		panic(err)
	}
	return ic
}

func (ui *UI) startReplay(path string) {
	ui.replays = stream.New(ui.ws.Controller, ui.ws.Bundle.Datasource.Replay(path).Stream)
	ui.replayCard = &Candlestick{}
}

// layoutUpdates snapshots the grid geometry for persistence. The legacy
// pixel fields round-trip from the component record untouched.
func (ui *UI) layoutUpdates() []backend.LayoutUpdate {
	updates := make([]backend.LayoutUpdate, 0, len(ui.grid.Items))
	for _, it := range ui.grid.Items {
		updates = append(updates, backend.LayoutUpdate{
			ComponentID: it.ID,
			Col:         it.Placement.Col,
			Row:         it.Placement.Row,
			ColSpan:     it.Placement.ColSpan,
			RowSpan:     it.Placement.RowSpan,
			WidthRatio:  it.Component.WidthRatio,
			Width:       it.Component.Width,
			Height:      it.Component.Height,
			OrderIndex:  it.Component.OrderIndex,
		})
	}
	return updates
}

// syncSession folds a new session state into the grid: new components
// get cards and placements, existing cards get fresh data.
func (ui *UI) syncSession(gtx C, s backend.Session) {
	rowHeightPx := float64(gtx.Dp(gridRowHeight))
	placements := migratePlacements(s.Dashboard.Components, s.Dashboard.Layout, rowHeightPx)
	for _, comp := range s.Dashboard.Components {
		cd, ok := ui.cards[comp.ID]
		if !ok {
			it := &GridItem{
				ID:        comp.ID,
				Component: comp,
				Placement: placements[comp.ID],
				Minimized: comp.Minimized,
			}
			cd = &card{item: it}
			switch comp.Type {
			case backend.TypeCandlestick:
				cd.candle = &Candlestick{Symbol: comp.Name}
				compID := comp.ID
				cd.candle.OnStatsChange = func(st HeaderStats) {
					ui.setCandleStats(compID, st)
				}
			case backend.TypeBar:
				cd.chart = &Chart{Kind: KindBar}
			case backend.TypeLine, backend.TypeMetric, backend.TypeTable:
				cd.chart = &Chart{Kind: KindLine}
			}
			ui.cards[comp.ID] = cd
			ui.grid.Items = append(ui.grid.Items, it)
		}
		if in, ok := s.Inputs[comp.ID]; ok && cd.chart != nil {
			cd.chart.SetInput(in)
		}
		if candles, ok := s.Candles[comp.ID]; ok && cd.candle != nil {
			cd.candle.SetCandles(candles)
		}
	}
}

// setCandleStats mirrors a candlestick's windowed statistics into its
// card header, where they stay readable while the card is minimized.
func (ui *UI) setCandleStats(id string, st HeaderStats) {
	cd, ok := ui.cards[id]
	if !ok {
		return
	}
	cd.item.Subtitle = fmt.Sprintf("%.2f  %s", st.Current, formatChange(st.ChangeAbs, st.ChangePct))
}

func (ui *UI) Update(gtx C) {
	if ui.sessions != nil {
		if s, isNew := ui.sessions.ReadNew(gtx); isNew {
			ui.session = s
			ui.haveSession = true
			ui.syncSession(gtx, ui.session)
		}
	}
	ui.saves.ReadInto(gtx, &ui.saveState, backend.SaveState{})
	if ui.replays != nil {
		if r, isNew := ui.replays.ReadNew(gtx); isNew {
			ui.replay = r
			ui.replayCard.Symbol = ui.replay.Symbol
			ui.replayCard.SetCandles(ui.replay.Candles)
		}
	}
	select {
	case err := <-ui.exportResult:
		if err != nil {
			ui.exportErr = err.Error()
		} else {
			ui.exportErr = ""
		}
	default:
	}

	if ui.saveBtn.Clicked(gtx) {
		ui.ws.Bundle.Saver.SaveNow(ui.dashboardID, ui.layoutUpdates())
	}
	if ui.exportBtn.Clicked(gtx) {
		ui.export()
	}
	select {
	case path := <-ui.replayChosen:
		ui.startReplay(path)
	default:
	}
	if ui.openBtn.Clicked(gtx) {
		go func() {
			file, err := ui.expl.ChooseFile("csv")
			if err != nil {
				return
			}
			file.Close()
			// The datasource watches paths for growth, so replay needs
			// the file name rather than the handle.
			if named, ok := file.(interface{ Name() string }); ok {
				select {
				case ui.replayChosen <- named.Name():
					ui.win.Invalidate()
				default:
				}
			}
		}()
	}
	for i := range ui.presetBtns {
		if ui.presetBtns[i].Clicked(gtx) {
			ui.applyPreset(presetOrder[i].preset)
		}
	}
}

func (ui *UI) applyPreset(p RangePreset) {
	for _, cd := range ui.cards {
		if cd.chart != nil {
			cd.chart.ApplyPreset(p)
		}
		if cd.candle != nil {
			cd.candle.ApplyPreset(p)
		}
	}
	if ui.replayCard != nil {
		ui.replayCard.ApplyPreset(p)
	}
}

// export writes the visible window of every chart card to a workbook
// chosen via the platform file dialog.
func (ui *UI) export() {
	var sheets []exportSheet
	for _, it := range ui.grid.Items {
		cd := ui.cards[it.ID]
		if cd == nil {
			continue
		}
		sheet := exportSheet{Name: it.Component.Name}
		switch {
		case cd.candle != nil:
			sheet.Candles = cd.candle.Candles()
			sheet.Lo, sheet.Hi = cd.candle.Window()
			if len(sheet.Candles) == 0 {
				continue
			}
		case cd.chart != nil:
			sheet.Input = cd.chart.Input()
			sheet.Lo, sheet.Hi = cd.chart.Window()
			if len(sheet.Input.Labels) == 0 {
				continue
			}
		default:
			continue
		}
		sheets = append(sheets, sheet)
	}
	if len(sheets) == 0 {
		return
	}
	go func() {
		w, err := ui.expl.CreateFile("dashboard.xlsx")
		if err != nil {
			ui.exportResult <- err
			return
		}
		defer w.Close()
		ui.exportResult <- exportWorkbook(w, sheets)
	}()
}

func (ui *UI) Layout(gtx C) D {
	ui.Update(gtx)
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(ui.layoutToolbar),
		layout.Flexed(1, ui.layoutCanvas),
	)
}

func (ui *UI) layoutToolbar(gtx C) D {
	inset := layout.UniformInset(6)
	return inset.Layout(gtx, func(gtx C) D {
		return layout.Flex{Alignment: layout.Middle, Spacing: layout.SpaceBetween}.Layout(gtx,
			layout.Rigid(func(gtx C) D {
				name := ui.session.Dashboard.Name
				if name == "" {
					name = "Dashboard"
				}
				return material.H6(ui.th, name).Layout(gtx)
			}),
			layout.Rigid(func(gtx C) D {
				children := make([]layout.FlexChild, 0, len(presetOrder)+4)
				for i := range presetOrder {
					i := i
					children = append(children, layout.Rigid(func(gtx C) D {
						return layout.Inset{Left: 2}.Layout(gtx, headerButton(ui.th, &ui.presetBtns[i], presetOrder[i].label).Layout)
					}))
				}
				children = append(children,
					layout.Rigid(func(gtx C) D {
						return layout.Inset{Left: 6}.Layout(gtx, material.IconButton(ui.th, &ui.openBtn, ui.openIcon, "Open CSV").Layout)
					}),
					layout.Rigid(func(gtx C) D {
						return layout.Inset{Left: 6}.Layout(gtx, material.IconButton(ui.th, &ui.exportBtn, ui.exportIcon, "Export").Layout)
					}),
					layout.Rigid(func(gtx C) D {
						return layout.Inset{Left: 6}.Layout(gtx, material.IconButton(ui.th, &ui.saveBtn, ui.saveIcon, "Save").Layout)
					}),
					layout.Rigid(func(gtx C) D {
						return layout.Inset{Left: 6}.Layout(gtx, material.Body2(ui.th, ui.statusLine()).Layout)
					}),
				)
				return layout.Flex{Alignment: layout.Middle}.Layout(gtx, children...)
			}),
		)
	})
}

func (ui *UI) statusLine() string {
	switch {
	case ui.exportErr != "":
		return "export failed: " + ui.exportErr
	case ui.saveState.Saving:
		return "saving…"
	case ui.saveState.LastErr != nil:
		return "save failed: " + ui.saveState.LastErr.Error()
	case ui.saveState.Dirty:
		return "unsaved changes"
	case !ui.saveState.LastSaved.IsZero():
		return "saved " + ui.saveState.LastSaved.Format("15:04:05")
	default:
		return ""
	}
}

func (ui *UI) layoutCanvas(gtx C) D {
	if !ui.haveSession && ui.replays == nil {
		return ui.layoutEmpty(gtx, "Loading dashboard…")
	}
	if ui.session.Err != nil && len(ui.grid.Items) == 0 && ui.replays == nil {
		return ui.layoutEmpty(gtx, ui.session.Err.Error())
	}
	return material.List(ui.th, &ui.canvas).Layout(gtx, 1, func(gtx C, _ int) D {
		return layout.UniformInset(6).Layout(gtx, func(gtx C) D {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(func(gtx C) D {
					if ui.replayCard == nil {
						return D{}
					}
					gtx.Constraints.Min.Y = gtx.Dp(unit.Dp(320))
					gtx.Constraints.Max.Y = gtx.Constraints.Min.Y
					return ui.replayCard.Layout(gtx, ui.th)
				}),
				layout.Rigid(func(gtx C) D {
					return ui.grid.Layout(gtx, ui.th, ui.layoutCardBody)
				}),
			)
		})
	})
}

func (ui *UI) layoutEmpty(gtx C, msg string) D {
	return layout.Flex{Axis: layout.Vertical, Alignment: layout.Middle, Spacing: layout.SpaceAround}.Layout(gtx,
		layout.Rigid(func(gtx C) D {
			gtx.Constraints.Min = image.Point{}
			return material.Body1(ui.th, msg).Layout(gtx)
		}),
	)
}

func (ui *UI) layoutCardBody(gtx C, it *GridItem) D {
	cd := ui.cards[it.ID]
	if cd == nil {
		return D{Size: gtx.Constraints.Min}
	}
	switch it.Component.Type {
	case backend.TypeMetric:
		return ui.layoutMetric(gtx, cd)
	case backend.TypeTable:
		return ui.layoutTable(gtx, cd)
	case backend.TypeText:
		return ui.layoutText(gtx, cd)
	case backend.TypeCandlestick:
		return cd.candle.Layout(gtx, ui.th)
	default:
		if cd.chart == nil {
			return D{Size: gtx.Constraints.Min}
		}
		return cd.chart.Layout(gtx, ui.th)
	}
}

// layoutMetric shows the latest value of the first series as a single
// large figure.
func (ui *UI) layoutMetric(gtx C, cd *card) D {
	in := cd.chart.Input()
	value := "—"
	label := ""
	if len(in.Datasets) > 0 && len(in.Datasets[0].Data) > 0 {
		data := in.Datasets[0].Data
		value = fmt.Sprintf("%.2f", data[len(data)-1])
		label = in.Datasets[0].Label
	}
	return layout.Flex{Axis: layout.Vertical, Alignment: layout.Middle, Spacing: layout.SpaceAround}.Layout(gtx,
		layout.Rigid(func(gtx C) D {
			gtx.Constraints.Min = image.Point{}
			return material.H4(ui.th, value).Layout(gtx)
		}),
		layout.Rigid(func(gtx C) D {
			gtx.Constraints.Min = image.Point{}
			return material.Body2(ui.th, label).Layout(gtx)
		}),
	)
}

func (ui *UI) layoutTable(gtx C, cd *card) D {
	in := cd.chart.Input()
	table := component.Table(ui.th, &cd.tableState)
	table.HScrollbarStyle.Indicator.MinorWidth = 0
	table.HScrollbarStyle.Track.MinorPadding = 0
	numCols := len(in.Datasets) + 1
	rowHeight := gtx.Sp(20)
	colWidth := gtx.Constraints.Max.X / numCols
	return table.Layout(gtx, len(in.Labels), numCols,
		func(axis layout.Axis, index, constraint int) int {
			if axis == layout.Vertical {
				return min(constraint, rowHeight)
			}
			return min(colWidth, constraint)
		},
		func(gtx C, index int) D {
			label := "Label"
			if index > 0 && index-1 < len(in.Datasets) {
				label = in.Datasets[index-1].Label
			}
			l := material.Body2(ui.th, label)
			l.Color = ui.th.ContrastFg
			return layout.Background{}.Layout(gtx,
				func(gtx C) D {
					fillRect(gtx.Ops, image.Rectangle{Max: gtx.Constraints.Max}, ui.th.ContrastBg)
					return D{Size: gtx.Constraints.Min}
				}, l.Layout)
		},
		func(gtx C, row, col int) D {
			return layout.UniformInset(2).Layout(gtx, func(gtx C) D {
				if col == 0 {
					return material.Body2(ui.th, in.Labels[row]).Layout(gtx)
				}
				ds := in.Datasets[col-1]
				if row >= len(ds.Data) {
					return D{Size: gtx.Constraints.Min}
				}
				l := material.Body2(ui.th, fmt.Sprintf("%.2f", ds.Data[row]))
				l.Alignment = text.End
				return l.Layout(gtx)
			})
		},
	)
}

// layoutText is a freeform note card. Edits stay local; the component
// config is the source of the initial text.
func (ui *UI) layoutText(gtx C, cd *card) D {
	if !cd.textLoaded {
		if s, ok := cd.item.Component.Config["text"].(string); ok {
			cd.textField.SetText(s)
		}
		cd.textLoaded = true
	}
	return layout.UniformInset(4).Layout(gtx, func(gtx C) D {
		return cd.textField.Layout(gtx, ui.th, "Notes")
	})
}
