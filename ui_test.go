package main

import (
	"testing"

	"github.com/finboard/finboard/backend"
)

func TestSetCandleStatsFillsHeaderSubtitle(t *testing.T) {
	it := &GridItem{ID: "c1", Component: backend.Component{Name: "AAPL"}}
	ui := &UI{cards: map[string]*card{"c1": {item: it}}}

	ui.setCandleStats("c1", HeaderStats{Current: 110, ChangeAbs: 10, ChangePct: 10})
	if want := "110.00  +10.00 (+10.00%)"; it.Subtitle != want {
		t.Errorf("subtitle = %q, want %q", it.Subtitle, want)
	}

	ui.setCandleStats("c1", HeaderStats{Current: 95, ChangeAbs: -5, ChangePct: -5})
	if want := "95.00  -5.00 (-5.00%)"; it.Subtitle != want {
		t.Errorf("subtitle = %q, want %q", it.Subtitle, want)
	}

	// Stats for a card that no longer exists are dropped.
	ui.setCandleStats("gone", HeaderStats{Current: 1})
	if it.Subtitle == "" {
		t.Error("unrelated stats must not clear the existing subtitle")
	}
}
