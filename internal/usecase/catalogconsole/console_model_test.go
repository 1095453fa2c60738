package catalogconsole

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cultura/internal/ports"
	"cultura/internal/usecase/catalog"
)

func strPtr(s string) *string { return &s }

func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func samplePage() catalog.Page {
	return catalog.Page{
		Items: []ports.EventView{
			{ID: 1, Title: strPtr("Concert de Jazz"), CategoryName: strPtr("Musique"), EventDate: strPtr("2026-06-13"), Arrondissement: strPtr("4e")},
			{ID: 2, Title: strPtr("Exposition Monet"), CategoryName: strPtr("Exposition"), CityName: strPtr("Paris")},
		},
		Total:      17,
		Page:       1,
		PageSize:   2,
		TotalPages: 9,
	}
}

func newTestModel() *consoleModel {
	model := NewModel(context.Background(), catalog.NewService(nil, catalog.Options{}), nil, Options{PageSize: 2})
	return model.(*consoleModel)
}

func TestConsoleModelRendersLoadedPage(t *testing.T) {
	m := newTestModel()
	m.Update(eventsLoadedMsg{page: samplePage()})
	m.Update(statsLoadedMsg{stats: ports.CatalogStats{
		TotalEvents: 17,
		ByCategory:  []ports.Bucket{{Label: "Musique", Count: 9}, {Label: "Exposition", Count: 8}},
	}})
	m.Update(runsLoadedMsg{runs: []ports.RunReport{{
		Stage:      "load",
		StartedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC),
		Counters:   map[string]int{"inserted": 17, "errors": 0},
	}}})

	view := m.View()
	for _, want := range []string{
		"> #1 2026-06-13 4e [Musique] Concert de Jazz",
		"Title: Concert de Jazz",
		"events=17",
		"by category: Musique=9 Exposition=8",
		"load (2s) errors=0 inserted=17",
		"page 1/9, 17 events",
	} {
		if !strings.Contains(view, want) {
			t.Fatalf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestConsoleModelNavigation(t *testing.T) {
	m := newTestModel()
	m.Update(eventsLoadedMsg{page: samplePage()})

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedIndex != 1 {
		t.Fatalf("selectedIndex = %d, want 1", m.selectedIndex)
	}
	m.Update(keyMsg("j"))
	if m.selectedIndex != 1 {
		t.Fatalf("selectedIndex past end = %d, want 1", m.selectedIndex)
	}

	_, cmd := m.Update(keyMsg("n"))
	if cmd == nil || m.pageNumber != 2 || m.selectedIndex != 0 {
		t.Fatalf("next page = %d (cmd %v), selected %d", m.pageNumber, cmd != nil, m.selectedIndex)
	}
	m.Update(keyMsg("p"))
	if m.pageNumber != 1 {
		t.Fatalf("previous page = %d, want 1", m.pageNumber)
	}
	if _, cmd := m.Update(keyMsg("p")); cmd != nil || m.pageNumber != 1 {
		t.Fatalf("page below 1 = %d", m.pageNumber)
	}

	m.Update(keyMsg("f"))
	if m.filter.IsFree == nil || !*m.filter.IsFree {
		t.Fatalf("free filter = %v, want true", m.filter.IsFree)
	}
	m.Update(keyMsg("f"))
	m.Update(keyMsg("f"))
	if m.filter.IsFree != nil {
		t.Fatalf("free filter after full cycle = %v, want nil", *m.filter.IsFree)
	}
}

func TestConsoleModelKeepsSelectionInRange(t *testing.T) {
	m := newTestModel()
	m.Update(eventsLoadedMsg{page: samplePage()})
	m.selectedIndex = 1

	m.Update(eventsLoadedMsg{page: catalog.Page{Items: []ports.EventView{}}})
	if m.selectedIndex != 0 || m.status != "no events" {
		t.Fatalf("after empty page: selected=%d status=%q", m.selectedIndex, m.status)
	}
	if !strings.Contains(m.View(), "- no detail") {
		t.Fatalf("View() should render the empty detail")
	}
}

func TestDescribeFilter(t *testing.T) {
	free := true
	got := describeFilter(ports.EventFilter{Category: "Musique", IsFree: &free}, 5*time.Second)
	if got != "category=Musique free=true refresh=5s" {
		t.Fatalf("describeFilter() = %q", got)
	}
	if got := describeFilter(ports.EventFilter{}, time.Second); got != "filter=none refresh=1s" {
		t.Fatalf("describeFilter(empty) = %q", got)
	}
}
