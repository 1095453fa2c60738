package catalogconsole

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cultura/internal/ports"
	"cultura/internal/usecase/catalog"
)

const maxShownRuns = 5
const maxShownBuckets = 6

type Options struct {
	Filter          ports.EventFilter
	PageSize        int
	RefreshInterval time.Duration
}

type consoleModel struct {
	ctx             context.Context
	service         *catalog.Service
	runs            ports.RunLog
	filter          ports.EventFilter
	pageSize        int
	refreshInterval time.Duration

	page          catalog.Page
	pageNumber    int
	selectedIndex int
	stats         ports.CatalogStats
	hasStats      bool
	recentRuns    []ports.RunReport
	status        string
}

type eventsLoadedMsg struct {
	page catalog.Page
	err  error
}

type statsLoadedMsg struct {
	stats ports.CatalogStats
	err   error
}

type runsLoadedMsg struct {
	runs []ports.RunReport
	err  error
}

type tickMsg struct{}

// NewModel returns the catalog dashboard. runs may be nil.
func NewModel(ctx context.Context, service *catalog.Service, runs ports.RunLog, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = 15
	}

	return &consoleModel{
		ctx:             ctx,
		service:         service,
		runs:            runs,
		filter:          options.Filter,
		pageSize:        pageSize,
		refreshInterval: interval,
		pageNumber:      1,
		status:          "loading",
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(m.loadEventsCmd(), m.loadStatsCmd(), m.loadRunsCmd(), m.tickCmd())
}

func (m *consoleModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadEventsCmd(), m.loadStatsCmd(), m.loadRunsCmd(), m.tickCmd())
	case eventsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.page = msg.page
		if m.selectedIndex >= len(m.page.Items) {
			m.selectedIndex = len(m.page.Items) - 1
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		if len(m.page.Items) == 0 {
			m.status = "no events"
			return m, nil
		}
		m.status = fmt.Sprintf("page %d/%d, %d events", m.page.Page, m.page.TotalPages, m.page.Total)
		return m, nil
	case statsLoadedMsg:
		if msg.err != nil {
			m.hasStats = false
			m.status = "stats failed: " + msg.err.Error()
			return m, nil
		}
		m.stats = msg.stats
		m.hasStats = true
		return m, nil
	case runsLoadedMsg:
		if msg.err != nil {
			m.status = "run history failed: " + msg.err.Error()
			return m, nil
		}
		m.recentRuns = msg.runs
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, tea.Batch(m.loadEventsCmd(), m.loadStatsCmd(), m.loadRunsCmd())
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.page.Items)-1 {
				m.selectedIndex++
			}
			return m, nil
		case "right", "n":
			if m.pageNumber < m.page.TotalPages {
				m.pageNumber++
				m.selectedIndex = 0
				return m, m.loadEventsCmd()
			}
			return m, nil
		case "left", "p":
			if m.pageNumber > 1 {
				m.pageNumber--
				m.selectedIndex = 0
				return m, m.loadEventsCmd()
			}
			return m, nil
		case "f":
			m.filter.IsFree = toggle(m.filter.IsFree)
			m.pageNumber = 1
			m.selectedIndex = 0
			return m, m.loadEventsCmd()
		case "w":
			m.filter.IsWeekend = toggle(m.filter.IsWeekend)
			m.pageNumber = 1
			m.selectedIndex = 0
			return m, m.loadEventsCmd()
		}
	}
	return m, nil
}

func (m *consoleModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Cultura Console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(describeFilter(m.filter, m.refreshInterval)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Events"))
	builder.WriteString("\n")
	if len(m.page.Items) == 0 {
		builder.WriteString(dimStyle.Render("- no events"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.page.Items {
			line := fmt.Sprintf(
				"#%d %s %s [%s] %s",
				item.ID,
				valueOr(item.EventDate, "----------"),
				valueOr(item.Arrondissement, "-"),
				valueOr(item.CategoryName, "-"),
				valueOr(item.Title, "(untitled)"),
			)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if selected, ok := m.selectedEvent(); ok {
		builder.WriteString(renderDetail(selected))
	} else {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n")
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Catalog"))
	builder.WriteString("\n")
	if !m.hasStats {
		builder.WriteString(dimStyle.Render("- no stats"))
		builder.WriteString("\n")
	} else {
		builder.WriteString(fmt.Sprintf(
			"events=%d categories=%d cities=%d free=%d weekend=%d\n",
			m.stats.TotalEvents,
			m.stats.TotalCategories,
			m.stats.TotalCities,
			m.stats.FreeEvents,
			m.stats.WeekendEvents,
		))
		builder.WriteString("by category: " + formatBuckets(m.stats.ByCategory) + "\n")
		builder.WriteString("by season: " + formatBuckets(m.stats.BySeason) + "\n")
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Runs"))
	builder.WriteString("\n")
	if len(m.recentRuns) == 0 {
		builder.WriteString(dimStyle.Render("- no runs"))
		builder.WriteString("\n")
	} else {
		for _, run := range m.recentRuns {
			builder.WriteString("- " + formatRun(run))
			builder.WriteString("\n")
		}
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  ←/p →/n page  f free  w weekend  g refresh  q quit"))
	return builder.String()
}

func (m *consoleModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *consoleModel) loadEventsCmd() tea.Cmd {
	filter := m.filter
	pageNumber := m.pageNumber
	return func() tea.Msg {
		page, err := m.service.ListEvents(m.ctx, filter, pageNumber, m.pageSize)
		if err != nil {
			return eventsLoadedMsg{err: err}
		}
		return eventsLoadedMsg{page: page}
	}
}

func (m *consoleModel) loadStatsCmd() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.service.Stats(m.ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func (m *consoleModel) loadRunsCmd() tea.Cmd {
	if m.runs == nil {
		return nil
	}
	return func() tea.Msg {
		runs, err := m.runs.RecentRuns(m.ctx, maxShownRuns)
		return runsLoadedMsg{runs: runs, err: err}
	}
}

func (m *consoleModel) selectedEvent() (ports.EventView, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.page.Items) {
		return ports.EventView{}, false
	}
	return m.page.Items[m.selectedIndex], true
}

func renderDetail(item ports.EventView) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Title: %s\n", valueOr(item.Title, "-")))
	builder.WriteString(fmt.Sprintf("Category: %s (parent %s)\n", valueOr(item.CategoryName, "-"), valueOr(item.ParentCategory, "-")))
	builder.WriteString(fmt.Sprintf("Where: %s, %s %s\n",
		firstNonEmpty(valueOr(item.AddressName, ""), valueOr(item.AddressStreet, ""), "-"),
		valueOr(item.Zipcode, ""),
		valueOr(item.CityName, "-"),
	))
	when := valueOr(item.EventDatetime, valueOr(item.EventDate, "-"))
	builder.WriteString(fmt.Sprintf("When: %s %s %s\n", when, valueOr(item.DayOfWeekName, ""), valueOr(item.TimePeriod, "")))
	builder.WriteString(fmt.Sprintf("Free: %t  Weekend: %t  Accessibility: %s\n", item.IsFree, item.IsWeekend, formatFloat(item.Accessibility)))
	if item.DistanceCenter != nil {
		builder.WriteString(fmt.Sprintf("Distance: %.2f km\n", *item.DistanceCenter))
	}
	return builder.String()
}

func describeFilter(filter ports.EventFilter, refresh time.Duration) string {
	parts := []string{}
	if filter.Category != "" {
		parts = append(parts, "category="+filter.Category)
	}
	if filter.City != "" {
		parts = append(parts, "city="+filter.City)
	}
	if filter.Arrondissement != "" {
		parts = append(parts, "arrondissement="+filter.Arrondissement)
	}
	if filter.Season != "" {
		parts = append(parts, "season="+filter.Season)
	}
	if filter.IsFree != nil {
		parts = append(parts, fmt.Sprintf("free=%t", *filter.IsFree))
	}
	if filter.IsWeekend != nil {
		parts = append(parts, fmt.Sprintf("weekend=%t", *filter.IsWeekend))
	}
	if len(parts) == 0 {
		parts = append(parts, "filter=none")
	}
	parts = append(parts, "refresh="+refresh.String())
	return strings.Join(parts, " ")
}

func formatBuckets(buckets []ports.Bucket) string {
	if len(buckets) == 0 {
		return "-"
	}
	sorted := append([]ports.Bucket(nil), buckets...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	if len(sorted) > maxShownBuckets {
		sorted = sorted[:maxShownBuckets]
	}
	parts := make([]string, 0, len(sorted))
	for _, bucket := range sorted {
		parts = append(parts, fmt.Sprintf("%s=%d", bucket.Label, bucket.Count))
	}
	return strings.Join(parts, " ")
}

func formatRun(run ports.RunReport) string {
	keys := make([]string, 0, len(run.Counters))
	for key := range run.Counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	counters := make([]string, 0, len(keys))
	for _, key := range keys {
		counters = append(counters, fmt.Sprintf("%s=%d", key, run.Counters[key]))
	}
	return fmt.Sprintf(
		"%s %s (%s) %s",
		run.FinishedAt.Local().Format("2006-01-02 15:04:05"),
		run.Stage,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		strings.Join(counters, " "),
	)
}

// toggle cycles a tri-state filter: any, true, false.
func toggle(flag *bool) *bool {
	switch {
	case flag == nil:
		v := true
		return &v
	case *flag:
		v := false
		return &v
	default:
		return nil
	}
}

func valueOr(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

func formatFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *f)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
