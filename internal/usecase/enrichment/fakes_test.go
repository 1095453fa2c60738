package enrichment

import (
	"context"
	"sync"
	"time"

	"cultura/internal/domain/event"
	"cultura/internal/ports"
)

type fakeGeocoder struct {
	mu       sync.Mutex
	places   map[string]ports.Place
	reverse  ports.Place
	err      error
	searches int
	reverses int
	onSearch func()
}

func (g *fakeGeocoder) Search(_ context.Context, query string) (ports.Place, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.searches++
	if g.onSearch != nil {
		g.onSearch()
	}
	if g.err != nil {
		return ports.Place{}, false, g.err
	}
	place, ok := g.places[query]
	return place, ok, nil
}

func (g *fakeGeocoder) Reverse(_ context.Context, _ event.Point) (ports.Place, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reverses++
	if g.err != nil {
		return ports.Place{}, false, g.err
	}
	return g.reverse, g.reverse.Postcode != "", nil
}

type memoryCache struct {
	values map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	delete(c.values, key)
	return nil
}

type recordingRunLog struct {
	reports []ports.RunReport
}

func (r *recordingRunLog) RecordRun(_ context.Context, report ports.RunReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func (r *recordingRunLog) RecentRuns(_ context.Context, limit int) ([]ports.RunReport, error) {
	return r.reports, nil
}

type recordingNotifier struct {
	reports []ports.RunReport
}

func (n *recordingNotifier) PublishRun(_ context.Context, report ports.RunReport) error {
	n.reports = append(n.reports, report)
	return nil
}
