// Package viewsync keeps the derived views (map markers, region emphasis,
// aggregate statistics) consistent with the report store. Every store
// mutation triggers a full recompute: the rebuild is cheap at this scale and
// cannot drift the way incremental bookkeeping can.
package viewsync

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/et-mohedano/demo-delegados/pkg/catalog"
	"github.com/et-mohedano/demo-delegados/pkg/geo"
	"github.com/et-mohedano/demo-delegados/pkg/report"
	"github.com/et-mohedano/demo-delegados/pkg/session"
)

// Region styling, uniform for every region except the emphasized one.
var (
	regionBaseStyle = Style{
		Color: "#9ca3af", Weight: 1,
		FillColor: "#c7d2fe", FillOpacity: 0.25,
	}
	regionEmphasisStyle = Style{
		Color: "#1f2937", Weight: 3,
		FillColor: "#3b82f6", FillOpacity: 0.18,
	}
	markerDefaultColor = "#111827"
	markerRadius       = 7
)

// Snapshot is the aggregate statistics view. When a session is active the
// counts cover only that delegate's authored reports, otherwise the full
// collection.
type Snapshot struct {
	Total          int            `json:"total"`
	Reported       int            `json:"reported"`
	Resolved       int            `json:"resolved"`
	DistinctThemes int            `json:"distinct_themes"`
	ByTheme        map[string]int `json:"by_theme"`
}

// reportSource is the slice of the store the coordinator reads.
type reportSource interface {
	ListAll() []report.Report
	Subscribe(fn func(report.Event))
}

// sessionSource exposes the active session for stats scoping.
type sessionSource interface {
	Active() (session.Binding, bool)
}

// Coordinator reconciles the downstream views after every store mutation.
type Coordinator struct {
	log      logrus.FieldLogger
	renderer MapRenderer
	regions  *geo.Index
	catalog  *catalog.Catalog
	reports  reportSource
	sessions sessionSource

	mu       sync.Mutex
	markers  []LayerHandle
	emphasis LayerHandle
	selected string
	snapshot Snapshot
}

// New creates a coordinator and subscribes it to the store. The initial
// views are empty until Start.
func New(
	log logrus.FieldLogger,
	renderer MapRenderer,
	regions *geo.Index,
	cat *catalog.Catalog,
	reports reportSource,
	sessions sessionSource,
) *Coordinator {
	c := &Coordinator{
		log:      log.WithField("component", "viewsync"),
		renderer: renderer,
		regions:  regions,
		catalog:  cat,
		reports:  reports,
		sessions: sessions,
	}

	reports.Subscribe(c.onEvent)

	return c
}

// Start renders the base region layer, frames the map on the full extent
// and computes the initial views.
func (c *Coordinator) Start() {
	for name := range c.regions.Names() {
		g, err := c.regions.Lookup(name)
		if err != nil {
			continue
		}

		c.renderer.RenderPolygon(g, regionBaseStyle)
	}

	if b, ok := c.regions.Bounds(); ok {
		c.renderer.FitView(b)
	}

	c.Refresh()
}

func (c *Coordinator) onEvent(ev report.Event) {
	c.log.WithField("op", string(ev.Op)).
		WithField("report", ev.Report.ID).
		Debug("Store mutation, refreshing views")

	c.Refresh()
}

// Refresh rebuilds the marker layer and the statistics from the current
// collection. Markers are always fully replaced: exactly one marker per
// current report, none for deleted ones.
func (c *Coordinator) Refresh() {
	all := c.reports.ListAll()

	scoped := all
	if b, ok := c.sessions.Active(); ok {
		scoped = filterByAuthor(all, b.Username)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, h := range c.markers {
		c.renderer.RemoveLayer(h)
	}

	c.markers = c.markers[:0]

	for _, r := range all {
		color, ok := c.catalog.Color(r.Theme)
		if !ok {
			color = markerDefaultColor
		}

		style := Style{
			Color: color, FillColor: color,
			Radius: markerRadius, FillOpacity: 0.85,
		}

		content := fmt.Sprintf("%s • %s → %s",
			r.Theme, r.Variable, r.ConditionState)

		c.markers = append(c.markers,
			c.renderer.RenderMarker(r.Coordinate, style, content))
	}

	c.snapshot = computeSnapshot(scoped)
}

// SelectRegion emphasizes one region (or clears the emphasis when name is
// empty). The previous emphasis layer is always removed first so highlights
// never stack.
func (c *Coordinator) SelectRegion(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.emphasis != nil {
		c.renderer.RemoveLayer(c.emphasis)
		c.emphasis = nil
	}

	c.selected = ""

	if name == "" {
		if b, ok := c.regions.Bounds(); ok {
			c.renderer.FitView(b)
		}

		return nil
	}

	g, err := c.regions.Lookup(name)
	if err != nil {
		return err
	}

	c.emphasis = c.renderer.RenderPolygon(g, regionEmphasisStyle)
	c.selected = name
	c.renderer.FitView(g.Bound())

	return nil
}

// Selected returns the currently emphasized region name, if any.
func (c *Coordinator) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selected
}

// InvalidateView tells the renderer its viewport changed and re-frames the
// current selection.
func (c *Coordinator) InvalidateView() {
	c.mu.Lock()
	selected := c.selected
	c.mu.Unlock()

	c.renderer.InvalidateSize()

	if selected != "" {
		if g, err := c.regions.Lookup(selected); err == nil {
			c.renderer.FitView(g.Bound())

			return
		}
	}

	if b, ok := c.regions.Bounds(); ok {
		c.renderer.FitView(b)
	}
}

// Stats returns the latest aggregate snapshot.
func (c *Coordinator) Stats() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snapshot
	snap.ByTheme = make(map[string]int, len(c.snapshot.ByTheme))

	for k, v := range c.snapshot.ByTheme {
		snap.ByTheme[k] = v
	}

	return snap
}

func computeSnapshot(reports []report.Report) Snapshot {
	snap := Snapshot{ByTheme: make(map[string]int)}

	for _, r := range reports {
		snap.Total++

		switch r.Status {
		case report.StatusReported:
			snap.Reported++
		case report.StatusResolved:
			snap.Resolved++
		}

		snap.ByTheme[r.Theme]++
	}

	snap.DistinctThemes = len(snap.ByTheme)

	return snap
}

func filterByAuthor(reports []report.Report, username string) []report.Report {
	out := make([]report.Report, 0, len(reports))

	for _, r := range reports {
		if r.AuthorUsername == username {
			out = append(out, r)
		}
	}

	return out
}
