package viewsync

import (
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/et-mohedano/demo-delegados/pkg/report"
)

// LayerHandle identifies a rendered layer so it can be removed later. It is
// opaque to the core; renderers choose their own representation.
type LayerHandle any

// Style carries the visual attributes the core knows about. Rendering
// details beyond these belong to the renderer.
type Style struct {
	Color       string
	Weight      int
	Radius      int
	FillColor   string
	FillOpacity float64
}

// MapRenderer is the external map capability. The core invokes it and never
// implements rendering itself.
type MapRenderer interface {
	RenderPolygon(g orb.Geometry, style Style) LayerHandle
	RenderMarker(c report.Coordinate, style Style, content string) LayerHandle
	RemoveLayer(h LayerHandle)
	FitView(b orb.Bound)
	InvalidateSize()
}

// Compile-time interface check.
var _ MapRenderer = (*LogRenderer)(nil)

// LogRenderer is the default collaborator when no real map is attached: it
// records render calls at debug level. Browser clients render from the HTTP
// API instead.
type LogRenderer struct {
	log  logrus.FieldLogger
	next atomic.Int64
}

// NewLogRenderer creates a renderer that only logs.
func NewLogRenderer(log logrus.FieldLogger) *LogRenderer {
	return &LogRenderer{log: log.WithField("component", "maprenderer")}
}

// RenderPolygon logs the polygon render and returns a fresh handle.
func (r *LogRenderer) RenderPolygon(g orb.Geometry, style Style) LayerHandle {
	h := r.next.Add(1)
	r.log.WithField("layer", h).
		WithField("geometry", g.GeoJSONType()).
		WithField("color", style.Color).
		Debug("Render polygon")

	return h
}

// RenderMarker logs the marker render and returns a fresh handle.
func (r *LogRenderer) RenderMarker(
	c report.Coordinate, style Style, content string,
) LayerHandle {
	h := r.next.Add(1)
	r.log.WithField("layer", h).
		WithField("lat", c.Lat).
		WithField("lng", c.Lng).
		WithField("color", style.Color).
		WithField("content", content).
		Debug("Render marker")

	return h
}

// RemoveLayer logs the removal.
func (r *LogRenderer) RemoveLayer(h LayerHandle) {
	r.log.WithField("layer", h).Debug("Remove layer")
}

// FitView logs the requested framing.
func (r *LogRenderer) FitView(b orb.Bound) {
	r.log.WithField("min", b.Min).WithField("max", b.Max).Debug("Fit view")
}

// InvalidateSize logs the size invalidation.
func (r *LogRenderer) InvalidateSize() {
	r.log.Debug("Invalidate size")
}
