// Package report owns the field report entity and its durable store.
package report

import (
	"time"

	"github.com/paulmach/orb"
)

// Status is the report lifecycle state. Transitions are monotone:
// reported → resolved, never back. Deletion is a removal, not a status.
type Status string

const (
	// StatusReported is the initial status of every report.
	StatusReported Status = "reported"

	// StatusResolved marks a report as attended to.
	StatusResolved Status = "resolved"
)

// Coordinate is a WGS84 position with explicit axis names. The wire and
// storage formats always carry lat/lng fields; conversion to orb's
// (lon, lat) point order happens in exactly one place, Point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the coordinate in orb's (lon, lat) order.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// Report is one immutable-at-the-edges field observation. Only Status ever
// changes after creation.
type Report struct {
	ID                string     `json:"id"`
	AuthorUsername    string     `json:"author_username"`
	AuthorDisplayName string     `json:"author_display_name"`
	Region            string     `json:"region"`
	Theme             string     `json:"theme"`
	Variable          string     `json:"variable"`
	ConditionState    string     `json:"condition_state"`
	Comment           string     `json:"comment,omitempty"`
	Status            Status     `json:"status"`
	Coordinate        Coordinate `json:"coordinate"`
	Attachments       []string   `json:"attachments,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Author identifies the session the report is filed under. Region is the
// author's assigned region, resolved at login.
type Author struct {
	Username    string
	DisplayName string
	Region      string
}

// Draft is a candidate report before validation. It never reaches the
// collection: Create constructs the Report itself once every check passes.
type Draft struct {
	Region         string
	Theme          string
	Variable       string
	ConditionState string
	Comment        string
	Coordinate     Coordinate
	Attachments    []string
}

// Op names a store mutation.
type Op string

// Store mutation operations.
const (
	OpCreate  Op = "create"
	OpResolve Op = "resolve"
	OpRemove  Op = "remove"
)

// Event is delivered to subscribers after every successful mutation.
type Event struct {
	Op     Op
	Report Report
}
