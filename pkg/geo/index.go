// Package geo owns region geometry: loading named polygonal regions from
// GeoJSON, indexing them by name, and answering point-in-polygon queries.
package geo

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// NameProperty is the GeoJSON feature property carrying the region name.
const NameProperty = "NOMBRE"

var (
	// ErrDuplicateRegion is returned when two features share a region name.
	ErrDuplicateRegion = errors.New("duplicate region name")

	// ErrUnknownRegion is returned when a lookup names a region that was
	// never loaded.
	ErrUnknownRegion = errors.New("unknown region")
)

// Index holds the name→geometry mapping for a set of regions. It is built
// once by Load and read-only afterwards, so it is safe for concurrent reads.
type Index struct {
	log     logrus.FieldLogger
	regions map[string]orb.Geometry
	names   []string
	bound   orb.Bound
	loaded  bool
}

// NewIndex creates an empty region index.
func NewIndex(log logrus.FieldLogger) *Index {
	return &Index{
		log:     log.WithField("component", "regionindex"),
		regions: make(map[string]orb.Geometry),
	}
}

// Load indexes every named areal feature in the collection. Features whose
// name property is blank are skipped with a warning: partial geographic data
// is still usable. Two features sharing a name abort the load, so malformed
// source data cannot silently shadow a region.
func (ix *Index) Load(fc *geojson.FeatureCollection) error {
	for _, f := range fc.Features {
		name := strings.TrimSpace(featureName(f))
		if name == "" {
			ix.log.Warn("Skipping region feature with blank name")

			continue
		}

		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			ix.log.WithField("region", name).
				Warn("Skipping region feature with non-areal geometry")

			continue
		}

		if _, exists := ix.regions[name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateRegion, name)
		}

		ix.regions[name] = f.Geometry

		if !ix.loaded {
			ix.bound = f.Geometry.Bound()
			ix.loaded = true
		} else {
			ix.bound = ix.bound.Union(f.Geometry.Bound())
		}
	}

	ix.names = make([]string, 0, len(ix.regions))
	for name := range ix.regions {
		ix.names = append(ix.names, name)
	}

	// Region names are Spanish place names; plain byte order would sort
	// accented names incorrectly.
	collate.New(language.Spanish).SortStrings(ix.names)

	ix.log.WithField("regions", len(ix.regions)).Info("Region index loaded")

	return nil
}

// Lookup returns the geometry for a region name.
func (ix *Index) Lookup(name string) (orb.Geometry, error) {
	g, ok := ix.regions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}

	return g, nil
}

// Names yields all region names in collated ascending order. The sequence is
// restartable and stops early when the consumer does.
func (ix *Index) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range ix.names {
			if !yield(name) {
				return
			}
		}
	}
}

// Len returns the number of indexed regions.
func (ix *Index) Len() int {
	return len(ix.regions)
}

// Bounds returns the envelope of all loaded geometry. ok is false when the
// index is empty.
func (ix *Index) Bounds() (orb.Bound, bool) {
	return ix.bound, ix.loaded
}

// FeatureCollection rebuilds a feature collection from the index, one feature
// per region with the name property set. Used to hand geometry to rendering
// clients.
func (ix *Index) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, name := range ix.names {
		f := geojson.NewFeature(ix.regions[name])
		f.Properties[NameProperty] = name
		fc.Append(f)
	}

	return fc
}

func featureName(f *geojson.Feature) string {
	if v, ok := f.Properties[NameProperty]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}

	return ""
}
