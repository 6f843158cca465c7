package geo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Loader fetches region geometry documents from local files or HTTP URLs.
type Loader struct {
	log    logrus.FieldLogger
	client *http.Client
}

// NewLoader creates a loader. The timeout bounds every fetch so a slow
// geometry source fails the load explicitly instead of hanging startup.
func NewLoader(log logrus.FieldLogger, timeout time.Duration) *Loader {
	return &Loader{
		log:    log.WithField("component", "geoloader"),
		client: &http.Client{Timeout: timeout},
	}
}

// Load fetches the primary (colonias) and secondary (irregular settlements)
// documents concurrently and builds an index from each. A failed primary
// load is an error; a missing or corrupt secondary document degrades to an
// empty secondary index.
func (l *Loader) Load(
	ctx context.Context, primarySource, secondarySource string,
) (*Index, *Index, error) {
	primary := NewIndex(l.log)
	secondary := NewIndex(l.log)

	var primaryFC, secondaryFC *geojson.FeatureCollection

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fc, err := l.fetchCollection(gCtx, primarySource)
		if err != nil {
			return fmt.Errorf("loading primary geometry: %w", err)
		}

		primaryFC = fc

		return nil
	})

	g.Go(func() error {
		if secondarySource == "" {
			return nil
		}

		fc, err := l.fetchCollection(gCtx, secondarySource)
		if err != nil {
			// Tolerated: the overlay is optional data.
			l.log.WithError(err).
				WithField("source", secondarySource).
				Warn("Secondary geometry unavailable, continuing without it")

			return nil
		}

		secondaryFC = fc

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if err := primary.Load(primaryFC); err != nil {
		return nil, nil, fmt.Errorf("indexing primary geometry: %w", err)
	}

	if secondaryFC != nil {
		if err := secondary.Load(secondaryFC); err != nil {
			l.log.WithError(err).
				Warn("Secondary geometry rejected, continuing without it")

			secondary = NewIndex(l.log)
		}
	}

	return primary, secondary, nil
}

func (l *Loader) fetchCollection(
	ctx context.Context, source string,
) (*geojson.FeatureCollection, error) {
	data, err := l.fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing feature collection: %w", err)
	}

	return fc, nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") ||
		strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodGet, source, nil,
		)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}

		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", source, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf(
				"fetching %s: unexpected status %d", source, resp.StatusCode,
			)
		}

		return io.ReadAll(resp.Body)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	return data, nil
}
