package geo_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/et-mohedano/demo-delegados/pkg/geo"
)

func writeCollection(
	t *testing.T, dir, name string, fc *geojson.FeatureCollection,
) string {
	t.Helper()

	data, err := json.Marshal(fc)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("loads primary and secondary", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		primary := writeCollection(t, dir, "colonias.json",
			collection(namedFeature("Centro", square(0, 0))))
		secondary := writeCollection(t, dir, "irregular.json",
			collection(namedFeature("Asentamiento Norte", square(2, 2))))

		loader := geo.NewLoader(testLogger(), time.Second)

		regions, irregular, err := loader.Load(ctx, primary, secondary)
		require.NoError(t, err)
		assert.Equal(t, 1, regions.Len())
		assert.Equal(t, 1, irregular.Len())
	})

	t.Run("missing secondary is tolerated", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		primary := writeCollection(t, dir, "colonias.json",
			collection(namedFeature("Centro", square(0, 0))))

		loader := geo.NewLoader(testLogger(), time.Second)

		regions, irregular, err := loader.Load(
			ctx, primary, filepath.Join(dir, "missing.json"),
		)
		require.NoError(t, err)
		assert.Equal(t, 1, regions.Len())
		assert.Equal(t, 0, irregular.Len())
	})

	t.Run("corrupt secondary is tolerated", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		primary := writeCollection(t, dir, "colonias.json",
			collection(namedFeature("Centro", square(0, 0))))

		corrupt := filepath.Join(dir, "irregular.json")
		require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))

		loader := geo.NewLoader(testLogger(), time.Second)

		regions, irregular, err := loader.Load(ctx, primary, corrupt)
		require.NoError(t, err)
		assert.Equal(t, 1, regions.Len())
		assert.Equal(t, 0, irregular.Len())
	})

	t.Run("no secondary configured", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		primary := writeCollection(t, dir, "colonias.json",
			collection(namedFeature("Centro", square(0, 0))))

		loader := geo.NewLoader(testLogger(), time.Second)

		_, irregular, err := loader.Load(ctx, primary, "")
		require.NoError(t, err)
		assert.Equal(t, 0, irregular.Len())
	})

	t.Run("missing primary is fatal", func(t *testing.T) {
		t.Parallel()

		loader := geo.NewLoader(testLogger(), time.Second)

		_, _, err := loader.Load(
			ctx, filepath.Join(t.TempDir(), "missing.json"), "",
		)
		require.Error(t, err)
	})

	t.Run("duplicate names in primary are fatal", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		primary := writeCollection(t, dir, "colonias.json",
			collection(
				namedFeature("Centro", square(0, 0)),
				namedFeature("Centro", square(2, 2)),
			))

		loader := geo.NewLoader(testLogger(), time.Second)

		_, _, err := loader.Load(ctx, primary, "")
		require.ErrorIs(t, err, geo.ErrDuplicateRegion)
	})
}
