package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woozymasta/geojsonkit/internal/geo"
)

func pointDoc(x int) string {
	return fmt.Sprintf(`{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[%d,1]}}]}`, x)
}

func TestLoadSources_KeepsOrder(t *testing.T) {
	dir := t.TempDir()

	var paths []string
	for i := 0; i < 12; i++ {
		p := filepath.Join(dir, fmt.Sprintf("src_%02d.geojson", i))
		require.NoError(t, os.WriteFile(p, []byte(pointDoc(i)), 0644))
		paths = append(paths, p)
	}

	sources := LoadSources(paths, 4)
	require.Len(t, sources, len(paths))
	for i, src := range sources {
		assert.Equal(t, paths[i], src.Key)
		require.NotNil(t, src.Collection)
		assert.Len(t, src.Collection.Features, 1)
	}
}

func TestLoadSources_MissingAndInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0644))

	absent := filepath.Join(dir, "absent.geojson")
	sources := LoadSources([]string{absent, bad}, 0)
	require.Len(t, sources, 2)

	assert.Equal(t, absent, sources[0].Key)
	assert.Nil(t, sources[0].Collection)

	require.NotNil(t, sources[1].Collection)
	assert.Empty(t, sources[1].Collection.Features)

	res, err := geo.Merge(sources)
	assert.ErrorIs(t, err, geo.ErrNoContent)
	assert.Len(t, res.Outcomes, 3)
}

func TestLoadSources_SameBaseName(t *testing.T) {
	first := filepath.Join(t.TempDir(), "area.geojson")
	second := filepath.Join(t.TempDir(), "area.geojson")
	require.NoError(t, os.WriteFile(first, []byte(pointDoc(1)), 0644))
	require.NoError(t, os.WriteFile(second, []byte(pointDoc(2)), 0644))

	res, err := geo.Merge(LoadSources([]string{first, second}, 2))
	require.NoError(t, err)

	assert.Len(t, res.Collection.Features, 2)
	assert.Equal(t, []string{first, second}, res.Contributors)
}

func TestLoadSources_SamePathTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area.geojson")
	require.NoError(t, os.WriteFile(path, []byte(pointDoc(1)), 0644))

	res, err := geo.Merge(LoadSources([]string{path, path}, 2))
	require.NoError(t, err)

	assert.Len(t, res.Collection.Features, 1)
	assert.Equal(t, []string{path}, res.Contributors)
	assert.Equal(t, geo.LevelWarning, res.Outcomes[0].Level)
}

func TestWriteChunks(t *testing.T) {
	fc := geo.NewFeatureCollection()
	for i := 0; i < 5; i++ {
		doc, err := geo.DecodeBytes([]byte(pointDoc(i)))
		require.NoError(t, err)
		fc.Features = append(fc.Features, doc.Features...)
	}

	chunks, err := geo.Split(&fc, 3)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := WriteChunks(dir, chunks, 2)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	for i, p := range paths {
		assert.Equal(t, filepath.Join(dir, geo.ChunkFileName(i+1)), p)
		back, err := geo.ReadFile(p)
		require.NoError(t, err)
		assert.Len(t, back.Features, len(chunks[i].Features))
	}
}
