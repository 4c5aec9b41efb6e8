package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/geojsonkit/internal/geo"
)

const (
	docOne = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"n":1},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}},
	  {"type":"Feature","properties":{"n":2},"geometry":{"type":"Polygon","coordinates":[[[5,5],[6,5],[6,6],[5,5]]]}}]}`
	docTwo = `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"n":3},"geometry":{"type":"Polygon","coordinates":[[[5,5],[6,6],[6,5],[5,5]]]}}]}`
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "merged.geojson")

	cmd := &MergeCommand{Output: out, MatchPolicy: "geohash"}
	cmd.Args.Files = []string{
		writeFile(t, dir, "a.geojson", docOne),
		writeFile(t, dir, "b.geojson", docTwo),
		filepath.Join(dir, "missing.geojson"),
	}
	require.NoError(t, cmd.Execute(nil))

	fc, err := geo.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestMergeCommand_Minify(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "merged.geojson")

	cmd := &MergeCommand{Output: out, MatchPolicy: "geohash", Minify: true}
	cmd.Args.Files = []string{writeFile(t, dir, "a.geojson", docOne)}
	require.NoError(t, cmd.Execute(nil))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "\n"))
	assert.True(t, strings.HasSuffix(string(raw), "}\n"))
	assert.NotContains(t, string(raw), " ")

	fc, err := geo.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestMergeCommand_NoContent(t *testing.T) {
	dir := t.TempDir()

	cmd := &MergeCommand{Output: filepath.Join(dir, "merged.geojson")}
	cmd.Args.Files = []string{writeFile(t, dir, "bad.geojson", "not json")}

	err := cmd.Execute(nil)
	assert.ErrorIs(t, err, geo.ErrNoContent)
	assert.NoFileExists(t, cmd.Output)
}

func TestCompareCommand_YAML(t *testing.T) {
	dir := t.TempDir()

	cmd := &CompareCommand{Format: "yaml", Output: filepath.Join(dir, "report.yaml")}
	cmd.Args.First = writeFile(t, dir, "a.geojson", docOne)
	cmd.Args.Second = writeFile(t, dir, "b.geojson", docTwo)
	require.NoError(t, cmd.Execute(nil))

	raw, err := os.ReadFile(cmd.Output)
	require.NoError(t, err)

	var cmp geo.Comparison
	require.NoError(t, yaml.Unmarshal(raw, &cmp))
	assert.Equal(t, 1, cmp.MatchedCount)
	assert.Len(t, cmp.OnlyFirst, 1)
	assert.Empty(t, cmp.OnlySecond)
}

func TestCompareCommand_Text(t *testing.T) {
	dir := t.TempDir()

	cmd := &CompareCommand{Format: "text", Output: filepath.Join(dir, "report.txt")}
	cmd.Args.First = writeFile(t, dir, "a.geojson", docOne)
	cmd.Args.Second = cmd.Args.First
	require.NoError(t, cmd.Execute(nil))

	raw, err := os.ReadFile(cmd.Output)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "identical")
}

func TestSplitCommand(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "chunks")

	cmd := &SplitCommand{Chunks: 3, Dir: outDir, Concurrency: 2}
	cmd.Args.File = writeFile(t, dir, "a.geojson", docOne)
	require.NoError(t, cmd.Execute(nil))

	sizes := []int{1, 1, 0}
	for i, want := range sizes {
		fc, err := geo.ReadFile(filepath.Join(outDir, geo.ChunkFileName(i+1)))
		require.NoError(t, err)
		assert.Len(t, fc.Features, want)
	}
}

func TestSplitCommand_InvalidChunks(t *testing.T) {
	dir := t.TempDir()

	cmd := &SplitCommand{Chunks: 0, Dir: dir}
	cmd.Args.File = writeFile(t, dir, "a.geojson", docOne)
	assert.ErrorIs(t, cmd.Execute(nil), geo.ErrInvalidChunks)
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()

	cmd := &PreviewCommand{Output: filepath.Join(dir, "p.webp"), Size: 32, Quality: 80}
	cmd.Args.File = writeFile(t, dir, "a.geojson", docOne)
	require.NoError(t, cmd.Execute(nil))

	info, err := os.Stat(cmd.Output)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestMinifyCommand(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "min")

	cmd := &MinifyCommand{Dir: outDir}
	cmd.Args.Files = []string{writeFile(t, dir, "a.geojson", docOne)}
	require.NoError(t, cmd.Execute(nil))

	raw, err := os.ReadFile(filepath.Join(outDir, "a.geojson"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "\n")
	assert.Less(t, len(raw), len(docOne))

	fc, err := geo.DecodeBytes(raw)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestMinifyCommand_Invalid(t *testing.T) {
	dir := t.TempDir()

	cmd := &MinifyCommand{}
	cmd.Args.Files = []string{writeFile(t, dir, "bad.geojson", "{")}
	assert.ErrorIs(t, cmd.Execute(nil), geo.ErrMalformed)
}
