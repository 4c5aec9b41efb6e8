package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_Identical(t *testing.T) {
	a := numbered(t, 5)
	b := numbered(t, 5)

	cmp, err := Compare(a, b)
	require.NoError(t, err)

	assert.True(t, cmp.Identical)
	assert.Equal(t, 5, cmp.MatchedCount)
	assert.Empty(t, cmp.OnlyFirst)
	assert.Empty(t, cmp.OnlySecond)
	assert.Equal(t, LevelSuccess, cmp.Outcome().Level)
	assert.Contains(t, cmp.Report(), "identical")
}

func TestCompare_RepeatedGeometryCounts(t *testing.T) {
	dup := func() *FeatureCollection {
		return collection(polygon(t, square(0, 0)), polygon(t, square(0, 0)), polygon(t, square(4, 4)))
	}

	// identical inputs count features; the hashing path counts distinct hashes
	same, err := Compare(dup(), dup())
	require.NoError(t, err)
	assert.True(t, same.Identical)
	assert.Equal(t, 3, same.MatchedCount)

	edited := dup()
	edited.Features[2].Properties = map[string]any{"note": "edited"}

	hashed, err := Compare(dup(), edited)
	require.NoError(t, err)
	assert.False(t, hashed.Identical)
	assert.Equal(t, 2, hashed.MatchedCount)
	assert.Empty(t, hashed.OnlyFirst)
	assert.Empty(t, hashed.OnlySecond)
}

func TestCompare_SameGeometriesDifferentProperties(t *testing.T) {
	a := numbered(t, 3)
	b := numbered(t, 3)
	b.Features[1].Properties["note"] = "edited"

	cmp, err := Compare(a, b)
	require.NoError(t, err)

	assert.False(t, cmp.Identical)
	assert.Equal(t, 3, cmp.MatchedCount)
	assert.Empty(t, cmp.OnlyFirst)
	assert.Empty(t, cmp.OnlySecond)
	assert.Equal(t, LevelSuccess, cmp.Outcome().Level)
}

func TestCompare_PartialOverlap(t *testing.T) {
	shared := polygon(t, square(0, 0))
	onlyA := polygon(t, square(10, 10))
	onlyB1 := polygon(t, square(20, 20))
	onlyB2 := polygon(t, square(30, 30))

	a := collection(shared, onlyA)
	b := collection(onlyB1, shared, onlyB2)

	cmp, err := Compare(a, b)
	require.NoError(t, err)

	hShared, _ := GeoHash(shared)
	hA, _ := GeoHash(onlyA)
	hB1, _ := GeoHash(onlyB1)
	hB2, _ := GeoHash(onlyB2)

	assert.Equal(t, 1, cmp.MatchedCount)
	assert.Equal(t, []string{hShared}, cmp.Matched)
	assert.Equal(t, []string{hA}, cmp.OnlyFirst)
	assert.Equal(t, []string{hB1, hB2}, cmp.OnlySecond)
	assert.Equal(t, LevelError, cmp.Outcome().Level)

	report := cmp.Report()
	assert.Contains(t, report, "Matched: 1")
	assert.Contains(t, report, "Unmatched in first file (1):")
	assert.Contains(t, report, "Unmatched in second file (2):")
	assert.True(t, strings.Contains(report, hB2))
}

func TestCompare_Symmetry(t *testing.T) {
	a := collection(polygon(t, square(0, 0)), polygon(t, square(1, 5)), polygon(t, square(7, 7)))
	b := collection(polygon(t, square(7, 7)), polygon(t, square(3, 3)))

	ab, err := Compare(a, b)
	require.NoError(t, err)
	ba, err := Compare(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab.MatchedCount, ba.MatchedCount)
	assert.ElementsMatch(t, ab.OnlyFirst, ba.OnlySecond)
	assert.ElementsMatch(t, ab.OnlySecond, ba.OnlyFirst)
}

func TestCompare_ReorderedPointsMatch(t *testing.T) {
	ring := square(4, 4)
	reversed := make([][2]float64, len(ring))
	for i := range ring {
		reversed[i] = ring[len(ring)-1-i]
	}

	cmp, err := Compare(collection(polygon(t, ring)), collection(polygon(t, reversed)))
	require.NoError(t, err)

	assert.False(t, cmp.Identical)
	assert.Equal(t, 1, cmp.MatchedCount)
}

func TestCompare_MalformedFeature(t *testing.T) {
	a := collection(Feature{Type: "Feature"})
	b := collection(polygon(t, square(0, 0)))

	_, err := Compare(a, b)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCompare_NilCollection(t *testing.T) {
	_, err := Compare(nil, collection())
	assert.ErrorIs(t, err, ErrMalformed)
}
