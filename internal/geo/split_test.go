package geo

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_TenIntoThree(t *testing.T) {
	chunks, err := Split(numbered(t, 10), 3)
	require.NoError(t, err)

	sizes := make([]int, len(chunks))
	sum := 0
	for i, c := range chunks {
		sizes[i] = len(c.Features)
		sum += sizes[i]
	}

	assert.Equal(t, []int{4, 3, 3}, sizes)
	assert.Equal(t, 10, sum)
	assert.Equal(t, []int{4, 3, 3}, ChunkSizes(10, 3))
}

func TestSplit_RoundTrip(t *testing.T) {
	for _, total := range []int{1, 2, 7, 10, 13} {
		fc := numbered(t, total)
		for n := 1; n <= total+3; n++ {
			t.Run(fmt.Sprintf("%d_into_%d", total, n), func(t *testing.T) {
				chunks, err := Split(fc, n)
				require.NoError(t, err)
				require.Len(t, chunks, n)

				var joined []Feature
				for i, c := range chunks {
					joined = append(joined, c.Features...)
					if i > 0 {
						diff := len(chunks[i-1].Features) - len(c.Features)
						assert.GreaterOrEqual(t, diff, 0)
						assert.LessOrEqual(t, diff, 1)
					}
				}
				assert.Equal(t, fc.Features, joined)
			})
		}
	}
}

func TestSplit_MoreChunksThanFeatures(t *testing.T) {
	chunks, err := Split(numbered(t, 2), 4)
	require.NoError(t, err)

	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0].Features, 1)
	assert.Len(t, chunks[1].Features, 1)
	assert.Empty(t, chunks[2].Features)
	assert.NotNil(t, chunks[3].Features)
}

func TestSplit_SingleChunk(t *testing.T) {
	fc := numbered(t, 5)
	fc.Name = "parcels"

	chunks, err := Split(fc, 1)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, fc.Features, chunks[0].Features)
	assert.Equal(t, "parcels_1", chunks[0].Name)
}

func TestSplit_InheritsFields(t *testing.T) {
	fc := numbered(t, 4)
	fc.CRS = json.RawMessage(`{"type":"name","properties":{"name":"urn:ogc:def:crs:OGC:1.3:CRS84"}}`)

	chunks, err := Split(fc, 2)
	require.NoError(t, err)

	for i, c := range chunks {
		assert.Equal(t, TypeFeatureCollection, c.Type)
		assert.Equal(t, fc.CRS, c.CRS)
		assert.Equal(t, fmt.Sprintf("chunk_%d", i+1), c.Name)
	}
}

func TestSplit_DoesNotAliasInput(t *testing.T) {
	fc := numbered(t, 4)
	chunks, err := Split(fc, 2)
	require.NoError(t, err)

	chunks[0].Features[0] = Feature{Type: "Feature"}
	assert.NotNil(t, fc.Features[0].Geometry)
}

func TestSplit_Errors(t *testing.T) {
	_, err := Split(collection(), 3)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Split(nil, 3)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Split(numbered(t, 3), 0)
	assert.ErrorIs(t, err, ErrInvalidChunks)
	assert.Equal(t, "invalid-argument", Kind(err))
}

func TestChunkFileName(t *testing.T) {
	assert.Equal(t, "geojson_chunk_3.geojson", ChunkFileName(3))
}
