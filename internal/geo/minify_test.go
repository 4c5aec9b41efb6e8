package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinify(t *testing.T) {
	out, err := Minify([]byte(sampleGeoJSON))
	require.NoError(t, err)

	assert.Less(t, len(out), len(sampleGeoJSON))
	assert.NotContains(t, string(out), "\n")
	assert.Contains(t, string(out), "76.1")

	fc, err := DecodeBytes(out)
	require.NoError(t, err)
	orig, err := DecodeBytes([]byte(sampleGeoJSON))
	require.NoError(t, err)
	assert.True(t, orig.Equal(fc))
}
