package geo

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func polygon(t *testing.T, rings ...[][2]float64) Feature {
	t.Helper()
	coords, err := json.Marshal(rings)
	require.NoError(t, err)
	return Feature{
		Type:       "Feature",
		Geometry:   &Geometry{Type: "Polygon", Coordinates: coords},
		Properties: map[string]any{},
	}
}

func multiPolygon(t *testing.T, polys ...[][][2]float64) Feature {
	t.Helper()
	coords, err := json.Marshal(polys)
	require.NoError(t, err)
	return Feature{
		Type:       "Feature",
		Geometry:   &Geometry{Type: "MultiPolygon", Coordinates: coords},
		Properties: map[string]any{},
	}
}

// square returns a closed ring with the lower-left corner at (x, y).
func square(x, y float64) [][2]float64 {
	return [][2]float64{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}
}

func collection(features ...Feature) *FeatureCollection {
	fc := NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	return &fc
}

// numbered returns n distinct square features tagged with their index.
func numbered(t *testing.T, n int) *FeatureCollection {
	t.Helper()
	fc := NewFeatureCollection()
	for i := range n {
		f := polygon(t, square(float64(i*2), 0))
		f.Properties["idx"] = fmt.Sprint(i)
		fc.Features = append(fc.Features, f)
	}
	return &fc
}
