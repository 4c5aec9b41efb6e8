package geo

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// hashPrecision is the number of decimals kept per ordinate in a GeoHash.
const hashPrecision = 6

// GeoHash fingerprints the geometry of a feature. Every coordinate is reduced
// to its first two ordinates, the pairs are sorted by (x, y) and serialized
// with a fixed precision behind the geometry type, then digested with SHA-256.
//
// The result does not depend on point or ring order but does depend on the
// geometry type, so a Polygon and a MultiPolygon with the same points differ.
func GeoHash(f Feature) (string, error) {
	t, err := f.Geometry.Decode()
	if err != nil {
		return "", err
	}

	pairs := flattenPairs(t, nil)
	if len(pairs) == 0 {
		return "", eris.Wrapf(ErrMalformed, "%s geometry has no coordinates", f.Geometry.Type)
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	buf := make([]byte, 0, len(f.Geometry.Type)+1+len(pairs)*24)
	buf = append(buf, f.Geometry.Type...)
	buf = append(buf, '|')
	for i, p := range pairs {
		if i > 0 {
			buf = append(buf, ';')
		}
		buf = strconv.AppendFloat(buf, p[0], 'f', hashPrecision, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, p[1], 'f', hashPrecision, 64)
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// ExactKey fingerprints the full geometry as encoded, so ring order, point
// order and winding are all significant.
func ExactKey(f Feature) (string, error) {
	t, err := f.Geometry.Decode()
	if err != nil {
		return "", err
	}

	data, err := geojson.Marshal(t)
	if err != nil {
		return "", eris.Wrapf(ErrMalformed, "encode %s geometry: %v", f.Geometry.Type, err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// flattenPairs appends the (x, y) of every coordinate in t to dst.
func flattenPairs(t geom.T, dst [][2]float64) [][2]float64 {
	if gc, ok := t.(*geom.GeometryCollection); ok {
		for _, g := range gc.Geoms() {
			dst = flattenPairs(g, dst)
		}
		return dst
	}

	stride := t.Stride()
	if stride < 2 {
		return dst
	}

	flat := t.FlatCoords()
	for i := 0; i+1 < len(flat); i += stride {
		dst = append(dst, [2]float64{flat[i], flat[i+1]})
	}

	return dst
}
