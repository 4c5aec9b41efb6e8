// Package geo handles GeoJSON feature collections and the merge, compare and
// split transforms over them.
package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// TypeFeatureCollection is the GeoJSON type of a feature collection.
const TypeFeatureCollection = "FeatureCollection"

// FeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type FeatureCollection struct {
	CRS      json.RawMessage `json:"crs,omitempty" yaml:"crs,omitempty"`
	BBox     []float64       `json:"bbox,omitempty" yaml:"bbox,omitempty"`
	Type     string          `json:"type" yaml:"type"`
	Name     string          `json:"name,omitempty" yaml:"name,omitempty"`
	Features []Feature       `json:"features" yaml:"features"`
}

// Feature represents a single geographic feature with geometry and properties.
type Feature struct {
	ID         json.RawMessage `json:"id,omitempty" yaml:"id,omitempty"`
	Geometry   *Geometry       `json:"geometry" yaml:"geometry"`
	Properties map[string]any  `json:"properties" yaml:"properties"`
	BBox       []float64       `json:"bbox,omitempty" yaml:"bbox,omitempty"`
	Type       string          `json:"type" yaml:"type"`
}

// Geometry is a GeoJSON geometry with its coordinates kept undecoded.
type Geometry struct {
	Type        string          `json:"type" yaml:"type"`
	Coordinates json.RawMessage `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	Geometries  []Geometry      `json:"geometries,omitempty" yaml:"geometries,omitempty"`
}

// NewFeatureCollection returns an empty collection with the type set.
func NewFeatureCollection() FeatureCollection {
	return FeatureCollection{Type: TypeFeatureCollection, Features: []Feature{}}
}

// Decode parses the geometry into a go-geom value.
func (g *Geometry) Decode() (geom.T, error) {
	if g == nil || g.Type == "" {
		return nil, eris.Wrap(ErrMalformed, "geometry is missing")
	}
	if g.Type != "GeometryCollection" && (len(g.Coordinates) == 0 || string(g.Coordinates) == "null") {
		return nil, eris.Wrapf(ErrMalformed, "%s geometry has no coordinates", g.Type)
	}

	data, err := json.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(ErrMalformed, err.Error())
	}

	var t geom.T
	if err := geojson.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrapf(ErrMalformed, "decode %s geometry: %v", g.Type, err)
	}

	return t, nil
}

// Equal reports whether both collections have the same JSON encoding.
// Coordinates are compared after compaction, so whitespace does not matter.
func (fc *FeatureCollection) Equal(other *FeatureCollection) bool {
	if fc == nil || other == nil {
		return fc == other
	}

	a, errA := json.Marshal(fc)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}

	return string(a) == string(b)
}
