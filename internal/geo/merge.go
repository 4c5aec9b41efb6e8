package geo

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// MatchPolicy selects how Merge decides that two features are duplicates.
type MatchPolicy int

const (
	// MatchGeoHash treats features with the same GeoHash as duplicates.
	MatchGeoHash MatchPolicy = iota
	// MatchExact treats features as duplicates only when their geometries
	// encode identically, including ring order and winding.
	MatchExact
)

// String returns the policy name used in config and flags.
func (p MatchPolicy) String() string {
	if p == MatchExact {
		return "exact"
	}
	return "geohash"
}

// ParseMatchPolicy maps a policy name to its value. Empty means geohash.
func ParseMatchPolicy(name string) (MatchPolicy, error) {
	switch name {
	case "", "geohash":
		return MatchGeoHash, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchGeoHash, eris.Errorf("unknown match policy %q", name)
	}
}

// Key returns the duplicate key of f under the policy.
func (p MatchPolicy) Key(f Feature) (string, error) {
	if p == MatchExact {
		return ExactKey(f)
	}
	return GeoHash(f)
}

// Source is one named input of a merge. A nil Collection means the key had no
// data behind it.
type Source struct {
	Collection *FeatureCollection
	Key        string
}

// MergeResult is the outcome of a merge.
type MergeResult struct {
	Collection   FeatureCollection `json:"merged"`
	Contributors []string          `json:"contributors"`
	Outcomes     []Outcome         `json:"messages"`
	Duplicates   int               `json:"duplicates"`
}

type mergeOptions struct {
	policy MatchPolicy
}

// MergeOption configures Merge.
type MergeOption func(*mergeOptions)

// WithMatchPolicy sets the duplicate detection policy.
func WithMatchPolicy(p MatchPolicy) MergeOption {
	return func(o *mergeOptions) { o.policy = p }
}

// Merge combines the sources into one collection in the order given. A
// feature is appended only if no feature with the same key is already in the
// output, so the first occurrence wins. A repeated source key is merged once
// and each later listing adds a warning outcome.
//
// Sources that are missing, empty or malformed produce warning outcomes and
// are left out. If no source contributes, Merge returns ErrNoContent along
// with the outcomes gathered so far.
func Merge(sources []Source, opts ...MergeOption) (*MergeResult, error) {
	o := mergeOptions{policy: MatchGeoHash}
	for _, opt := range opts {
		opt(&o)
	}

	res := &MergeResult{
		Collection:   NewFeatureCollection(),
		Contributors: []string{},
		Outcomes:     []Outcome{},
	}

	seen := make(map[string]struct{})
	processed := make(map[string]struct{}, len(sources))

	for _, src := range sources {
		if _, ok := processed[src.Key]; ok {
			res.Outcomes = append(res.Outcomes, Warning(fmt.Sprintf("Source %s was listed more than once; only the first was merged.", src.Key)))
			continue
		}
		processed[src.Key] = struct{}{}

		if src.Collection == nil {
			res.Outcomes = append(res.Outcomes, Warning(fmt.Sprintf("No GeoJSON content found for %s.", src.Key)))
			continue
		}
		if len(src.Collection.Features) == 0 {
			res.Outcomes = append(res.Outcomes, Warning(fmt.Sprintf("GeoJSON content for %s is empty or invalid.", src.Key)))
			continue
		}

		// Keys are computed up front so a malformed feature rejects the
		// whole source without leaving part of it in the output.
		keys := make([]string, len(src.Collection.Features))
		var keyErr error
		for i, f := range src.Collection.Features {
			if keys[i], keyErr = o.policy.Key(f); keyErr != nil {
				break
			}
		}
		if keyErr != nil {
			res.Outcomes = append(res.Outcomes, Warning(fmt.Sprintf("GeoJSON content for %s is empty or invalid: %v", src.Key, keyErr)))
			continue
		}

		for i, f := range src.Collection.Features {
			if _, dup := seen[keys[i]]; dup {
				res.Duplicates++
				continue
			}
			seen[keys[i]] = struct{}{}
			res.Collection.Features = append(res.Collection.Features, f)
		}

		res.Contributors = append(res.Contributors, src.Key)
	}

	if len(res.Collection.Features) == 0 {
		res.Outcomes = append(res.Outcomes, Failure("No valid GeoJSON content was found. It might have been deleted or not uploaded yet."))
		return res, ErrNoContent
	}

	res.Outcomes = append(res.Outcomes, Success("Merged GeoJSON created successfully."))
	return res, nil
}
