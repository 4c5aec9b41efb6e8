package geo

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Comparison is the result of comparing two collections by GeoHash.
type Comparison struct {
	Matched        []string `json:"matched_hashes" yaml:"matched_hashes"`
	OnlyFirst      []string `json:"unmatched_first" yaml:"unmatched_first"`
	OnlySecond     []string `json:"unmatched_second" yaml:"unmatched_second"`
	MatchedCount   int      `json:"matched" yaml:"matched"`
	FirstFeatures  int      `json:"first_features" yaml:"first_features"`
	SecondFeatures int      `json:"second_features" yaml:"second_features"`
	Identical      bool     `json:"identical" yaml:"identical"`
}

// Compare fingerprints every feature of both collections and reports which
// hashes appear on both sides and which on one side only. Lists follow the
// order of first appearance. Collections with equal encodings short-circuit
// to an identical result without hashing, where MatchedCount is the feature
// count rather than the number of distinct hashes.
func Compare(first, second *FeatureCollection) (*Comparison, error) {
	if first == nil || second == nil {
		return nil, eris.Wrap(ErrMalformed, "both collections are required")
	}

	cmp := &Comparison{
		Matched:        []string{},
		OnlyFirst:      []string{},
		OnlySecond:     []string{},
		FirstFeatures:  len(first.Features),
		SecondFeatures: len(second.Features),
	}

	if first.Equal(second) {
		cmp.Identical = true
		cmp.MatchedCount = len(first.Features)
		return cmp, nil
	}

	firstHashes, firstIndex, err := hashIndex(first)
	if err != nil {
		return nil, eris.Wrap(err, "first collection")
	}
	secondHashes, secondIndex, err := hashIndex(second)
	if err != nil {
		return nil, eris.Wrap(err, "second collection")
	}

	for _, h := range firstHashes {
		if _, ok := secondIndex[h]; ok {
			cmp.Matched = append(cmp.Matched, h)
		} else {
			cmp.OnlyFirst = append(cmp.OnlyFirst, h)
		}
	}
	for _, h := range secondHashes {
		if _, ok := firstIndex[h]; !ok {
			cmp.OnlySecond = append(cmp.OnlySecond, h)
		}
	}
	cmp.MatchedCount = len(cmp.Matched)

	return cmp, nil
}

// hashIndex returns the distinct hashes of fc in order and a hash to feature
// map. The first feature with a given hash is kept.
func hashIndex(fc *FeatureCollection) ([]string, map[string]Feature, error) {
	order := make([]string, 0, len(fc.Features))
	index := make(map[string]Feature, len(fc.Features))

	for i, f := range fc.Features {
		h, err := GeoHash(f)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "feature %d", i)
		}
		if _, ok := index[h]; ok {
			continue
		}
		index[h] = f
		order = append(order, h)
	}

	return order, index, nil
}

// Outcome summarizes the comparison as a labeled message.
func (c *Comparison) Outcome() Outcome {
	if c.Identical {
		return Success("The two files are identical!")
	}
	if len(c.OnlyFirst) == 0 && len(c.OnlySecond) == 0 {
		return Success(fmt.Sprintf("All %d geometries match.", c.MatchedCount))
	}
	return Failure(fmt.Sprintf("The two files are different! %d matched, %d only in the first file, %d only in the second file.",
		c.MatchedCount, len(c.OnlyFirst), len(c.OnlySecond)))
}

// Report renders the comparison as plain text.
func (c *Comparison) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Features: %d in first file, %d in second file\n", c.FirstFeatures, c.SecondFeatures)
	if c.Identical {
		b.WriteString("Result: identical\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Matched: %d\n", c.MatchedCount)
	writeHashes(&b, "Matched hashes", c.Matched)
	writeHashes(&b, "Unmatched in first file", c.OnlyFirst)
	writeHashes(&b, "Unmatched in second file", c.OnlySecond)

	return b.String()
}

func writeHashes(b *strings.Builder, title string, hashes []string) {
	fmt.Fprintf(b, "\n%s (%d):\n", title, len(hashes))
	for _, h := range hashes {
		b.WriteString("  ")
		b.WriteString(h)
		b.WriteByte('\n')
	}
}
