// Package manifest parses the CSV manifests that drive uploads and merges.
package manifest

import (
	"encoding/csv"
	"io"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// Column names expected in the CSV headers.
const (
	ColumnRef     = "BL_LR_IF"
	ColumnBatchID = "Batch_ID"
	ColumnGroupID = "FG_ID"
	ColumnInbound = "InBound_BL_LR_IF"
)

var (
	// ErrMissingColumns is returned when a required header is absent.
	ErrMissingColumns = eris.New("missing required columns")
	// ErrNoRows is returned when a manifest has a header but no usable rows.
	ErrNoRows = eris.New("manifest has no rows")
)

// Entry is one reference of an inward manifest with all its batch ids.
type Entry struct {
	Ref      string   `json:"ref" yaml:"ref"`
	BatchIDs []string `json:"batch_ids" yaml:"batch_ids"`
}

type inwardRow struct {
	Ref     string `csv:"BL_LR_IF"`
	BatchID string `csv:"Batch_ID"`
}

type mergeRow struct {
	GroupID string `csv:"FG_ID"`
	Inbound string `csv:"InBound_BL_LR_IF"`
}

// ParseInward reads an inward manifest and groups batch ids by reference.
// Entries keep the order in which references first appear; rows without a
// reference are ignored.
func ParseInward(r io.Reader) ([]Entry, error) {
	dec, err := newDecoder(r, ColumnRef, ColumnBatchID)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	index := make(map[string]int)

	for {
		var row inwardRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "decode inward manifest row")
		}

		ref := strings.TrimSpace(row.Ref)
		if ref == "" {
			continue
		}

		i, ok := index[ref]
		if !ok {
			i = len(entries)
			index[ref] = i
			entries = append(entries, Entry{Ref: ref, BatchIDs: []string{}})
		}
		if id := strings.TrimSpace(row.BatchID); id != "" {
			entries[i].BatchIDs = append(entries[i].BatchIDs, id)
		}
	}

	if len(entries) == 0 {
		return nil, ErrNoRows
	}

	return entries, nil
}

// ParseMergeRequest reads a merge request CSV and returns the distinct inbound
// references in order of first appearance.
func ParseMergeRequest(r io.Reader) ([]string, error) {
	dec, err := newDecoder(r, ColumnGroupID, ColumnInbound)
	if err != nil {
		return nil, err
	}

	var refs []string
	seen := make(map[string]struct{})

	for {
		var row mergeRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "decode merge request row")
		}

		ref := strings.TrimSpace(row.Inbound)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil, ErrNoRows
	}

	return refs, nil
}

// MissingColumnsMessage is the user facing text for a header check failure.
func MissingColumnsMessage(columns ...string) string {
	return "CSV must contain " + strings.Join(columns, " and ") + " columns."
}

func newDecoder(r io.Reader, required ...string) (*csvutil.Decoder, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err == io.EOF {
		return nil, eris.Wrap(ErrMissingColumns, MissingColumnsMessage(required...))
	}
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}

	header := dec.Header()
	for _, col := range required {
		if !slices.Contains(header, col) {
			return nil, eris.Wrap(ErrMissingColumns, MissingColumnsMessage(required...))
		}
	}

	return dec, nil
}
