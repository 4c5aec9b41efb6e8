package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// Decode reads a feature collection from r. Invalid JSON, data after the
// document or a document without a features array is reported as
// ErrMalformed. Errors from r itself are returned wrapped, not as
// ErrMalformed.
func Decode(r io.Reader) (*FeatureCollection, error) {
	var doc struct {
		FeatureCollection
		Features *[]Feature `json:"features"`
	}

	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, decodeError(err)
	}

	switch _, err := dec.Token(); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, decodeError(err)
	default:
		return nil, eris.Wrap(ErrMalformed, "unexpected data after the document")
	}

	if doc.Features == nil {
		return nil, eris.Wrap(ErrMalformed, "features field is missing")
	}

	fc := doc.FeatureCollection
	fc.Features = *doc.Features
	if fc.Type == "" {
		fc.Type = TypeFeatureCollection
	}

	return &fc, nil
}

// decodeError tells syntax problems in the document from failures of the
// underlying reader.
func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return eris.Wrap(ErrMalformed, err.Error())
	default:
		return eris.Wrap(err, "read geojson")
	}
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(data []byte) (*FeatureCollection, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile reads a feature collection from a file on disk.
func ReadFile(path string) (*FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	fc, err := Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	return fc, nil
}

// Encode writes fc as JSON to w.
func Encode(w io.Writer, fc *FeatureCollection) error {
	return json.NewEncoder(w).Encode(fc)
}

// WriteFile marshals the feature collection and writes it to disk,
// creating the parent directory when needed.
func WriteFile(path string, fc *FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return eris.Wrapf(err, "create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return Encode(f, fc)
}
