package geo

import (
	"regexp"

	"github.com/rotisserie/eris"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/json"
)

// MediaType is the registered media type of GeoJSON documents.
const MediaType = "application/geo+json"

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	// numbers are carried verbatim so coordinates keep their precision
	m.AddRegexp(regexp.MustCompile(`[/+]json$`), &json.Minifier{KeepNumbers: true})
	return m
}

// Minify strips insignificant whitespace from a JSON document. Invalid JSON
// is reported as ErrMalformed.
func Minify(data []byte) ([]byte, error) {
	out, err := minifier.Bytes(MediaType, data)
	if err != nil {
		return nil, eris.Wrap(ErrMalformed, err.Error())
	}
	return out, nil
}
