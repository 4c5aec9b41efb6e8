package geo

import (
	"github.com/rotisserie/eris"
)

// Error conditions reported by the transforms. None of them is fatal; callers
// turn them into outcomes with OutcomeFromError.
var (
	// ErrMalformed marks input that lacks features or a decodable geometry.
	ErrMalformed = eris.New("malformed geojson")
	// ErrEmpty marks input with zero features.
	ErrEmpty = eris.New("no features found")
	// ErrMissingSource marks a source key with no data behind it.
	ErrMissingSource = eris.New("source not found")
	// ErrNoContent is returned by Merge when no source contributed anything.
	ErrNoContent = eris.New("no valid geojson content was found")
	// ErrInvalidChunks marks a chunk count below one.
	ErrInvalidChunks = eris.New("chunk count must be at least 1")
)

// Level labels an outcome message.
type Level string

// Outcome levels, ordered from worst to best.
const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
)

// Outcome is a labeled, human-readable result of an operation.
type Outcome struct {
	Level Level  `json:"type" yaml:"type"`
	Text  string `json:"text" yaml:"text"`
}

// Failure builds an error outcome.
func Failure(text string) Outcome { return Outcome{Level: LevelError, Text: text} }

// Warning builds a warning outcome.
func Warning(text string) Outcome { return Outcome{Level: LevelWarning, Text: text} }

// Success builds a success outcome.
func Success(text string) Outcome { return Outcome{Level: LevelSuccess, Text: text} }

// Kind names the error category of err, or "" if it is not one of ours.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case eris.Is(err, ErrMalformed):
		return "malformed-input"
	case eris.Is(err, ErrEmpty), eris.Is(err, ErrNoContent):
		return "empty-input"
	case eris.Is(err, ErrMissingSource):
		return "missing-source"
	case eris.Is(err, ErrInvalidChunks):
		return "invalid-argument"
	default:
		return ""
	}
}

// OutcomeFromError converts an error into an outcome. Missing sources are
// warnings, everything else is an error.
func OutcomeFromError(err error) Outcome {
	if eris.Is(err, ErrMissingSource) {
		return Warning(err.Error())
	}
	return Failure(err.Error())
}
