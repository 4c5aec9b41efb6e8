package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/geojsonkit/internal/geo"
	"github.com/woozymasta/geojsonkit/internal/preview"
	"github.com/woozymasta/geojsonkit/internal/processor"
)

// MergeCommand merges local GeoJSON files.
type MergeCommand struct {
	Output      string `short:"o" long:"out"          description:"Output file path. Writes to stdout if empty"`
	MatchPolicy string `short:"m" long:"match-policy" description:"Duplicate detection" choice:"geohash" choice:"exact" default:"geohash"`
	Minify      bool   `short:"M" long:"minify"       description:"Write compact output"`
	Concurrency int    `short:"p" long:"concurrency"  description:"Files read in parallel" default:"8"`

	Args struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes"`
}

// Execute runs the merge.
func (c *MergeCommand) Execute(_ []string) error {
	policy, err := geo.ParseMatchPolicy(c.MatchPolicy)
	if err != nil {
		return err
	}

	sources := processor.LoadSources(c.Args.Files, c.Concurrency)

	res, mergeErr := geo.Merge(sources, geo.WithMatchPolicy(policy))
	for _, out := range res.Outcomes {
		logOutcome(out)
	}
	if mergeErr != nil {
		return mergeErr
	}

	if err := writeCollection(c.Output, &res.Collection, c.Minify); err != nil {
		return err
	}

	log.Info().
		Strs("contributors", res.Contributors).
		Int("features", len(res.Collection.Features)).
		Int("duplicates", res.Duplicates).
		Msg("Merge finished")

	return nil
}

// CompareCommand compares two local GeoJSON files.
type CompareCommand struct {
	Output string `short:"o" long:"out"    description:"Report file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Report format" choice:"text" choice:"json" choice:"yaml" default:"text"`

	Args struct {
		First  string `positional-arg-name:"FIRST" required:"yes"`
		Second string `positional-arg-name:"SECOND" required:"yes"`
	} `positional-args:"yes"`
}

// Execute runs the comparison.
func (c *CompareCommand) Execute(_ []string) error {
	first, err := geo.ReadFile(c.Args.First)
	if err != nil {
		return err
	}
	second, err := geo.ReadFile(c.Args.Second)
	if err != nil {
		return err
	}

	cmp, err := geo.Compare(first, second)
	if err != nil {
		return err
	}

	var data []byte
	switch c.Format {
	case "yaml":
		data, err = yaml.Marshal(cmp)
	case "json":
		data, err = json.MarshalIndent(cmp, "", "  ")
		data = append(data, '\n')
	default:
		data = []byte(cmp.Report())
	}
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}

	logOutcome(cmp.Outcome())

	return writeOutput(c.Output, data)
}

// SplitCommand splits a local GeoJSON file into chunk files.
type SplitCommand struct {
	Chunks      int    `short:"n" long:"chunks"      description:"Number of chunks" default:"2"`
	Dir         string `short:"d" long:"dir"         description:"Output directory" default:"."`
	Concurrency int    `short:"p" long:"concurrency" description:"Files written in parallel" default:"4"`

	Args struct {
		File string `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes"`
}

// Execute runs the split.
func (c *SplitCommand) Execute(_ []string) error {
	fc, err := geo.ReadFile(c.Args.File)
	if err != nil {
		return err
	}

	chunks, err := geo.Split(fc, c.Chunks)
	if err != nil {
		return err
	}

	paths, err := processor.WriteChunks(c.Dir, chunks, c.Concurrency)
	if err != nil {
		return err
	}

	log.Info().
		Str("dir", c.Dir).
		Int("chunks", len(paths)).
		Ints("sizes", geo.ChunkSizes(len(fc.Features), c.Chunks)).
		Msg("Split finished")

	return nil
}

// PreviewCommand renders a local GeoJSON file as a WebP thumbnail.
type PreviewCommand struct {
	Output  string  `short:"o" long:"out"     description:"Output WebP path" default:"preview.webp"`
	Size    int     `short:"s" long:"size"    description:"Image size in pixels" default:"512"`
	Quality float32 `short:"q" long:"quality" description:"WebP quality" default:"85"`

	Args struct {
		File string `positional-arg-name:"FILE" required:"yes"`
	} `positional-args:"yes"`
}

// Execute renders the preview.
func (c *PreviewCommand) Execute(_ []string) error {
	fc, err := geo.ReadFile(c.Args.File)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := preview.Write(&buf, fc, preview.Options{Size: c.Size, Quality: c.Quality}); err != nil {
		return err
	}

	if err := os.WriteFile(c.Output, buf.Bytes(), 0644); err != nil {
		return eris.Wrapf(err, "write %s", c.Output)
	}

	log.Info().Str("file", c.Output).Int("bytes", buf.Len()).Msg("Preview written")
	return nil
}

// MinifyCommand compacts GeoJSON files in place or into a directory.
type MinifyCommand struct {
	Dir string `short:"d" long:"dir" description:"Output directory. Files are rewritten in place if empty"`

	Args struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes"`
}

// Execute minifies every file.
func (c *MinifyCommand) Execute(_ []string) error {
	for _, path := range c.Args.Files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "read %s", path)
		}

		if _, err := geo.DecodeBytes(raw); err != nil {
			return eris.Wrapf(err, "validate %s", path)
		}

		out, err := geo.Minify(raw)
		if err != nil {
			return eris.Wrapf(err, "minify %s", path)
		}

		dst := path
		if c.Dir != "" {
			if err := os.MkdirAll(c.Dir, 0755); err != nil {
				return eris.Wrapf(err, "create dir %s", c.Dir)
			}
			dst = filepath.Join(c.Dir, filepath.Base(path))
		}

		if err := os.WriteFile(dst, out, 0644); err != nil {
			return eris.Wrapf(err, "write %s", dst)
		}

		log.Info().
			Str("file", dst).
			Int("before", len(raw)).
			Int("after", len(out)).
			Msg("Minified")
	}

	return nil
}

func writeCollection(path string, fc *geo.FeatureCollection, minify bool) error {
	var buf bytes.Buffer
	if minify {
		data, err := json.Marshal(fc)
		if err != nil {
			return eris.Wrap(err, "encode geojson")
		}
		out, err := geo.Minify(data)
		if err != nil {
			return eris.Wrap(err, "minify geojson")
		}
		buf.Write(out)
		buf.WriteByte('\n')
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fc); err != nil {
			return eris.Wrap(err, "encode geojson")
		}
	}

	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return eris.Wrapf(err, "create dir for %s", path)
			}
		}
	}
	return writeOutput(path, buf.Bytes())
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

func logOutcome(out geo.Outcome) {
	level := zerolog.InfoLevel
	switch out.Level {
	case geo.LevelError:
		level = zerolog.ErrorLevel
	case geo.LevelWarning:
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).Msg(strings.TrimSpace(out.Text))
}
