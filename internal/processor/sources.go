// Package processor runs file-level GeoJSON jobs over a bounded worker pool.
package processor

import (
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geojsonkit/internal/geo"
)

type job struct {
	Path  string
	Index int
}

type result struct {
	Source geo.Source
	Index  int
}

// LoadSources reads every path as a merge source keyed by the path as given,
// using up to concurrency readers. Sources come back in path order. A
// missing file has no content; an undecodable document counts as empty.
func LoadSources(paths []string, concurrency int) []geo.Source {
	if concurrency < 1 {
		concurrency = 1
	}

	jobs := make(chan job, len(paths))
	results := make(chan result, len(paths))

	go func() {
		for i, p := range paths {
			jobs <- job{Path: p, Index: i}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- result{Source: loadSource(j.Path), Index: j.Index}
			}
		}()
	}
	wg.Wait()
	close(results)

	sources := make([]geo.Source, len(paths))
	for res := range results {
		sources[res.Index] = res.Source
	}

	return sources
}

func loadSource(path string) geo.Source {
	src := geo.Source{Key: path}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debug().Str("file", path).Msg("Source file not found")
		return src
	}

	fc, err := geo.ReadFile(path)
	if err != nil {
		log.Debug().Err(err).Str("file", path).Msg("Source is not valid GeoJSON")
		empty := geo.NewFeatureCollection()
		fc = &empty
	}
	src.Collection = fc

	return src
}
