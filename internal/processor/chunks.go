package processor

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/woozymasta/geojsonkit/internal/geo"
)

// WriteChunks writes each chunk to dir as geojson_chunk_<i>.geojson with at
// most concurrency files open at once. It returns the written paths in chunk
// order; the first failed write aborts the result.
func WriteChunks(dir string, chunks []geo.FeatureCollection, concurrency int) ([]string, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	paths := make([]string, len(chunks))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i := range chunks {
		paths[i] = filepath.Join(dir, geo.ChunkFileName(i+1))

		g.Go(func() error {
			if err := geo.WriteFile(paths[i], &chunks[i]); err != nil {
				return eris.Wrapf(err, "write chunk %d", i+1)
			}

			log.Debug().
				Str("file", paths[i]).
				Int("features", len(chunks[i].Features)).
				Msg("Chunk written")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return paths, nil
}
