package geo

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Split partitions the features of fc into n contiguous chunks. The first
// total%n chunks hold one feature more than the rest, so sizes differ by at
// most one; with n > total the trailing chunks are empty.
//
// Every chunk keeps the type and crs of fc. Its name is "<name>_<i>", or
// "chunk_<i>" when fc has no name, counting from 1.
func Split(fc *FeatureCollection, n int) ([]FeatureCollection, error) {
	if n < 1 {
		return nil, eris.Wrapf(ErrInvalidChunks, "got %d", n)
	}
	if fc == nil || len(fc.Features) == 0 {
		return nil, ErrEmpty
	}

	total := len(fc.Features)
	size, extra := total/n, total%n

	chunks := make([]FeatureCollection, 0, n)
	start := 0
	for i := range n {
		count := size
		if i < extra {
			count++
		}

		features := make([]Feature, count)
		copy(features, fc.Features[start:start+count])
		start += count

		chunks = append(chunks, FeatureCollection{
			Type:     fc.Type,
			Name:     ChunkName(fc.Name, i+1),
			CRS:      fc.CRS,
			Features: features,
		})
	}

	return chunks, nil
}

// ChunkName returns the name of the i-th chunk (1-based) of a collection.
func ChunkName(name string, i int) string {
	if name == "" {
		return fmt.Sprintf("chunk_%d", i)
	}
	return fmt.Sprintf("%s_%d", name, i)
}

// ChunkFileName returns the download file name of the i-th chunk (1-based).
func ChunkFileName(i int) string {
	return fmt.Sprintf("geojson_chunk_%d.geojson", i)
}

// ChunkSizes returns the chunk sizes Split would produce for total features.
func ChunkSizes(total, n int) []int {
	if n < 1 {
		return nil
	}
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = total / n
		if i < total%n {
			sizes[i]++
		}
	}
	return sizes
}
