// Package preview renders feature collections into small WebP thumbnails.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/chai2010/webp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	xdraw "golang.org/x/image/draw"

	"github.com/woozymasta/geojsonkit/internal/geo"
)

// Defaults used when options are left zero.
const (
	DefaultSize    = 512
	DefaultQuality = 85
	supersample    = 2
	padding        = 0.05
)

var (
	background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	stroke     = color.RGBA{R: 0x1f, G: 0x6f, B: 0xb4, A: 0xff}
)

// Options controls rendering and encoding.
type Options struct {
	Size    int
	Quality float32
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

type path [][2]float64

// Render draws the outlines of every geometry in fc onto a square image of
// the requested size, fitted to the collection bounds.
func Render(fc *geo.FeatureCollection, opts Options) (*image.RGBA, error) {
	opts = opts.withDefaults()
	if fc == nil || len(fc.Features) == 0 {
		return nil, geo.ErrEmpty
	}

	var paths []path
	for i := range fc.Features {
		t, err := fc.Features[i].Geometry.Decode()
		if err != nil {
			return nil, eris.Wrapf(err, "feature %d", i)
		}
		paths = collectPaths(t, paths)
	}
	if len(paths) == 0 {
		return nil, geo.ErrEmpty
	}

	minX, minY, maxX, maxY := bounds(paths)
	spanX, spanY := maxX-minX, maxY-minY
	span := math.Max(spanX, spanY)
	if span == 0 {
		span = 1
	}

	big := opts.Size * supersample
	canvas := image.NewRGBA(image.Rect(0, 0, big, big))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	inner := float64(big) * (1 - 2*padding)
	offX := float64(big)*padding + (inner-inner*spanX/span)/2
	offY := float64(big)*padding + (inner-inner*spanY/span)/2
	project := func(p [2]float64) (float64, float64) {
		x := offX + (p[0]-minX)/span*inner
		// image y grows downwards
		y := float64(big) - (offY + (p[1]-minY)/span*inner)
		return x, y
	}

	for _, pth := range paths {
		if len(pth) == 1 {
			x, y := project(pth[0])
			dot(canvas, x, y, supersample*2)
			continue
		}
		for i := 1; i < len(pth); i++ {
			x0, y0 := project(pth[i-1])
			x1, y1 := project(pth[i])
			line(canvas, x0, y0, x1, y1)
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Over, nil)

	return out, nil
}

// Encode writes img as lossy WebP.
func Encode(w io.Writer, img image.Image, quality float32) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if err := webp.Encode(w, img, &webp.Options{Lossless: false, Quality: quality}); err != nil {
		return eris.Wrap(err, "encode webp")
	}
	return nil
}

// Write renders fc and encodes it to w.
func Write(w io.Writer, fc *geo.FeatureCollection, opts Options) error {
	opts = opts.withDefaults()
	img, err := Render(fc, opts)
	if err != nil {
		return err
	}
	return Encode(w, img, opts.Quality)
}

// collectPaths appends every point sequence of t to dst. Points become
// single-element paths.
func collectPaths(t geom.T, dst []path) []path {
	switch g := t.(type) {
	case *geom.Point:
		dst = append(dst, toPath([]geom.Coord{g.Coords()}))
	case *geom.MultiPoint:
		for _, c := range g.Coords() {
			dst = append(dst, toPath([]geom.Coord{c}))
		}
	case *geom.LineString:
		dst = append(dst, toPath(g.Coords()))
	case *geom.MultiLineString:
		for _, ls := range g.Coords() {
			dst = append(dst, toPath(ls))
		}
	case *geom.Polygon:
		for _, ring := range g.Coords() {
			dst = append(dst, toPath(ring))
		}
	case *geom.MultiPolygon:
		for _, poly := range g.Coords() {
			for _, ring := range poly {
				dst = append(dst, toPath(ring))
			}
		}
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			dst = collectPaths(child, dst)
		}
	}
	return dst
}

func toPath(coords []geom.Coord) path {
	p := make(path, 0, len(coords))
	for _, c := range coords {
		if len(c) >= 2 {
			p = append(p, [2]float64{c[0], c[1]})
		}
	}
	return p
}

func bounds(paths []path) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range paths {
		for _, c := range p {
			minX, maxX = math.Min(minX, c[0]), math.Max(maxX, c[0])
			minY, maxY = math.Min(minY, c[1]), math.Max(maxY, c[1])
		}
	}
	return minX, minY, maxX, maxY
}

// line draws a segment with a simple DDA walk, thickened to the supersample
// factor so it survives the downscale.
func line(img *image.RGBA, x0, y0, x1, y1 float64) {
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if steps == 0 {
		dot(img, x0, y0, supersample)
		return
	}
	dx, dy := (x1-x0)/float64(steps), (y1-y0)/float64(steps)
	for i := 0; i <= steps; i++ {
		dot(img, x0+dx*float64(i), y0+dy*float64(i), supersample)
	}
}

func dot(img *image.RGBA, x, y float64, size int) {
	cx, cy := int(math.Round(x)), int(math.Round(y))
	half := size / 2
	r := image.Rect(cx-half, cy-half, cx-half+size, cy-half+size).Intersect(img.Bounds())
	draw.Draw(img, r, &image.Uniform{C: stroke}, image.Point{}, draw.Src)
}
