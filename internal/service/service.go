// Package service ties manifests, the document store and the GeoJSON
// transforms into the operations exposed by the API and the CLI.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geojsonkit/internal/geo"
	"github.com/woozymasta/geojsonkit/internal/manifest"
	"github.com/woozymasta/geojsonkit/internal/preview"
	"github.com/woozymasta/geojsonkit/internal/store"
)

// Service runs the data-entry workflows against a store.
type Service struct {
	store   store.Store
	preview preview.Options
	policy  geo.MatchPolicy
}

// Option configures a Service.
type Option func(*Service)

// WithMatchPolicy sets the duplicate policy used by merges.
func WithMatchPolicy(p geo.MatchPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithPreview sets the default preview options.
func WithPreview(o preview.Options) Option {
	return func(s *Service) { s.preview = o }
}

// New creates a service on top of st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, policy: geo.MatchGeoHash}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportManifest parses an inward manifest and replaces the stored one.
func (s *Service) ImportManifest(ctx context.Context, r io.Reader, filename string) (geo.Outcome, error) {
	entries, err := manifest.ParseInward(r)
	if err != nil {
		return OutcomeFor(err), err
	}

	if err := s.store.ReplaceManifest(ctx, entries); err != nil {
		return geo.Failure("Failed to store the manifest."), err
	}

	log.Info().
		Str("file", filename).
		Int("refs", len(entries)).
		Msg("Manifest imported")

	return geo.Success(fmt.Sprintf("CSV file '%s' uploaded successfully!", filename)), nil
}

// AttachGeoJSON validates the document in r and maps it to ref. A reference
// holds one document; a new upload replaces the old one.
func (s *Service) AttachGeoJSON(ctx context.Context, ref string, r io.Reader) (geo.Outcome, error) {
	if strings.TrimSpace(ref) == "" {
		err := eris.Wrap(geo.ErrMissingSource, "reference is required")
		return geo.Warning("Please select a BL_LR_IF."), err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return geo.Failure("Failed to read the upload."), eris.Wrap(err, "read geojson upload")
	}

	if _, err := geo.DecodeBytes(data); err != nil {
		return geo.Failure("Invalid GeoJSON file."), err
	}

	compact, err := geo.Minify(data)
	if err != nil {
		return geo.Failure("Invalid GeoJSON file."), err
	}

	if err := s.store.AttachGeoJSON(ctx, ref, compact); err != nil {
		return OutcomeFor(err), err
	}

	log.Info().Str("ref", ref).Int("bytes", len(compact)).Msg("GeoJSON attached")

	return geo.Success(fmt.Sprintf("GeoJSON uploaded for BL_LR_IF %s.", ref)), nil
}

// GeoJSON returns the document mapped to ref.
func (s *Service) GeoJSON(ctx context.Context, ref string) (*geo.FeatureCollection, error) {
	rec, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !rec.HasGeoJSON() {
		return nil, eris.Wrapf(geo.ErrMissingSource, "no geojson for %s", ref)
	}
	return geo.DecodeBytes(rec.GeoJSON)
}

// Manifests lists every stored reference.
func (s *Service) Manifests(ctx context.Context) ([]store.Record, error) {
	return s.store.List(ctx)
}

// Unmapped lists references still waiting for a GeoJSON upload.
func (s *Service) Unmapped(ctx context.Context) ([]string, error) {
	return s.store.ListUnmapped(ctx)
}

// DeleteAll removes every stored reference.
func (s *Service) DeleteAll(ctx context.Context) ([]string, geo.Outcome, error) {
	refs, err := s.store.DeleteAll(ctx)
	if err != nil {
		return nil, geo.Failure("Failed to delete entries."), err
	}

	if len(refs) == 0 {
		return refs, geo.Warning("No entries found to delete."), nil
	}

	log.Info().Int("refs", len(refs)).Msg("All entries deleted")

	return refs, geo.Success("The following BL_LR_IF entries were deleted: " + strings.Join(refs, ", ")), nil
}

// MergeFromCSV reads the inbound references of a merge request and merges
// their stored documents.
func (s *Service) MergeFromCSV(ctx context.Context, r io.Reader) (*geo.MergeResult, error) {
	refs, err := manifest.ParseMergeRequest(r)
	if err != nil {
		return nil, err
	}
	return s.MergeRefs(ctx, refs)
}

// MergeRefs loads each reference as a merge source, in order, and merges
// them. References without a stored document become missing sources.
func (s *Service) MergeRefs(ctx context.Context, refs []string) (*geo.MergeResult, error) {
	sources := make([]geo.Source, 0, len(refs))

	for _, ref := range refs {
		src := geo.Source{Key: ref}

		rec, err := s.store.Get(ctx, ref)
		switch {
		case eris.Is(err, store.ErrNotFound):
		case err != nil:
			return nil, err
		case rec.HasGeoJSON():
			fc, decErr := geo.DecodeBytes(rec.GeoJSON)
			if decErr != nil {
				log.Warn().Err(decErr).Str("ref", ref).Msg("Stored GeoJSON is not decodable")
				empty := geo.NewFeatureCollection()
				fc = &empty
			}
			src.Collection = fc
		}

		sources = append(sources, src)
	}

	res, err := geo.Merge(sources, geo.WithMatchPolicy(s.policy))

	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.WarnLevel
	}
	log.WithLevel(level).
		Err(err).
		Int("sources", len(sources)).
		Int("contributors", len(res.Contributors)).
		Int("features", len(res.Collection.Features)).
		Int("duplicates", res.Duplicates).
		Str("policy", s.policy.String()).
		Msg("Merge finished")

	return res, err
}

// Compare decodes both documents and compares them.
func (s *Service) Compare(first, second io.Reader) (*geo.Comparison, error) {
	a, err := geo.Decode(first)
	if err != nil {
		return nil, eris.Wrap(err, "first file")
	}
	b, err := geo.Decode(second)
	if err != nil {
		return nil, eris.Wrap(err, "second file")
	}

	cmp, err := geo.Compare(a, b)
	if err != nil {
		return nil, err
	}

	log.Info().
		Bool("identical", cmp.Identical).
		Int("matched", cmp.MatchedCount).
		Int("only_first", len(cmp.OnlyFirst)).
		Int("only_second", len(cmp.OnlySecond)).
		Msg("Comparison finished")

	return cmp, nil
}

// Split decodes the document and splits it into n chunks.
func (s *Service) Split(r io.Reader, n int) ([]geo.FeatureCollection, error) {
	fc, err := geo.Decode(r)
	if err != nil {
		return nil, err
	}

	chunks, err := geo.Split(fc, n)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("features", len(fc.Features)).
		Int("chunks", n).
		Msg("Split finished")

	return chunks, nil
}

// Preview renders the document as a WebP thumbnail. A zero size uses the
// configured default.
func (s *Service) Preview(w io.Writer, r io.Reader, size int) error {
	fc, err := geo.Decode(r)
	if err != nil {
		return err
	}

	opts := s.preview
	if size > 0 {
		opts.Size = size
	}
	return preview.Write(w, fc, opts)
}

// OutcomeFor turns an error from any workflow into the message shown to the
// user.
func OutcomeFor(err error) geo.Outcome {
	switch {
	case err == nil:
		return geo.Success("OK")
	case eris.Is(err, manifest.ErrMissingColumns):
		return geo.Failure(outerMessage(err))
	case eris.Is(err, manifest.ErrNoRows):
		return geo.Failure("The CSV file has no rows.")
	case eris.Is(err, store.ErrNotFound):
		return geo.Warning("Reference not found. Please upload the manifest on the CSV page first.")
	case eris.Is(err, geo.ErrMissingSource):
		return geo.Warning("No GeoJSON uploaded for this BL_LR_IF yet.")
	case eris.Is(err, geo.ErrMalformed):
		return geo.Failure("Invalid GeoJSON file.")
	case eris.Is(err, geo.ErrEmpty):
		return geo.Failure("No features found in the uploaded GeoJSON file.")
	case eris.Is(err, geo.ErrNoContent):
		return geo.Failure("No valid GeoJSON content was merged.")
	default:
		return geo.OutcomeFromError(err)
	}
}

// outerMessage returns the outermost wrap message, which is where the
// user-facing text of manifest errors lives.
func outerMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i > 0 {
		return msg[:i]
	}
	return msg
}
