// Package server handles HTTP requests and middleware.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geojsonkit/internal/geo"
	"github.com/woozymasta/geojsonkit/internal/manifest"
	"github.com/woozymasta/geojsonkit/internal/service"
	"github.com/woozymasta/geojsonkit/internal/store"
)

// multipart forms keep at most this much in memory, the rest spills to disk
const formMemory = 8 << 20

type manifestView struct {
	UpdatedAt  time.Time `json:"updated_at"`
	Ref        string    `json:"ref"`
	BatchIDs   []string  `json:"batch_ids"`
	HasGeoJSON bool      `json:"has_geojson"`
}

type messageResponse struct {
	Message geo.Outcome `json:"message"`
}

type deleteResponse struct {
	Message geo.Outcome `json:"message"`
	Deleted []string    `json:"deleted"`
}

type compareResponse struct {
	Comparison *geo.Comparison `json:"comparison"`
	Message    geo.Outcome     `json:"message"`
	Report     string          `json:"report"`
}

type chunkView struct {
	FileName   string                `json:"file_name"`
	Collection geo.FeatureCollection `json:"collection"`
}

type splitResponse struct {
	Chunks  []chunkView `json:"chunks"`
	Sizes   []int       `json:"sizes"`
	Message geo.Outcome `json:"message"`
}

// HandleHealth reports liveness.
func (s *ServerContext) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleManifestList serves every stored reference.
func (s *ServerContext) HandleManifestList(w http.ResponseWriter, r *http.Request) {
	records, err := s.Service.Manifests(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]manifestView, 0, len(records))
	for i := range records {
		views = append(views, manifestView{
			Ref:        records[i].Ref,
			BatchIDs:   records[i].BatchIDs,
			HasGeoJSON: records[i].HasGeoJSON(),
			UpdatedAt:  records[i].UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleManifestUpload replaces the stored manifest with the uploaded CSV.
func (s *ServerContext) HandleManifestUpload(w http.ResponseWriter, r *http.Request) {
	body, name, err := upload(r, "file", "manifest.csv")
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	out, err := s.Service.ImportManifest(r.Context(), body, name)
	if err != nil {
		writeOutcome(w, statusFor(err), out)
		return
	}
	writeOutcome(w, http.StatusCreated, out)
}

// HandleManifestDelete removes every stored reference.
func (s *ServerContext) HandleManifestDelete(w http.ResponseWriter, r *http.Request) {
	refs, out, err := s.Service.DeleteAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if refs == nil {
		refs = []string{}
	}
	writeJSON(w, http.StatusOK, deleteResponse{Message: out, Deleted: refs})
}

// HandleManifestUnmapped lists references still waiting for GeoJSON.
func (s *ServerContext) HandleManifestUnmapped(w http.ResponseWriter, r *http.Request) {
	refs, err := s.Service.Unmapped(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if refs == nil {
		refs = []string{}
	}
	writeJSON(w, http.StatusOK, refs)
}

// HandleGeoJSONUpload maps the uploaded GeoJSON to a reference.
func (s *ServerContext) HandleGeoJSONUpload(w http.ResponseWriter, r *http.Request) {
	body, _, err := upload(r, "file", "")
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	out, err := s.Service.AttachGeoJSON(r.Context(), chi.URLParam(r, "ref"), body)
	if err != nil {
		writeOutcome(w, statusFor(err), out)
		return
	}
	writeOutcome(w, http.StatusOK, out)
}

// HandleGeoJSONGet serves the GeoJSON mapped to a reference.
func (s *ServerContext) HandleGeoJSONGet(w http.ResponseWriter, r *http.Request) {
	fc, err := s.Service.GeoJSON(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeGeoJSON(w, fc, "")
}

// HandleMerge merges the stored documents named by the uploaded merge CSV.
// The response carries the merged collection, the contributing references
// and the messages gathered along the way.
func (s *ServerContext) HandleMerge(w http.ResponseWriter, r *http.Request) {
	body, _, err := upload(r, "file", "")
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	res, err := s.Service.MergeFromCSV(r.Context(), body)
	switch {
	case res != nil && err != nil:
		writeJSON(w, statusFor(err), res)
	case err != nil:
		writeError(w, err)
	case r.URL.Query().Get("download") != "":
		s.writeGeoJSON(w, &res.Collection, "merged.geojson")
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// HandleCompare compares the multipart files "first" and "second".
func (s *ServerContext) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		if eris.Is(err, errBadUpload) {
			writeOutcome(w, http.StatusBadRequest, geo.Failure("Upload two GeoJSON files as 'first' and 'second'."))
			return
		}
		writeError(w, err)
		return
	}

	first, _, err := r.FormFile("first")
	if err != nil {
		writeOutcome(w, http.StatusBadRequest, geo.Failure("Upload the first GeoJSON file."))
		return
	}
	defer func() { _ = first.Close() }()

	second, _, err := r.FormFile("second")
	if err != nil {
		writeOutcome(w, http.StatusBadRequest, geo.Failure("Upload the second GeoJSON file."))
		return
	}
	defer func() { _ = second.Close() }()

	cmp, err := s.Service.Compare(first, second)
	if err != nil {
		if eris.Is(err, geo.ErrMalformed) {
			writeOutcome(w, http.StatusBadRequest, geo.Failure("One or both files are not valid GeoJSON format."))
			return
		}
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, cmp.Report())
		return
	}

	writeJSON(w, http.StatusOK, compareResponse{Comparison: cmp, Message: cmp.Outcome(), Report: cmp.Report()})
}

// HandleSplit splits the uploaded GeoJSON into the requested number of chunks.
func (s *ServerContext) HandleSplit(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("chunks"))
	if err != nil || n < 1 {
		writeOutcome(w, http.StatusBadRequest, geo.Failure("Enter the number of chunks, at least 1."))
		return
	}

	body, _, err := upload(r, "file", "")
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	chunks, err := s.Service.Split(body, n)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := splitResponse{
		Chunks:  make([]chunkView, len(chunks)),
		Sizes:   make([]int, len(chunks)),
		Message: geo.Success("Split into " + strconv.Itoa(len(chunks)) + " chunks."),
	}
	for i := range chunks {
		resp.Chunks[i] = chunkView{FileName: geo.ChunkFileName(i + 1), Collection: chunks[i]}
		resp.Sizes[i] = len(chunks[i].Features)
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePreview renders the uploaded GeoJSON as a WebP thumbnail.
func (s *ServerContext) HandlePreview(w http.ResponseWriter, r *http.Request) {
	size := 0
	if v := r.URL.Query().Get("size"); v != "" {
		var err error
		maxSize := s.Config.Preview.MaxSize
		if size, err = strconv.Atoi(v); err != nil || size < 1 || size > maxSize {
			writeOutcome(w, http.StatusBadRequest, geo.Failure(fmt.Sprintf("size must be between 1 and %d.", maxSize)))
			return
		}
	}

	body, _, err := upload(r, "file", "")
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = body.Close() }()

	// Render fully before writing so errors can still set a status.
	var buf bytes.Buffer
	if err := s.Service.Preview(&buf, body, size); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// upload returns the request payload: the multipart file under field when
// the request is multipart, the raw body otherwise.
func upload(r *http.Request, field, fallbackName string) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := parseForm(r); err != nil {
			return nil, "", err
		}
		f, hdr, err := r.FormFile(field)
		if err != nil {
			return nil, "", eris.Wrapf(errBadUpload, "form file %q", field)
		}
		return f, hdr.Filename, nil
	}

	name := r.URL.Query().Get("filename")
	if name == "" {
		name = fallbackName
	}
	return r.Body, name, nil
}

var errBadUpload = eris.New("bad upload")

// parseForm parses a multipart body. A body over the upload limit keeps its
// *http.MaxBytesError; any other failure is errBadUpload.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(formMemory)
	if err == nil {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return eris.Wrap(err, "parse multipart form")
	}
	return eris.Wrap(errBadUpload, err.Error())
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case eris.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case eris.Is(err, geo.ErrMissingSource):
		return http.StatusNotFound
	case eris.Is(err, geo.ErrNoContent), eris.Is(err, geo.ErrEmpty):
		return http.StatusUnprocessableEntity
	case eris.Is(err, geo.ErrMalformed), eris.Is(err, geo.ErrInvalidChunks),
		eris.Is(err, manifest.ErrMissingColumns), eris.Is(err, manifest.ErrNoRows),
		eris.Is(err, errBadUpload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	out := service.OutcomeFor(err)
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		out = geo.Failure(fmt.Sprintf("The upload is larger than the %d byte limit.", maxErr.Limit))
	case status == http.StatusInternalServerError:
		log.Error().Err(err).Msg("Request failed")
		out = geo.Failure("Internal error.")
	}
	writeOutcome(w, status, out)
}

func writeOutcome(w http.ResponseWriter, status int, out geo.Outcome) {
	writeJSON(w, status, messageResponse{Message: out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring error as we cannot handle client disconnects
	_ = json.NewEncoder(w).Encode(v)
}

// writeGeoJSON serves fc as a GeoJSON document, indented unless the server
// is configured to minify.
func (s *ServerContext) writeGeoJSON(w http.ResponseWriter, fc *geo.FeatureCollection, filename string) {
	w.Header().Set("Content-Type", geo.MediaType)
	if filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}

	if s.Config.Server.Minify {
		_ = geo.Encode(w, fc)
		return
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(fc)
}
