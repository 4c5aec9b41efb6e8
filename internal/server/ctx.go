package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geojsonkit/internal/config"
	"github.com/woozymasta/geojsonkit/internal/service"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Service *service.Service
	Config  *config.Config
}

// NewServerContext initializes the handler context.
func NewServerContext(cfg *config.Config, svc *service.Service) *ServerContext {
	log.Info().
		Str("store", cfg.Store.Driver).
		Str("match_policy", cfg.Merge.MatchPolicy).
		Int64("max_upload_bytes", cfg.Server.MaxUploadBytes).
		Msg("Server context initialized")

	return &ServerContext{Service: svc, Config: cfg}
}

// Routes builds the HTTP handler with CORS and request logging applied.
func (s *ServerContext) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))
	r.Use(s.limitBody)

	r.Get("/health", s.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/manifests", s.HandleManifestList)
		r.Post("/manifests", s.HandleManifestUpload)
		r.Delete("/manifests", s.HandleManifestDelete)
		r.Get("/manifests/unmapped", s.HandleManifestUnmapped)
		r.Put("/manifests/{ref}/geojson", s.HandleGeoJSONUpload)
		r.Get("/manifests/{ref}/geojson", s.HandleGeoJSONGet)

		r.Post("/merge", s.HandleMerge)
		r.Post("/compare", s.HandleCompare)
		r.Post("/split", s.HandleSplit)
		r.Post("/preview", s.HandlePreview)
	})

	return r
}

// limitBody caps request bodies at the configured upload size.
func (s *ServerContext) limitBody(next http.Handler) http.Handler {
	limit := s.Config.Server.MaxUploadBytes
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limit > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
