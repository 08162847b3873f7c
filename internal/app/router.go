package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	openapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/lumacrm/api/internal/audit"
	"github.com/lumacrm/api/internal/config"
	"github.com/lumacrm/api/internal/filestore"
	"github.com/lumacrm/api/internal/handlers"
	"github.com/lumacrm/api/internal/httpx"
	"github.com/lumacrm/api/internal/middleware"
	"github.com/lumacrm/api/internal/store"
)

func NewRouter(cfg config.Config, st store.Store, files filestore.Store, logger *slog.Logger) (http.Handler, error) {
	specPath := cfg.OpenAPISpecPath
	if specPath == "" {
		specPath = filepath.Join("openapi.yaml")
	}
	if _, err := os.Stat(specPath); err != nil {
		return nil, fmt.Errorf("openapi spec not found at %s: %w", specPath, err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.Env))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.LimitBodyBytesWithOverrides(cfg.APIMaxBodyBytes, []middleware.BodyLimitOverride{
		{PathPrefix: "/imports/opportunities/upload", MaxBytes: cfg.ImportMaxFileBytes + 1024*1024},
	}))

	api := chi.NewRouter()
	api.Use(openapimiddleware.OapiRequestValidatorWithOptions(doc, &openapimiddleware.Options{
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			requestID := w.Header().Get("X-Request-Id")
			httpx.WriteJSON(w, statusCode, httpx.ErrorEnvelope{
				Error:     httpx.ErrorBody{Code: "validation_error", Message: message},
				RequestID: requestID,
			})
		},
	}))

	auditLogger := audit.NewLogger(st.Audit())
	h := handlers.NewServer(cfg, st, files, auditLogger, logger)

	uploadLimiter := middleware.NewIPRateLimiterWithMaxEntries(cfg.UploadRateLimit, cfg.UploadRateWindow, cfg.RateLimitMaxIPs)

	api.Get("/health", h.GetHealth)
	api.Route("/imports/{importType}", func(imports chi.Router) {
		imports.With(uploadLimiter.Middleware("Too many uploads, slow down")).Post("/upload", h.PostImportUpload)
		imports.Get("/", h.GetImports)
		imports.Route("/{importId}", func(job chi.Router) {
			job.Get("/", h.GetImport)
			job.Post("/mapping", h.PostImportMapping)
			job.Post("/execute", h.PostImportExecute)
			job.Get("/errors.csv", h.GetImportErrors)
		})
	})

	r.Mount("/api", api)
	return r, nil
}
