package handlers

import (
	"log/slog"
	"net/http"

	"github.com/lumacrm/api/internal/audit"
	"github.com/lumacrm/api/internal/config"
	"github.com/lumacrm/api/internal/filestore"
	"github.com/lumacrm/api/internal/httpx"
	"github.com/lumacrm/api/internal/importer"
	"github.com/lumacrm/api/internal/store"
)

type Server struct {
	Config config.Config
	Store  store.Store
	Files  filestore.Store
	Engine *importer.Engine
	Audit  *audit.Logger
	Logger *slog.Logger
}

func NewServer(cfg config.Config, st store.Store, files filestore.Store, auditLogger *audit.Logger, logger *slog.Logger) *Server {
	return &Server{
		Config: cfg,
		Store:  st,
		Files:  files,
		Engine: &importer.Engine{Store: st, Files: files, Logger: logger, MaxRows: cfg.ImportMaxRows},
		Audit:  auditLogger,
		Logger: logger,
	}
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
