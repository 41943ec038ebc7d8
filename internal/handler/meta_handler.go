package handler

import (
	"net/http"
	"time"
)

// Pinger reports whether the persistence layer is reachable.
type Pinger interface {
	Ping() error
}

// MetaHandler serves the service-info and health endpoints.
type MetaHandler struct {
	db          Pinger
	serviceName string
	version     string
}

func NewMetaHandler(db Pinger, serviceName, version string) *MetaHandler {
	return &MetaHandler{
		db:          db,
		serviceName: serviceName,
		version:     version,
	}
}

func (h *MetaHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":     h.serviceName,
		"version":     h.version,
		"description": "API for evaluating financial transactions against AML rules",
		"endpoints": map[string]string{
			"/":         "This information",
			"/health":   "Health check",
			"/evaluate": "Submit a transaction for evaluation (POST)",
			"/metrics":  "Prometheus metrics",
		},
	})
}

func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
