package http

import (
	"net/http"

	"github.com/m-mizutani/fplfetch/pkg/domain/model"
	"github.com/m-mizutani/fplfetch/pkg/domain/types"
)

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	status := &model.HealthStatus{
		Status:  "healthy",
		Service: types.ServiceName,
		Version: types.Version,
	}

	writeJSON(w, r, status, http.StatusOK)
}
