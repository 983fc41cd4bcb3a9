package handlers

import (
	"net/http"

	"github.com/doruhan/vira/pkg"
)

// Health, liveness probe endpoint'i.
//
//	GET /health
//	Response: { "status": "ok" }
func Health(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
