package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilkin0/docguard/internal/api/handlers"
	"github.com/ilkin0/docguard/internal/middleware"
	"github.com/ilkin0/docguard/internal/utils"
)

// VerifyRoutes serves the verification endpoint at the mount root.
// Preflight requests are answered by the CORS middleware.
func VerifyRoutes(h *handlers.VerifyHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(middleware.VerifyCORSConfig()))
	r.Use(middleware.VerifyLimiter())
	r.Use(middleware.RecoverEnvelope)

	r.Post("/", h.Verify)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.NotFound(h.NotFound)
	return r
}

func DocumentRoutes(h *handlers.DocumentHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(middleware.DocumentsCORSConfig()))
	r.Use(middleware.DocumentsLimiter())

	r.Post("/", h.Upload)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "POST, OPTIONS")
		utils.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}
