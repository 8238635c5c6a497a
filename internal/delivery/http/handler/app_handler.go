package handler

import (
	"net/http"

	"github.com/mediconnect/platform-api/pkg/response"
)

// AppHandler serves the client app views. The server does not render
// markup; each view responds with a small descriptor the client shell
// uses to mount the matching screen.
type AppHandler struct{}

func NewAppHandler() *AppHandler {
	return &AppHandler{}
}

// View returns a handler for a named client view.
func (h *AppHandler) View(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "View resolved", map[string]string{
			"view": name,
			"path": r.URL.Path,
		})
	}
}

// NotFound handles every path no route claims.
func (h *AppHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, "Page not found")
}
