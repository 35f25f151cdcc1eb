package handlers

import (
	"embed"
	"log/slog"
	"net/http"

	"github.com/velocity-platform/console/internal/logger"
)

//go:embed pages/*.html
var pages embed.FS

func (h *HandlerService) HandleLogin(w http.ResponseWriter, r *http.Request) {
	servePage(w, r, "pages/login.html")
}

func (h *HandlerService) HandleRegister(w http.ResponseWriter, r *http.Request) {
	servePage(w, r, "pages/register.html")
}

func servePage(w http.ResponseWriter, r *http.Request, name string) {
	data, err := pages.ReadFile(name)
	if err != nil {
		logger.ContextMiddlewareLogger(r.Context()).Error("failed to read page",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
