package debug

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/haley/backend/internal/service/ai"
	"github.com/zhouzirui/haley/backend/pkg/utils"
)

const probeTimeout = 30 * time.Second

// Prober runs the model diagnostics.
type Prober interface {
	Run(ctx context.Context, candidates []string) ai.ProbeReport
}

// Handler exposes /debug. Only registered when an operator enables it.
type Handler struct {
	prober     Prober
	candidates []string
}

func New(prober Prober, candidates []string) *Handler {
	return &Handler{prober: prober, candidates: candidates}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/debug", h.handleDebug)
}

func (h *Handler) handleDebug(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	utils.RespondJSON(w, http.StatusOK, h.prober.Run(ctx, h.candidates))
}
