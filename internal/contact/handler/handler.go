package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"unify/internal/contact/models"
	"unify/pkg/platform/httputil"
	"unify/pkg/requestcontext"
)

// Service defines the interface for identity resolution operations.
type Service interface {
	Resolve(ctx context.Context, obs models.Observation) (*models.IdentityView, error)
}

// Handler wires the identify endpoint to the resolution service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a contact handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts contact endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identify", h.HandleIdentify)
}

// HandleIdentify handles POST /identify requests.
func (h *Handler) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IdentifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.Resolve(ctx, req.Observation())
	if err != nil {
		h.logger.ErrorContext(ctx, "identity resolution failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identify served",
		"request_id", requestID,
		"primary_id", view.PrimaryContactID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromView(view))
}
