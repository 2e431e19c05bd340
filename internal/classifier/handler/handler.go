package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"civicledger/internal/classifier"
	"civicledger/internal/complaint/metrics"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/httputil"
	"civicledger/pkg/requestcontext"
)

// Classifier is the triage port used by the handler.
type Classifier interface {
	Classify(description string) classifier.Result
}

// Handler exposes the classifier as an advisory HTTP endpoint.
type Handler struct {
	classifier Classifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func New(c Classifier, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{classifier: c, logger: logger, metrics: m}
}

// Register mounts classifier endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/ai/analyze", h.HandleAnalyze)
}

// AnalyzeRequest is the body of POST /ai/analyze.
type AnalyzeRequest struct {
	Description string `json:"description"`
}

func (r *AnalyzeRequest) Validate() error {
	if len(r.Description) > 4096 {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 4096 characters")
	}
	r.Description = strings.TrimSpace(r.Description)
	return nil
}

type analysis struct {
	Category   string  `json:"category"`
	Urgency    string  `json:"urgency"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

type AnalyzeResponse struct {
	Success bool     `json:"success"`
	Data    analysis `json:"data"`
}

// HandleAnalyze handles POST /ai/analyze.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res := h.classifier.Classify(req.Description)
	h.metrics.IncrementClassification(res.Category)
	h.logger.DebugContext(ctx, "description classified",
		"request_id", requestID,
		"category", res.Category,
		"urgency", res.Urgency.String(),
	)

	httputil.WriteJSON(w, http.StatusOK, AnalyzeResponse{
		Success: true,
		Data: analysis{
			Category:   res.Category,
			Urgency:    res.Urgency.String(),
			Summary:    res.Summary,
			Confidence: res.Confidence,
		},
	})
}
