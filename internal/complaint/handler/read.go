package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/httputil"
	"civicledger/pkg/requestcontext"
)

func (h *Handler) window(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("window")
	if raw == "" {
		return h.defaultWindow, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "window must be a positive integer")
	}
	return n, nil
}

// HandleList handles GET /complaints?window=N.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	window, err := h.window(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snap, err := h.snapshots.Snapshot(ctx, window)
	if err != nil {
		h.logger.ErrorContext(ctx, "snapshot unavailable",
			"request_id", requestID,
			"window", window,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if len(snap.FailedIDs) > 0 {
		h.logger.WarnContext(ctx, "partial snapshot served",
			"request_id", requestID,
			"failed_ids", snap.FailedIDs,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(snap))
}

// HandleSummary handles GET /complaints/summary?window=N.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	window, err := h.window(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snap, err := h.snapshots.Snapshot(ctx, window)
	if err != nil {
		h.logger.ErrorContext(ctx, "snapshot unavailable",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SummaryResponse{
		Success:  true,
		Data:     summarize(snap),
		Source:   snap.Source,
		Stale:    snap.Stale,
		Degraded: snap.Degraded,
	})
}

// HandleGet handles GET /complaints/{id}. It reads the ledger directly so a
// reporter sees their write immediately.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseComplaintID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.registry.Get(ctx, id)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load complaint",
				"request_id", requestcontext.RequestID(ctx),
				"complaint_id", id,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newComplaintResponse(c, h.decimals))
}

// HandleListByReporter handles GET /reporters/{address}/complaints.
func (h *Handler) HandleListByReporter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reporter, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid reporter address"))
		return
	}
	ids, err := h.registry.ListByReporter(ctx, reporter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newReporterComplaintsResponse(ids))
}
