package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civicledger/internal/complaint/models"
	"civicledger/internal/complaint/service"
	"civicledger/pkg/domain"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/httputil"
	"civicledger/pkg/requestcontext"
)

// HandleSubmit handles POST /complaints.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := requestcontext.Caller(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	amount := req.amount
	if amount == nil && h.defaultStake != nil {
		amount = h.defaultStake
	}

	id, err := h.registry.Submit(ctx, service.Submission{
		Reporter:       caller,
		Description:    req.Description,
		Location:       req.Location,
		Category:       req.Category,
		Urgency:        req.urgency,
		ProofReference: req.ProofReference,
		StakeToken:     req.token,
		StakeAmount:    amount,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "complaint submission failed",
			"request_id", requestID,
			"reporter", caller.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "complaint submitted",
		"request_id", requestID,
		"complaint_id", id,
		"reporter", caller.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{Success: true, ID: uint64(id)})
}

type transitionFunc func(ctx context.Context, id domain.ComplaintID, caller domain.Address) (*models.Complaint, error)

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := requestcontext.Caller(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session required"))
		return
	}
	id, err := domain.ParseComplaintID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := fn(ctx, id, caller)
	if err != nil {
		h.logger.WarnContext(ctx, "complaint "+op+" refused",
			"request_id", requestID,
			"complaint_id", id,
			"caller", caller.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "complaint "+op,
		"request_id", requestID,
		"complaint_id", id,
		"status", c.Status.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, newComplaintResponse(c, h.decimals))
}

// HandleResolve handles POST /admin/complaints/{id}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "resolved", h.registry.Resolve)
}

// HandleReject handles POST /admin/complaints/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "rejected", h.registry.Reject)
}

// HandleAdvance handles POST /admin/complaints/{id}/status.
func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[AdvanceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.handleTransition(w, r, "advanced", func(ctx context.Context, id domain.ComplaintID, caller domain.Address) (*models.Complaint, error) {
		return h.registry.Advance(ctx, id, caller, req.status)
	})
}

// HandleRefresh handles POST /admin/sync/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	window, err := h.window(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snap, err := h.snapshots.Refresh(ctx, window)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual refresh failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(snap))
}
