package handler

import (
	"civicledger/internal/complaint/adapters"
	"civicledger/internal/complaint/aggregate"
	"civicledger/internal/complaint/models"
	complaintsync "civicledger/internal/complaint/sync"
	"civicledger/pkg/domain"
)

// ListResponse is the body of GET /complaints.
type ListResponse struct {
	Success   bool                 `json:"success"`
	Data      []complaintsync.View `json:"data"`
	Source    string               `json:"source"`
	FailedIDs []uint64             `json:"failed_ids"`
	Stale     bool                 `json:"stale"`
	Degraded  bool                 `json:"degraded"`
	SyncedAt  int64                `json:"synced_at"`
}

func newListResponse(snap *complaintsync.Snapshot) ListResponse {
	data := snap.Records
	if data == nil {
		data = []complaintsync.View{}
	}
	failed := snap.FailedIDs
	if failed == nil {
		failed = []uint64{}
	}
	return ListResponse{
		Success:   true,
		Data:      data,
		Source:    snap.Source,
		FailedIDs: failed,
		Stale:     snap.Stale,
		Degraded:  snap.Degraded,
		SyncedAt:  snap.SyncedAt.UnixMilli(),
	}
}

type SummaryResponse struct {
	Success  bool              `json:"success"`
	Data     aggregate.Summary `json:"data"`
	Source   string            `json:"source"`
	Stale    bool              `json:"stale"`
	Degraded bool              `json:"degraded"`
}

type ComplaintResponse struct {
	Success bool               `json:"success"`
	Data    complaintsync.View `json:"data"`
}

func newComplaintResponse(c *models.Complaint, decimals complaintsync.TokenDecimals) ComplaintResponse {
	return ComplaintResponse{Success: true, Data: complaintsync.Normalize(adapters.ToRecord(c), decimals.For)}
}

type SubmitResponse struct {
	Success bool   `json:"success"`
	ID      uint64 `json:"id"`
}

type ReporterComplaintsResponse struct {
	Success bool     `json:"success"`
	Data    []uint64 `json:"data"`
}

func newReporterComplaintsResponse(ids []domain.ComplaintID) ReporterComplaintsResponse {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return ReporterComplaintsResponse{Success: true, Data: out}
}
