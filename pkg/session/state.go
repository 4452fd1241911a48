package session

import (
	"context"
	"time"

	"barcode-lookup/internal/entity"
	"barcode-lookup/internal/pkg/apperr"
)

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseCodeCaptured     Phase = "code_captured"
	PhaseAwaitingResponse Phase = "awaiting_response"
	PhaseResolved         Phase = "resolved"
	PhaseFailed           Phase = "failed"
)

// Failure is the error carried by a failed session.
type Failure struct {
	Kind       apperr.Kind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
	Message    string      `json:"message"`
}

// Snapshot is an immutable view of the session. Version increases with every
// transition so display clients can drop frames that arrive out of order.
type Snapshot struct {
	SessionID string                `json:"session_id"`
	Version   uint64                `json:"version"`
	Phase     Phase                 `json:"phase"`
	Code      string                `json:"code,omitempty"`
	RequestID uint64                `json:"request_id,omitempty"`
	Record    *entity.ProductRecord `json:"record,omitempty"`
	Failure   *Failure              `json:"error,omitempty"`
	UpdatedAt time.Time             `json:"updated_at"`
}

type TorchStatus struct {
	Available bool   `json:"available"`
	Enabled   bool   `json:"enabled"`
	LastError string `json:"last_error,omitempty"`
}

// Lookuper resolves a scanned code. *lookup.Client implements it.
type Lookuper interface {
	Lookup(ctx context.Context, code string) (*entity.ProductRecord, error)
}

type Listener func(Snapshot)

type TorchListener func(TorchStatus)
