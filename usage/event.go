// Package usage implements the append-only usage log, the pricing
// catalog, and the cost estimator that the metering decorator drives.
package usage

import (
	"time"

	"github.com/google/uuid"
)

// Status of a metered call.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// BillingCategory splits tools into those billed per unit and those
// covered by the upstream subscription.
type BillingCategory string

const (
	CategoryAuthOnly BillingCategory = "auth_only"
	CategoryMetered  BillingCategory = "metered"
)

// Units are the countable quantities a call consumed. Results and
// token counts stay nil when the tool result carries no such signal.
type Units struct {
	Requests     int64  `json:"requests,omitempty"`
	Results      *int64 `json:"results,omitempty"`
	InputTokens  *int64 `json:"input_tokens,omitempty"`
	OutputTokens *int64 `json:"output_tokens,omitempty"`
}

// Event is one appended usage record. Events are never mutated after
// being recorded.
type Event struct {
	ID             string    `json:"id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"run_id"`
	RequestID      string    `json:"request_id"`
	Connector      string    `json:"connector"`
	Tool           string    `json:"tool"`
	Provider       string    `json:"provider"`
	KeyID          string    `json:"key_id,omitempty"`
	Status         Status    `json:"status"`
	DurationMs     int64     `json:"duration_ms"`
	Units          Units     `json:"units"`
	CostUSD        *float64  `json:"cost_usd,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Estimated      bool      `json:"estimated"`
	PricingVersion string    `json:"pricing_version,omitempty"`
	Model          string    `json:"model,omitempty"`
}

// Normalize fills the generated fields so every recorded event has an
// id and a timestamp.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}
}

// NewRunID mints a fresh run correlation id.
func NewRunID() string {
	return "run-" + uuid.NewString()
}

// NewRequestID mints a per-call request id, unique within a process.
func NewRequestID() string {
	return "req-" + uuid.NewString()
}
