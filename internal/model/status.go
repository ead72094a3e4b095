package model

import "fmt"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusFailed     Status = "FAILED"
	StatusExpired    Status = "EXPIRED"
)

// rank positions a status in the monotonic partial order.
// Terminal statuses share a rank: none of them may replace another.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusPaid, StatusFailed, StatusExpired:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool {
	return s.rank() == 2
}

// Advances reports whether moving from s to next is a strict forward step.
func (s Status) Advances(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() > s.rank()
}

// ParseStatus converts a stored string to a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", v)
	}
	return s, nil
}

// FulfillmentMode decides whether the engine may satisfy a product from stock.
type FulfillmentMode string

const (
	ModeStocked     FulfillmentMode = "STOCKED"
	ModeManual      FulfillmentMode = "MANUAL"
	ModeExternalAPI FulfillmentMode = "EXTERNAL_API"
)

// Valid reports whether m is a known fulfillment mode.
func (m FulfillmentMode) Valid() bool {
	switch m {
	case ModeStocked, ModeManual, ModeExternalAPI:
		return true
	}
	return false
}
