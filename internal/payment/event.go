package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/stockroom/internal/model"
)

// ErrUnknownEventKind is returned for event kinds outside the mapping.
var ErrUnknownEventKind = errors.New("unknown payment event kind")

// ErrInvalidTransition is returned by Confirm when the order cannot become PAID.
var ErrInvalidTransition = errors.New("invalid status transition")

// EventKind is a gateway notification type, after signature verification.
type EventKind string

const (
	KindCaptured  EventKind = "CAPTURED"
	KindSettled   EventKind = "SETTLED"
	KindDenied    EventKind = "DENIED"
	KindCancelled EventKind = "CANCELLED"
	KindExpired   EventKind = "EXPIRED"
)

// ParseEventKind accepts kinds case-insensitively.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := k.Target(); err != nil {
		return "", err
	}
	return k, nil
}

// Target maps an event kind to the status it moves an order to.
// CAPTURED and SETTLED stop at PROCESSING: PAID is reserved for a completed
// allocation or an operator confirmation.
func (k EventKind) Target() (model.Status, error) {
	switch k {
	case KindCaptured, KindSettled:
		return model.StatusProcessing, nil
	case KindDenied, KindCancelled:
		return model.StatusFailed, nil
	case KindExpired:
		return model.StatusExpired, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEventKind, string(k))
}

// Event is a verified payment notification.
type Event struct {
	OrderID string    `json:"order_id"`
	Kind    EventKind `json:"kind"`
	Amount  int64     `json:"amount"`
}

// eventDomain separates event hashes from any other hash in the system.
// The version suffix leaves room for changing the hashed fields.
const eventDomain = "stockroom/payment-event/v1"

// ID returns the ledger key of the event: SHA-256 over the domain, a null
// separator, and the length-prefixed fields.
func (e Event) ID() string {
	h := sha256.New()
	h.Write([]byte(eventDomain))
	h.Write([]byte{0x00})
	for _, f := range []string{e.OrderID, string(e.Kind), strconv.FormatInt(e.Amount, 10)} {
		h.Write([]byte(strconv.Itoa(len(f))))
		h.Write([]byte{':'})
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
