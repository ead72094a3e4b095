package correlation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/stockroom/internal/model"
)

// Reference identifies one line item of one order.
type Reference struct {
	OrderID string `json:"order_id"`
	Index   int    `json:"index"`
}

// Text renders the human-readable token: "Ref: <orderId> | Idx: <n>".
func (r Reference) Text() string {
	return fmt.Sprintf("Ref: %s | Idx: %d", r.OrderID, r.Index)
}

const payloadPrefix = "ref1:"

// Payload renders the length-prefixed token: "ref1:<len>:<orderId>:<n>".
func (r Reference) Payload() string {
	return fmt.Sprintf("%s%d:%s:%d", payloadPrefix, len(r.OrderID), r.OrderID, r.Index)
}

func (r Reference) String() string {
	return r.Text()
}

// The order id runs up to the last "| Idx:" on the line, so ids that contain
// '|' still round-trip.
var textPattern = regexp.MustCompile(`Ref:[ \t]*(.+)\|[ \t]*Idx:[ \t]*(\d+)`)

// pairEnd matches text that ends with a complete "| Idx: <n>".
var pairEnd = regexp.MustCompile(`\|[ \t]*Idx:[ \t]*\d+[ \t]*$`)

// ParseReferenceText extracts the last textual reference in s.
// Quoted messages may repeat earlier requests; the newest appears last.
func ParseReferenceText(s string) (Reference, error) {
	matches := textPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return Reference{}, model.NewTokenUnparseable("no \"Ref: ... | Idx: ...\" marker in quoted text")
	}
	m := matches[len(matches)-1]

	orderID := strings.TrimSpace(laterReference(m[1]))
	if orderID == "" {
		return Reference{}, model.NewTokenUnparseable("empty order id in reference")
	}
	idx, err := strconv.Atoi(m[2])
	if err != nil {
		return Reference{}, model.NewTokenUnparseable(fmt.Sprintf("bad index %q", m[2]))
	}
	return Reference{OrderID: orderID, Index: idx}, nil
}

// laterReference drops an earlier reference that shares the line with the
// matched one. A "Ref:" only starts a new reference when a complete
// "| Idx: <n>" precedes it; otherwise it belongs to the order id.
func laterReference(id string) string {
	for end := len(id); end > 0; {
		i := strings.LastIndex(id[:end], "Ref:")
		if i < 0 {
			break
		}
		if pairEnd.MatchString(id[:i]) {
			return id[i+len("Ref:"):]
		}
		end = i
	}
	return id
}

// ParseReferencePayload decodes a token produced by Reference.Payload.
func ParseReferencePayload(s string) (Reference, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), payloadPrefix)
	if !ok {
		return Reference{}, model.NewTokenUnparseable("missing ref1 prefix")
	}

	orderID, rest, err := cutLengthPrefixed(rest)
	if err != nil {
		return Reference{}, model.NewTokenUnparseable(err.Error())
	}
	if orderID == "" {
		return Reference{}, model.NewTokenUnparseable("empty order id in reference")
	}
	idx, err := strconv.Atoi(rest)
	if err != nil || idx < 0 {
		return Reference{}, model.NewTokenUnparseable(fmt.Sprintf("bad index %q", rest))
	}
	return Reference{OrderID: orderID, Index: idx}, nil
}

// ParseReference accepts either the payload or the textual form.
func ParseReference(s string) (Reference, error) {
	if strings.HasPrefix(strings.TrimSpace(s), payloadPrefix) {
		return ParseReferencePayload(s)
	}
	return ParseReferenceText(s)
}

// cutLengthPrefixed reads "<len>:<value>:" from the front of s and returns
// value and whatever follows the trailing colon.
func cutLengthPrefixed(s string) (value, rest string, err error) {
	lenStr, after, ok := strings.Cut(s, ":")
	if !ok {
		return "", "", fmt.Errorf("missing length separator")
	}
	n, err := strconv.Atoi(lenStr)
	if err != nil || n < 0 {
		return "", "", fmt.Errorf("bad length %q", lenStr)
	}
	if len(after) < n+1 || after[n] != ':' {
		return "", "", fmt.Errorf("value shorter than declared length %d", n)
	}
	return after[:n], after[n+1:], nil
}
