package correlation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrActionUnparseable is returned for button data with too few fields.
var ErrActionUnparseable = errors.New("action data unparseable")

// Action is the decoded form of an operator button press.
type Action struct {
	Name    string
	OrderID string
	Contact string

	// Ambiguous is set when legacy delimited data had extra fields, meaning
	// the order id or the contact contained the delimiter. Decoding then
	// assumes the contact is the last field.
	Ambiguous bool
}

const actionPrefix = "act1:"

// Encode renders "act1:<name>:<len>:<orderId>:<contact>".
// The name must not contain ':'; the contact is always the final field.
func (a Action) Encode() string {
	return fmt.Sprintf("%s%s:%d:%s:%s", actionPrefix, a.Name, len(a.OrderID), a.OrderID, a.Contact)
}

// ParseAction decodes button data. Accepted forms:
//
//	act1:<name>:<len>:<orderId>:<contact>
//	NAME|orderId|contact
//	NAME_orderId_contact
//
// The two delimited forms are ambiguous when the id or contact contains the
// delimiter; see Action.Ambiguous.
func ParseAction(data string) (Action, error) {
	data = strings.TrimSpace(data)

	if rest, ok := strings.CutPrefix(data, actionPrefix); ok {
		name, rest, ok := strings.Cut(rest, ":")
		if !ok || name == "" {
			return Action{}, fmt.Errorf("%w: missing action name", ErrActionUnparseable)
		}
		orderID, contact, err := cutLengthPrefixed(rest)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %v", ErrActionUnparseable, err)
		}
		return Action{Name: name, OrderID: orderID, Contact: contact}, nil
	}

	delim := "_"
	if strings.Contains(data, "|") {
		delim = "|"
	}
	fields := strings.Split(data, delim)
	if len(fields) < 3 || fields[0] == "" {
		return Action{}, fmt.Errorf("%w: %q", ErrActionUnparseable, data)
	}

	last := len(fields) - 1
	return Action{
		Name:      fields[0],
		OrderID:   strings.Join(fields[1:last], delim),
		Contact:   fields[last],
		Ambiguous: len(fields) > 3,
	}, nil
}
