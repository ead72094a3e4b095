package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction_Legacy(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Action
	}{
		{"pipe", "DONE|O1|628123", Action{Name: "DONE", OrderID: "O1", Contact: "628123"}},
		{"underscore", "RECHECK_O1_628123", Action{Name: "RECHECK", OrderID: "O1", Contact: "628123"}},
		{"pipe wins over underscore", "DONE|ORD_1|me_x", Action{Name: "DONE", OrderID: "ORD_1", Contact: "me_x"}},
		{"ambiguous underscore id", "DONE_ORD_1_628123", Action{Name: "DONE", OrderID: "ORD_1", Contact: "628123", Ambiguous: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction_Unparseable(t *testing.T) {
	for _, in := range []string{"", "DONE", "DONE|O1", "|O1|x", "act1:DONE", "act1::2:O1:x", "act1:DONE:9:O1:x"} {
		_, err := ParseAction(in)
		assert.ErrorIs(t, err, ErrActionUnparseable, "input %q", in)
	}
}

func TestAction_EncodeRoundTrip(t *testing.T) {
	actions := []Action{
		{Name: "DONE", OrderID: "O1", Contact: "628123"},
		{Name: "DONE", OrderID: "a|b_c", Contact: "x|y_z"},
		{Name: "RECHECK", OrderID: "id:with:colons", Contact: ""},
	}
	for _, a := range actions {
		got, err := ParseAction(a.Encode())
		require.NoError(t, err)
		assert.Equal(t, a, got)
		assert.False(t, got.Ambiguous)
	}
}
