package correlation

import (
	"strings"

	"github.com/roach88/stockroom/internal/model"
)

// SplitLines turns an operator's raw reply into submitted units: one per
// line, trimmed and NFC-normalized, blank lines dropped, order preserved.
// Never returns nil.
func SplitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	lines := []string{}
	for _, line := range strings.Split(raw, "\n") {
		if u := model.NormalizeUnit(line); u != "" {
			lines = append(lines, u)
		}
	}
	return lines
}
