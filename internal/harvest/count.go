package harvest

import (
	"strconv"
	"strings"
)

// Magnitude suffixes used by the target site's engagement counters.
const (
	suffixWan = "万" // x10^4
	suffixYi  = "亿" // x10^8
)

// ParseCount normalizes a magnitude-suffixed counter string to an
// integer. "3.5万" yields 35000 and "1.2亿" yields 120000000; plain digit
// strings parse directly. Anything unparsable, including the empty
// string, yields 0.
func ParseCount(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	switch {
	case strings.Contains(s, suffixWan):
		return scaled(strings.ReplaceAll(s, suffixWan, ""), 10_000)
	case strings.Contains(s, suffixYi):
		return scaled(strings.ReplaceAll(s, suffixYi, ""), 100_000_000)
	default:
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
}

func scaled(num string, factor float64) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f * factor)
}
