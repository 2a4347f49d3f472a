package format

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders b with binary units (KiB, MiB, ...).
func FormatBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}

// ParseBytes parses a size such as "64KiB", "1.5 GB" or "4096".
//
// A bare single-letter suffix (k, m, g, t) is binary, the way stripe sizes
// are usually written: "64k" is 65536 bytes. Spelled-out SI units keep their
// decimal meaning ("64kB" is 64000 bytes).
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n := len(s); n > 1 && strings.ContainsRune("kKmMgGtT", rune(s[n-1])) && partOfNumber(s[n-2]) {
		s += "iB"
	}

	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if v > 1<<62 {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return int64(v), nil
}

func partOfNumber(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == ' '
}
