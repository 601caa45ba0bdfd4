package product

import (
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const slugTitleMax = 80

// MakeSlug builds "<slugified title>-<unix seconds>". Two products with the
// same title created within the same second get the same slug; the unique
// index on products.slug turns that into ErrDuplicateSlug.
func MakeSlug(title string, at time.Time) string {
	runes := []rune(title)
	if len(runes) > slugTitleMax {
		runes = runes[:slugTitleMax]
	}

	base := slug.Make(strings.ReplaceAll(string(runes), "_", " "))

	// transliteration can grow the string past the title limit
	if len(base) > slugTitleMax {
		base = strings.TrimRight(base[:slugTitleMax], "-")
	}

	ts := strconv.FormatInt(at.Unix(), 10)
	if base == "" {
		return ts
	}

	return base + "-" + ts
}

// IsValidSlug reports whether s is lowercase alphanumerics separated by single hyphens.
func IsValidSlug(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' {
		return false
	}

	prevHyphen := false
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevHyphen = false
		case c == '-':
			if prevHyphen {
				return false
			}
			prevHyphen = true
		default:
			return false
		}
	}

	return true
}
