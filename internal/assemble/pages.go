package assemble

import (
	"slices"
	"strconv"
	"strings"

	"github.com/koreanssam/docmark/internal/entity"
)

// NoValidPagesWarning is returned when a selection contained no usable page number.
const NoValidPagesWarning = "no valid page numbers; defaulting to all pages"

// NormalizePageSelection parses a comma separated page list such as "1, 3,5".
// Segments that are not plain decimal digits are skipped. An empty input selects
// all pages silently; any other input with nothing usable, blanks included,
// selects all pages with a warning.
func NormalizePageSelection(raw string) entity.PageSelection {
	if raw == "" {
		return entity.PageSelection{}
	}

	seen := make(map[int]struct{})
	var pages []int
	for _, seg := range strings.Split(raw, ",") {
		seg = strings.TrimSpace(seg)
		if !isDigits(seg) {
			continue
		}
		n, err := strconv.Atoi(seg)
		if err != nil || n <= 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		pages = append(pages, n)
	}

	if len(pages) == 0 {
		return entity.PageSelection{Warning: NoValidPagesWarning}
	}
	slices.Sort(pages)
	return entity.PageSelection{Pages: pages}
}

// FormatPages renders a selection back to its canonical "1,3,5" form; "" means all.
func FormatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
