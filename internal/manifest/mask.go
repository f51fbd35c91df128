package manifest

import (
	"fmt"
	"strings"

	"github.com/ironsheep/ihc-metrics-mcp/internal/ihc"
)

// DecodeRows parses a mask written as one string per row, '1' for cell pixels
// and '0' for background.
func DecodeRows(rows []string, width, height int) (*ihc.Mask, error) {
	if err := checkBoxSize(width, height); err != nil {
		return nil, err
	}
	if len(rows) != height {
		return nil, fmt.Errorf("%w: mask has %d rows, box height is %d", ErrInvalidManifest, len(rows), height)
	}

	m := ihc.NewMask(width, height)
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: mask row %d has %d columns, box width is %d", ErrInvalidManifest, y, len(row), width)
		}
		for x := 0; x < width; x++ {
			switch row[x] {
			case '1':
				m.Set(x, y, true)
			case '0':
			default:
				return nil, fmt.Errorf("%w: mask row %d: unexpected %q", ErrInvalidManifest, y, row[x])
			}
		}
	}
	return m, nil
}

// EncodeRows is the inverse of DecodeRows.
func EncodeRows(m *ihc.Mask) []string {
	rows := make([]string, m.Height())
	var sb strings.Builder
	for y := range rows {
		sb.Reset()
		for x := 0; x < m.Width(); x++ {
			if m.At(x, y) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		rows[y] = sb.String()
	}
	return rows
}

// DecodeRLE expands run lengths into a mask. Runs alternate unset/set starting
// with unset, so a mask whose first pixel is set begins with a 0 run. The runs
// must cover the box exactly.
func DecodeRLE(runs []int, width, height int) (*ihc.Mask, error) {
	if err := checkBoxSize(width, height); err != nil {
		return nil, err
	}
	m := ihc.NewMask(width, height)
	total := width * height

	pos := 0
	on := false
	for i, n := range runs {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative run %d at index %d", ErrInvalidManifest, n, i)
		}
		if pos+n > total {
			return nil, fmt.Errorf("%w: runs exceed box area %d", ErrInvalidManifest, total)
		}
		if on {
			for p := pos; p < pos+n; p++ {
				m.Set(p%width, p/width, true)
			}
		}
		pos += n
		on = !on
	}
	if pos != total {
		return nil, fmt.Errorf("%w: runs cover %d pixels, box area is %d", ErrInvalidManifest, pos, total)
	}
	return m, nil
}
