package pdf

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Directional search limits in points. Labels sit close to their
// widgets on government forms; anything farther belongs to another
// field.
const (
	searchDistanceLeft   = 200.0
	searchDistanceRight  = 200.0
	searchDistanceTop    = 150.0
	searchDistanceBottom = 150.0
	searchMargin         = 5.0
	defaultTextHeight    = 12.0
	rowTolerance         = 3.0
)

var contextDirections = []string{"left", "right", "top", "bottom"}

// ContextDetector finds the caption text near a field widget using the
// positioned text runs ledongthuc/pdf exposes.
type ContextDetector struct {
	file   *os.File
	reader *pdf.Reader
	texts  map[int][]pdf.Text
}

// NewContextDetector opens a PDF for positioned text extraction.
func NewContextDetector(path string) (*ContextDetector, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for text extraction: %w", err)
	}
	return &ContextDetector{file: f, reader: r, texts: map[int][]pdf.Text{}}, nil
}

// Close releases the underlying file.
func (d *ContextDetector) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// pageTexts loads and caches one page's text runs. ledongthuc panics on
// some malformed content streams, so the read is guarded.
func (d *ContextDetector) pageTexts(pageNum int) []pdf.Text {
	if cached, ok := d.texts[pageNum]; ok {
		return cached
	}
	var texts []pdf.Text
	func() {
		defer func() { _ = recover() }()
		if pageNum < 1 || pageNum > d.reader.NumPage() {
			return
		}
		page := d.reader.Page(pageNum)
		if page.V.IsNull() {
			return
		}
		texts = page.Content().Text
	}()
	d.texts[pageNum] = texts
	return texts
}

type directionHit struct {
	text     string
	distance float64
}

// Detect returns the best caption for a widget plus everything found
// per direction. Checkboxes and radios read to the right first, then
// left; text fields read to the left, then above; when neither
// preference hits, the closest text wins.
func (d *ContextDetector) Detect(pageNum int, r Rect, fieldType FieldType) (string, map[string]string) {
	texts := d.pageTexts(pageNum)
	if len(texts) == 0 {
		return "", nil
	}

	all := map[string]string{}
	hits := map[string]directionHit{}
	for _, dir := range contextDirections {
		text, dist := directionText(texts, r, dir)
		if text == "" {
			continue
		}
		all[dir] = text
		hits[dir] = directionHit{text: text, distance: dist}
	}
	if len(hits) == 0 {
		return "", nil
	}

	var order []string
	if fieldType.IsCheckable() {
		order = []string{"right", "left"}
	} else {
		order = []string{"left", "top"}
	}
	for _, dir := range order {
		if h, ok := hits[dir]; ok {
			return h.text, all
		}
	}

	best := directionHit{distance: math.MaxFloat64}
	for _, dir := range contextDirections {
		if h, ok := hits[dir]; ok && h.distance < best.distance {
			best = h
		}
	}
	return best.text, all
}

// searchArea is the clip rectangle for one direction, in PDF user
// space (y grows upward, so "top" means above the widget).
func searchArea(r Rect, direction string) (x0, y0, x1, y1 float64) {
	switch direction {
	case "left":
		return r.X0 - searchDistanceLeft, r.Y0 - searchMargin, r.X0, r.Y1 + searchMargin
	case "right":
		return r.X1, r.Y0 - searchMargin, r.X1 + searchDistanceRight, r.Y1 + searchMargin
	case "top":
		return r.X0 - searchMargin, r.Y1, r.X1 + searchMargin, r.Y1 + searchDistanceTop
	case "bottom":
		return r.X0 - searchMargin, r.Y0 - searchDistanceBottom, r.X1 + searchMargin, r.Y0
	}
	return 0, 0, 0, 0
}

// directionText joins the runs inside one direction's search area into
// reading order and returns it with the smallest gap between any run
// and the widget edge.
func directionText(texts []pdf.Text, r Rect, direction string) (string, float64) {
	x0, y0, x1, y1 := searchArea(r, direction)

	var inside []pdf.Text
	minGap := math.MaxFloat64
	for _, t := range texts {
		h := t.FontSize
		if h == 0 {
			h = defaultTextHeight
		}
		tx0, ty0, tx1, ty1 := t.X, t.Y, t.X+t.W, t.Y+h
		if tx1 < x0 || tx0 > x1 || ty1 < y0 || ty0 > y1 {
			continue
		}
		inside = append(inside, t)

		var gap float64
		switch direction {
		case "left":
			gap = r.X0 - tx1
		case "right":
			gap = tx0 - r.X1
		case "top":
			gap = ty0 - r.Y1
		case "bottom":
			gap = r.Y0 - ty1
		}
		if gap < 0 {
			gap = 0
		}
		if gap < minGap {
			minGap = gap
		}
	}
	if len(inside) == 0 {
		return "", 0
	}
	return joinRuns(inside), minGap
}

// joinRuns assembles raw text runs into reading order. Runs are often
// single glyphs, so a space is inserted only when the horizontal gap
// between neighbors is wide enough to be a word break.
func joinRuns(runs []pdf.Text) string {
	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		diff := sorted[i].Y - sorted[j].Y
		if diff > rowTolerance || diff < -rowTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var b strings.Builder
	for i, t := range sorted {
		if i > 0 {
			prev := sorted[i-1]
			rowDiff := prev.Y - t.Y
			if rowDiff > rowTolerance || rowDiff < -rowTolerance {
				b.WriteString(" ")
			} else if gap := t.X - (prev.X + prev.W); gap > wordGap(prev) {
				b.WriteString(" ")
			}
		}
		b.WriteString(t.S)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordGap(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize * 0.3
	}
	return 2.5
}
