package pdf

import (
	"testing"

	"github.com/ledongthuc/pdf"
)

func TestSearchArea(t *testing.T) {
	r := NewRect(100, 500, 150, 520)

	tests := []struct {
		direction          string
		x0, y0, x1, y1     float64
	}{
		{"left", -100, 495, 100, 525},
		{"right", 150, 495, 350, 525},
		{"top", 95, 520, 155, 670},
		{"bottom", 95, 350, 155, 500},
	}

	for _, tt := range tests {
		x0, y0, x1, y1 := searchArea(r, tt.direction)
		if x0 != tt.x0 || y0 != tt.y0 || x1 != tt.x1 || y1 != tt.y1 {
			t.Errorf("searchArea(%s) = (%v, %v, %v, %v), want (%v, %v, %v, %v)",
				tt.direction, x0, y0, x1, y1, tt.x0, tt.y0, tt.x1, tt.y1)
		}
	}
}

func TestJoinRunsAssemblesGlyphs(t *testing.T) {
	runs := []pdf.Text{
		{S: "m", X: 15, Y: 700, W: 5, FontSize: 10},
		{S: "e", X: 20, Y: 700, W: 5, FontSize: 10},
		{S: "N", X: 5, Y: 700, W: 5, FontSize: 10},
		{S: "a", X: 10, Y: 700, W: 5, FontSize: 10},
	}

	if got := joinRuns(runs); got != "Name" {
		t.Errorf("expected %q, got %q", "Name", got)
	}
}

func TestJoinRunsInsertsWordBreaks(t *testing.T) {
	runs := []pdf.Text{
		{S: "Name", X: 10, Y: 700, W: 28, FontSize: 10},
		{S: "of", X: 45, Y: 700, W: 12, FontSize: 10},
		{S: "Spouse", X: 62, Y: 700, W: 40, FontSize: 10},
	}

	if got := joinRuns(runs); got != "Name of Spouse" {
		t.Errorf("expected %q, got %q", "Name of Spouse", got)
	}
}

func TestJoinRunsOrdersRowsTopFirst(t *testing.T) {
	runs := []pdf.Text{
		{S: "Second", X: 10, Y: 680, W: 40, FontSize: 10},
		{S: "First", X: 10, Y: 700, W: 30, FontSize: 10},
	}

	if got := joinRuns(runs); got != "First Second" {
		t.Errorf("expected %q, got %q", "First Second", got)
	}
}

func TestDirectionText(t *testing.T) {
	r := NewRect(100, 500, 150, 520)
	texts := []pdf.Text{
		{S: "LeftCaption", X: 30, Y: 505, W: 60, FontSize: 10},
		{S: "RightCaption", X: 160, Y: 505, W: 60, FontSize: 10},
		{S: "TopCaption", X: 100, Y: 540, W: 50, FontSize: 10},
		{S: "BottomCaption", X: 100, Y: 460, W: 50, FontSize: 10},
		{S: "FarAway", X: -400, Y: 505, W: 50, FontSize: 10},
	}

	tests := []struct {
		direction string
		wantText  string
		wantGap   float64
	}{
		{"left", "LeftCaption", 10},
		{"right", "RightCaption", 10},
		{"top", "TopCaption", 20},
		{"bottom", "BottomCaption", 30},
	}

	for _, tt := range tests {
		text, gap := directionText(texts, r, tt.direction)
		if text != tt.wantText {
			t.Errorf("directionText(%s) = %q, want %q", tt.direction, text, tt.wantText)
		}
		if gap != tt.wantGap {
			t.Errorf("directionText(%s) gap = %v, want %v", tt.direction, gap, tt.wantGap)
		}
	}
}

func TestDetectPrefersRightForCheckboxes(t *testing.T) {
	r := NewRect(100, 500, 150, 520)
	det := &ContextDetector{texts: map[int][]pdf.Text{1: {
		{S: "LeftCaption", X: 30, Y: 505, W: 60, FontSize: 10},
		{S: "RightCaption", X: 160, Y: 505, W: 60, FontSize: 10},
	}}}

	best, all := det.Detect(1, r, FieldTypeCheckbox)
	if best != "RightCaption" {
		t.Errorf("expected right caption for checkbox, got %q", best)
	}
	if all["left"] != "LeftCaption" || all["right"] != "RightCaption" {
		t.Errorf("unexpected direction map: %v", all)
	}
}

func TestDetectPrefersLeftThenTopForTextFields(t *testing.T) {
	r := NewRect(100, 500, 150, 520)
	leftRun := pdf.Text{S: "LeftCaption", X: 30, Y: 505, W: 60, FontSize: 10}
	topRun := pdf.Text{S: "TopCaption", X: 100, Y: 540, W: 50, FontSize: 10}

	det := &ContextDetector{texts: map[int][]pdf.Text{1: {leftRun, topRun}}}
	if best, _ := det.Detect(1, r, FieldTypeText); best != "LeftCaption" {
		t.Errorf("expected left caption, got %q", best)
	}

	det = &ContextDetector{texts: map[int][]pdf.Text{1: {topRun}}}
	if best, _ := det.Detect(1, r, FieldTypeText); best != "TopCaption" {
		t.Errorf("expected top caption fallback, got %q", best)
	}
}

func TestDetectFallsBackToClosest(t *testing.T) {
	r := NewRect(100, 500, 150, 520)
	det := &ContextDetector{texts: map[int][]pdf.Text{1: {
		{S: "RightCaption", X: 160, Y: 505, W: 60, FontSize: 10},
		{S: "BottomCaption", X: 100, Y: 460, W: 50, FontSize: 10},
	}}}

	// Neither left nor top matches for a text field, so the closest
	// direction wins: right at gap 10 beats bottom at gap 30.
	best, _ := det.Detect(1, r, FieldTypeText)
	if best != "RightCaption" {
		t.Errorf("expected closest caption, got %q", best)
	}
}

func TestDetectEmptyPage(t *testing.T) {
	det := &ContextDetector{texts: map[int][]pdf.Text{}}

	best, all := det.Detect(3, NewRect(0, 0, 10, 10), FieldTypeText)
	if best != "" || all != nil {
		t.Errorf("expected no context for unreadable page, got %q %v", best, all)
	}
}

func TestContextDetectorCloseWithoutFile(t *testing.T) {
	det := &ContextDetector{}
	if err := det.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}
