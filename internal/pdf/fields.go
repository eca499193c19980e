// Package pdf reads, unlocks, relabels and verifies AcroForm documents.
// All binary-format work goes through pdfcpu; positioned page text comes
// from ledongthuc/pdf. Nothing in this package parses PDF syntax itself.
package pdf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FieldType names mirror the sidecar document format, which predates
// this tool and is consumed by downstream form-filling systems.
type FieldType string

const (
	FieldTypeText      FieldType = "Text"
	FieldTypeCheckbox  FieldType = "CheckBox"
	FieldTypeRadio     FieldType = "RadioButton"
	FieldTypeComboBox  FieldType = "ComboBox"
	FieldTypeListBox   FieldType = "ListBox"
	FieldTypeButton    FieldType = "Button"
	FieldTypeSignature FieldType = "Signature"
	FieldTypeUnknown   FieldType = "Unknown"
)

// IsCheckable reports whether the field is a checkbox or radio widget.
// Context detection treats these differently: their caption usually
// sits to the right of the box.
func (t FieldType) IsCheckable() bool {
	return t == FieldTypeCheckbox || t == FieldTypeRadio
}

// Rect is a widget rectangle in PDF user space (origin bottom-left).
type Rect struct {
	X0     float64 `json:"x0"`
	Y0     float64 `json:"y0"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect builds a Rect from two corner points, normalizing so that
// (X0,Y0) is the lower left.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1, Width: x1 - x0, Height: y1 - y0}
}

// FormField is one terminal field widget as the extractor sees it.
type FormField struct {
	Name             string            `json:"field_name"`
	TooltipContext   string            `json:"field_context_on_pdf,omitempty"`
	DetectedContext  string            `json:"field_context_detected,omitempty"`
	ContextDirection map[string]string `json:"field_context_all_directions,omitempty"`
	Type             FieldType         `json:"field_type"`
	Value            string            `json:"field_value,omitempty"`
	DefaultValue     string            `json:"default_value,omitempty"`
	Flags            int               `json:"field_flags"`
	ReadOnly         bool              `json:"is_readonly"`
	Required         bool              `json:"is_required"`
	NoExport         bool              `json:"is_no_export"`
	Checked          bool              `json:"is_checked,omitempty"`
	MaxLen           int               `json:"text_maxlen,omitempty"`
	Options          []string          `json:"choice_values,omitempty"`
	Page             int               `json:"page"`
	Rect             *Rect             `json:"rect,omitempty"`
}

// Context returns the best available description of the field: the
// authored tooltip when the form carries one, otherwise the text
// detected near the widget.
func (f FormField) Context() string {
	if c := strings.TrimSpace(f.TooltipContext); c != "" {
		return c
	}
	return strings.TrimSpace(f.DetectedContext)
}

// PositionString formats the widget rectangle for prompts and logs.
func (f FormField) PositionString() string {
	if f.Rect == nil {
		return ""
	}
	return fmt.Sprintf("(%.0f, %.0f) to (%.0f, %.0f)", f.Rect.X0, f.Rect.Y0, f.Rect.X1, f.Rect.Y1)
}

// PageFields groups the fields found on one page.
type PageFields struct {
	PageNumber int         `json:"page_number"`
	Fields     []FormField `json:"fields"`
}

// FieldsDocument is the `<stem>_fields.json` sidecar written next to
// each processed PDF. Pages with no fields are omitted.
type FieldsDocument struct {
	Filename    string       `json:"filename"`
	Filepath    string       `json:"filepath"`
	TotalPages  int          `json:"total_pages"`
	TotalFields int          `json:"total_fields"`
	Pages       []PageFields `json:"pages"`
	Error       string       `json:"error,omitempty"`
}

// AllFields flattens the per-page groups back into document order.
func (d *FieldsDocument) AllFields() []FormField {
	fields := make([]FormField, 0, d.TotalFields)
	for _, page := range d.Pages {
		fields = append(fields, page.Fields...)
	}
	return fields
}

// Stem returns the file name without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SidecarPath returns the fields-sidecar path for a PDF in dir.
func SidecarPath(dir, pdfPath string) string {
	return filepath.Join(dir, Stem(pdfPath)+"_fields.json")
}

// WriteFieldsDocument writes the sidecar with stable indentation.
func WriteFieldsDocument(path string, doc *FieldsDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fields document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write fields document: %w", err)
	}
	return nil
}

// ReadFieldsDocument loads a previously written sidecar.
func ReadFieldsDocument(path string) (*FieldsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fields document: %w", err)
	}
	var doc FieldsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fields document %s: %w", path, err)
	}
	return &doc, nil
}
