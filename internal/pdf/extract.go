package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Extractor pulls AcroForm fields out of a PDF using pdfcpu.
type Extractor struct {
	debug bool
}

// NewExtractor creates a form field extractor.
func NewExtractor(debug bool) *Extractor {
	return &Extractor{debug: debug}
}

// inherited carries the attributes AcroForm kids inherit from their
// ancestors when they do not define their own.
type inherited struct {
	fieldType string
	flags     int
	hasFlags  bool
}

// ExtractFile extracts every terminal field widget from a PDF, grouped
// by page in document order, with nearby-text context attached where
// the form does not carry authored tooltips.
func (e *Extractor) ExtractFile(path string) (*FieldsDocument, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	fields, err := e.walkForm(ctx)
	if err != nil {
		return nil, err
	}

	// Context detection is best effort: a PDF whose content streams
	// ledongthuc cannot read still yields fields, just without nearby
	// text.
	if det, err := NewContextDetector(path); err == nil {
		for i := range fields {
			e.detectContext(det, &fields[i])
		}
		det.Close()
	} else if e.debug {
		fmt.Printf("Context detection unavailable for %s: %v\n", path, err)
	}

	doc := &FieldsDocument{
		Filename:    filepath.Base(path),
		Filepath:    path,
		TotalPages:  ctx.PageCount,
		TotalFields: len(fields),
	}

	byPage := map[int][]FormField{}
	for _, f := range fields {
		byPage[f.Page] = append(byPage[f.Page], f)
	}
	pages := make([]int, 0, len(byPage))
	for p := range byPage {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	for _, p := range pages {
		doc.Pages = append(doc.Pages, PageFields{PageNumber: p, Fields: byPage[p]})
	}
	return doc, nil
}

// walkForm walks the AcroForm field tree and returns one entry per
// terminal widget, in tree order.
func (e *Extractor) walkForm(ctx *model.Context) ([]FormField, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	pageOf := e.mapAnnotationPages(ctx, rootDict)

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		if e.debug {
			fmt.Println("No AcroForm dictionary found in document")
		}
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var out []FormField
	for i, fieldRef := range fieldsArray {
		if err := e.walkField(ctx, fieldRef, "", inherited{}, pageOf, &out); err != nil {
			if e.debug {
				fmt.Printf("Skipping field %d: %v\n", i, err)
			}
		}
	}
	return out, nil
}

// walkField descends one field node. Kids with their own T entry are
// child fields and extend the dotted name; kids without T are widget
// annotations of the same field. Only terminal nodes emit an entry.
func (e *Extractor) walkField(ctx *model.Context, obj types.Object, parentName string, inh inherited, pageOf map[int]int, out *[]FormField) error {
	fieldDict, err := ctx.DereferenceDict(obj)
	if err != nil {
		return fmt.Errorf("failed to dereference field: %w", err)
	}
	if fieldDict == nil {
		return nil
	}

	name := parentName
	if nameObj, found := fieldDict.Find("T"); found {
		if own, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && own != "" {
			if name != "" {
				name = name + "." + own
			} else {
				name = own
			}
		}
	}

	if ftObj, found := fieldDict.Find("FT"); found {
		if ft, err := ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			inh.fieldType = string(ft)
		}
	}
	if flagsObj, found := fieldDict.Find("Ff"); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			inh.flags = int(*flags)
			inh.hasFlags = true
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		kidsArray, err := ctx.DereferenceArray(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to dereference Kids: %w", err)
		}
		for _, kid := range kidsArray {
			if err := e.walkField(ctx, kid, name, inh, pageOf, out); err != nil && e.debug {
				fmt.Printf("Skipping kid of %q: %v\n", name, err)
			}
		}
		return nil
	}

	field := e.buildField(ctx, fieldDict, obj, name, inh, pageOf)
	if field.Name == "" {
		field.Name = fmt.Sprintf("field_%d", len(*out))
	}
	*out = append(*out, field)
	return nil
}

func (e *Extractor) buildField(ctx *model.Context, fieldDict types.Dict, obj types.Object, name string, inh inherited, pageOf map[int]int) FormField {
	field := FormField{
		Name: name,
		Type: fieldTypeOf(inh.fieldType, inh.flags),
	}
	if inh.hasFlags {
		field.Flags = inh.flags
		field.ReadOnly = inh.flags&1 != 0
		field.Required = inh.flags&2 != 0
		field.NoExport = inh.flags&4 != 0
	}

	if tuObj, found := fieldDict.Find("TU"); found {
		if tu, err := ctx.DereferenceStringOrHexLiteral(tuObj, model.V10, nil); err == nil {
			field.TooltipContext = strings.TrimSpace(tu)
		}
	}

	if valueObj, found := fieldDict.Find("V"); found {
		field.Value = e.valueString(ctx, valueObj, field.Type)
		if field.Type == FieldTypeCheckbox {
			field.Checked = field.Value != "" && field.Value != "Off"
		}
	}
	if defaultObj, found := fieldDict.Find("DV"); found {
		field.DefaultValue = e.valueString(ctx, defaultObj, field.Type)
	}

	if field.Type == FieldTypeText {
		if maxLenObj, found := fieldDict.Find("MaxLen"); found {
			if maxLen, err := ctx.DereferenceInteger(maxLenObj); err == nil && maxLen != nil {
				field.MaxLen = int(*maxLen)
			}
		}
	}
	if field.Type == FieldTypeComboBox || field.Type == FieldTypeListBox {
		field.Options = e.fieldOptions(ctx, fieldDict)
	}

	if rect, ok := e.rectOf(ctx, fieldDict); ok {
		field.Rect = &rect
	}
	field.Page = pageFor(obj, pageOf)
	return field
}

// fieldTypeOf maps an FT name plus button flags to the sidecar type
// names. Radio is Ff bit 16, pushbutton bit 17, combo bit 18.
func fieldTypeOf(ft string, flags int) FieldType {
	switch ft {
	case "Tx":
		return FieldTypeText
	case "Btn":
		if flags&(1<<15) != 0 {
			return FieldTypeRadio
		}
		if flags&(1<<16) != 0 {
			return FieldTypeButton
		}
		return FieldTypeCheckbox
	case "Ch":
		if flags&(1<<17) != 0 {
			return FieldTypeComboBox
		}
		return FieldTypeListBox
	case "Sig":
		return FieldTypeSignature
	default:
		return FieldTypeUnknown
	}
}

func (e *Extractor) valueString(ctx *model.Context, obj types.Object, fieldType FieldType) string {
	switch fieldType {
	case FieldTypeCheckbox, FieldTypeRadio, FieldTypeButton:
		if name, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
			return string(name)
		}
	case FieldTypeComboBox, FieldTypeListBox:
		if val, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
			return val
		}
		if arr, err := ctx.DereferenceArray(obj); err == nil {
			var values []string
			for _, item := range arr {
				if val, err := ctx.DereferenceStringOrHexLiteral(item, model.V10, nil); err == nil {
					values = append(values, val)
				}
			}
			return strings.Join(values, ", ")
		}
	default:
		if val, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
			return val
		}
	}
	return ""
}

// fieldOptions extracts Opt entries for choice fields. Options can be
// plain strings or [export, display] pairs; the display value wins.
func (e *Extractor) fieldOptions(ctx *model.Context, fieldDict types.Dict) []string {
	optObj, found := fieldDict.Find("Opt")
	if !found {
		return nil
	}
	optArray, err := ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}

	var options []string
	for _, opt := range optArray {
		if str, err := ctx.DereferenceStringOrHexLiteral(opt, model.V10, nil); err == nil {
			options = append(options, str)
			continue
		}
		if arr, err := ctx.DereferenceArray(opt); err == nil && len(arr) >= 2 {
			if display, err := ctx.DereferenceStringOrHexLiteral(arr[1], model.V10, nil); err == nil {
				options = append(options, display)
			}
		}
	}
	return options
}

func (e *Extractor) rectOf(ctx *model.Context, fieldDict types.Dict) (Rect, bool) {
	rectObj, found := fieldDict.Find("Rect")
	if !found {
		return Rect{}, false
	}
	rectArray, err := ctx.DereferenceArray(rectObj)
	if err != nil || len(rectArray) != 4 {
		return Rect{}, false
	}
	coords := make([]float64, 4)
	for i, coord := range rectArray {
		f, err := ctx.DereferenceNumber(coord)
		if err != nil {
			return Rect{}, false
		}
		coords[i] = f
	}
	return NewRect(coords[0], coords[1], coords[2], coords[3]), true
}

// mapAnnotationPages walks the page tree and records the page number
// of every annotation object, keyed by object number. Field widgets
// are annotations, so this is how a field finds its page.
func (e *Extractor) mapAnnotationPages(ctx *model.Context, rootDict types.Dict) map[int]int {
	pageOf := map[int]int{}
	pagesObj, found := rootDict.Find("Pages")
	if !found {
		return pageOf
	}
	pageNr := 0
	e.walkPageTree(ctx, pagesObj, &pageNr, pageOf, 0)
	return pageOf
}

func (e *Extractor) walkPageTree(ctx *model.Context, obj types.Object, pageNr *int, pageOf map[int]int, depth int) {
	if depth > 50 {
		return
	}
	d, err := ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	if kidsObj, found := d.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				e.walkPageTree(ctx, kid, pageNr, pageOf, depth+1)
			}
		}
		return
	}

	*pageNr++
	annotsObj, found := d.Find("Annots")
	if !found {
		return
	}
	annots, err := ctx.DereferenceArray(annotsObj)
	if err != nil {
		return
	}
	for _, a := range annots {
		if ref, ok := a.(types.IndirectRef); ok {
			pageOf[ref.ObjectNumber.Value()] = *pageNr
		}
	}
}

// pageFor resolves a field object to its page number. Widgets that
// cannot be located default to page 1.
func pageFor(obj types.Object, pageOf map[int]int) int {
	if ref, ok := obj.(types.IndirectRef); ok {
		if p, ok := pageOf[ref.ObjectNumber.Value()]; ok {
			return p
		}
	}
	return 1
}

func (e *Extractor) detectContext(det *ContextDetector, field *FormField) {
	if field.TooltipContext != "" || field.Rect == nil || field.Page < 1 {
		return
	}
	best, all := det.Detect(field.Page, *field.Rect, field.Type)
	field.DetectedContext = best
	if len(all) > 0 {
		field.ContextDirection = all
	}
}
