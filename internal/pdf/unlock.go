package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Field flag bits cleared during unlock. Bit 1 marks a field read
// only; bit 14 is set on fields frozen after signing.
const (
	flagReadOnly   = 1
	flagSignLocked = 1 << 13
)

// UnlockResult reports what Unlock removed from a document.
type UnlockResult struct {
	RemovedPerms    bool `json:"removed_perms"`
	RemovedXFA      bool `json:"removed_xfa"`
	RemovedSigFlags bool `json:"removed_sigflags"`
	UnlockedFields  int  `json:"unlocked_fields"`
}

// Changed reports whether Unlock modified anything.
func (r UnlockResult) Changed() bool {
	return r.RemovedPerms || r.RemovedXFA || r.RemovedSigFlags || r.UnlockedFields > 0
}

// Unlock strips the usage restrictions that stop form fields from being
// edited: the document Perms dictionary, XFA payloads, signature flags,
// per-field Lock dictionaries and the read-only flag bits. The modified
// document is written to outputPath.
func Unlock(inputPath, outputPath string) (*UnlockResult, error) {
	file, err := os.Open(inputPath)
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

	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	result := &UnlockResult{}
	if _, found := rootDict.Find("Perms"); found {
		delete(rootDict, "Perms")
		result.RemovedPerms = true
	}

	if acroFormObj, found := rootDict.Find("AcroForm"); found {
		acroFormDict, err := ctx.DereferenceDict(acroFormObj)
		if err == nil && acroFormDict != nil {
			if _, found := acroFormDict.Find("XFA"); found {
				delete(acroFormDict, "XFA")
				result.RemovedXFA = true
			}
			if _, found := acroFormDict.Find("SigFlags"); found {
				delete(acroFormDict, "SigFlags")
				result.RemovedSigFlags = true
			}
			if fieldsObj, found := acroFormDict.Find("Fields"); found {
				if fieldsArray, err := ctx.DereferenceArray(fieldsObj); err == nil {
					for _, fieldRef := range fieldsArray {
						result.UnlockedFields += unlockField(ctx, fieldRef, 0)
					}
				}
			}
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := api.WriteContext(ctx, out); err != nil {
		return nil, fmt.Errorf("failed to write unlocked PDF: %w", err)
	}
	return result, nil
}

// unlockField clears the lock state of one field node and recurses into
// its kids. Returns the number of nodes it changed.
func unlockField(ctx *model.Context, obj types.Object, depth int) int {
	if depth > 50 {
		return 0
	}
	fieldDict, err := ctx.DereferenceDict(obj)
	if err != nil || fieldDict == nil {
		return 0
	}

	changed := 0
	if _, found := fieldDict.Find("Lock"); found {
		delete(fieldDict, "Lock")
		changed = 1
	}
	if flagsObj, found := fieldDict.Find("Ff"); found {
		if flags, err := ctx.DereferenceInteger(flagsObj); err == nil && flags != nil {
			cleared := int(*flags) &^ flagReadOnly &^ flagSignLocked
			if cleared != int(*flags) {
				fieldDict["Ff"] = types.Integer(cleared)
				changed = 1
			}
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kidsArray, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kidsArray {
				changed += unlockField(ctx, kid, depth+1)
			}
		}
	}
	return changed
}
