package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUnlockResultChanged(t *testing.T) {
	if (UnlockResult{}).Changed() {
		t.Error("zero result should not report changes")
	}
	if !(UnlockResult{RemovedPerms: true}).Changed() {
		t.Error("removed perms should report changes")
	}
	if !(UnlockResult{UnlockedFields: 2}).Changed() {
		t.Error("unlocked fields should report changes")
	}
}

func TestUnlockFile(t *testing.T) {
	testPath := filepath.Join("testdata", "sample_form.pdf")
	if _, err := os.Stat(testPath); os.IsNotExist(err) {
		t.Skipf("Test file %s not found", testPath)
	}

	outPath := filepath.Join(t.TempDir(), "unlocked.pdf")
	result, err := Unlock(testPath, outPath)
	if err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("output was not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("output file is empty")
	}

	// The unlocked copy must still expose the same fields.
	extractor := NewExtractor(false)
	before, err := extractor.ExtractFile(testPath)
	if err != nil {
		t.Fatalf("extract original failed: %v", err)
	}
	after, err := extractor.ExtractFile(outPath)
	if err != nil {
		t.Fatalf("extract unlocked failed: %v", err)
	}
	if before.TotalFields != after.TotalFields {
		t.Errorf("field count changed: %d before, %d after", before.TotalFields, after.TotalFields)
	}
	for _, field := range after.AllFields() {
		if field.ReadOnly {
			t.Errorf("field %q is still read only after unlock", field.Name)
		}
	}
}

func TestUnlockMissingInput(t *testing.T) {
	if _, err := Unlock("/non/existent.pdf", filepath.Join(t.TempDir(), "out.pdf")); err == nil {
		t.Error("expected error for missing input")
	}
}
