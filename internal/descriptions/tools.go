package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	// Labeling Tools
	LabelResolveDocumentDescription = `Run one PDF through the complete labeling sequence and write a refined copy with standardized field names.

**When to use:** A fillable PDF has machine-generated or inconsistent field names (Text1, topmostSubform[0].f1_01[0]) and you want every field renamed to a canonical lower_snake_case label.

**Why it's useful:** Handles the whole sequence in one call: removes edit restrictions, extracts every form field with its surrounding text, resolves each field against the shared label corpus, renames the fields, and verifies the result.

**Examples:**
• Standardize a tax form: "Resolve /forms/f8821.pdf so its fields use corpus labels"
• Process an intake packet: "Label bankruptcy-petition.pdf and check the report for duplicates"
• Reprocess after corpus changes: "Re-run divorce-form.pdf now that spouse labels exist"

**Common workflows:**
1. Discovery: pdf_scan_directory → label_resolve_document per file → review reports
2. Corpus Growth: Resolve documents → new labels accumulate → later documents reuse them
3. Quality Control: Resolve → check 'verified' and 'report.duplicated_labels' → fix and re-run

**Best practices:** The input must live inside the configured input directory; outputs are written as '<name>_refined.pdf' plus a '<name>_fields.json' sidecar.`

	LabelSearchSimilarDescription = `Rank existing corpus labels against field context text using lexical and semantic similarity.

**When to use:** Deciding what to call a field and you want to know whether the corpus already has a label for this concept.

**Why it's useful:** Prevents near-duplicate labels (employer_name vs name_of_employer) by surfacing the closest existing labels with scores before a new one is minted.

**Examples:**
• Check before adding: "Search for labels similar to 'Name of Employer' before creating one"
• Explore the corpus: "What labels exist around 'home address'?"
• Disambiguate: "Rank matches for 'Date' to see which date labels the corpus distinguishes"

**Common workflows:**
1. Manual Labeling: Search similar → pick the best match → label_check_exists for variations
2. Corpus Hygiene: Search a suspect label → compare scores → merge or keep
3. New Label Vetting: Search → no close match → label_validate_format → label_add

**Best practices:** Pass the field's visible caption text, not its raw name; an empty corpus returns an empty list rather than an error.`

	LabelCheckExistsDescription = `Check whether a label exists in the corpus and list its numbered variations.

**When to use:** Before assigning or adding a label, or when a document repeats a section (second employer, third child) and you need the next free variation.

**Why it's useful:** Labels are append-only and unique; checking first avoids duplicate-label conflicts and reveals families like employer_name, employer_2_name with the next free member.

**Examples:**
• Pre-assignment check: "Does 'spouse_first_name' already exist?"
• Repeating sections: "What variations of 'marriage_date' exist and what's next?"
• Audit: "Confirm 'debtor_signature' is present before wiring a template to it"

**Common workflows:**
1. Assignment: Check exists → exists: reuse it → missing: validate and add
2. Repeats: Check base label → take 'next_label' for the second occurrence
3. Cleanup: Check suspect labels → compare entries → decide on merges

**Best practices:** Look up the exact label string; use label_search_similar first when you only know the concept.`

	LabelValidateFormatDescription = `Validate label syntax and return the normalized form the corpus would accept.

**When to use:** Before label_add, or when converting a raw field caption into a label and you want the canonical spelling.

**Why it's useful:** Labels must be lower_snake_case within length bounds; this reports the exact problem and the auto-fixed form, including the _checkbox suffix when the raw field name indicates a checkbox.

**Examples:**
• Pre-add check: "Validate 'First Name' to get the canonical 'first_name' before adding"
• Checkbox naming: "Validate 'US Citizen' with raw_name 'cb_citizen' to get the checkbox suffix"
• Syntax audit: "Validate imported labels before bulk-adding them"

**Common workflows:**
1. Safe Adds: Validate → use 'normalized' → label_add
2. Import: Validate each candidate → collect problems → fix and retry
3. Convention Checks: Validate template labels → enforce lower_snake_case everywhere

**Best practices:** Always add the normalized form, not your raw input; pass raw_name when the field is a checkbox so the suffix convention applies.`

	LabelAddDescription = `Append a new canonical label to the shared corpus.

**When to use:** A field concept has no close match in the corpus and needs a first-class label other documents can reuse.

**Why it's useful:** The corpus is the single source of truth for field names across all documents; adding here makes the label immediately rankable for every later resolution.

**Examples:**
• New concept: "Add 'prior_bankruptcy_case_number' with a short description"
• Seed a corpus: "Add the standard identity labels before the first batch run"
• Capture context: "Add 'garnishment_amount' with the caption text it came from"

**Common workflows:**
1. Vetted Add: label_search_similar → label_validate_format → label_add
2. Seeding: Add core labels → run batch → let resolution grow the rest
3. Incremental Growth: Resolve documents → add the labels resolution reports as created

**Best practices:** Input is normalized before appending; adding a label that already exists reports 'added: false' instead of failing.`

	LabelCorpusStatsDescription = `Get corpus size, storage details, and the most recently added labels.

**When to use:** Monitoring corpus growth, verifying a batch run added what you expected, or checking which store backs the corpus.

**Why it's useful:** Recent labels show what resolution has been creating, which quickly surfaces naming drift or runaway label creation after a batch.

**Examples:**
• Post-run check: "How many labels exist now, and what was added last?"
• Drift watch: "Review the last ten labels for convention violations"
• Store audit: "Confirm the server is using the sqlite corpus, not a stray JSON file"

**Common workflows:**
1. Batch Review: Run batch → corpus stats → inspect recent labels
2. Monitoring: Periodic stats → track growth rate → investigate spikes
3. Migration Check: Migrate store → stats → confirm counts match

**Best practices:** Use the 'recent' parameter to widen the window after large batch runs.`

	// Search and Discovery Tools
	PDFScanDirectoryDescription = `Discover labelable PDF files with intelligent filename search.

**When to use:** Need to find input PDFs by name patterns, explore the input directory, or see what still needs labeling.

**Why it's useful:** Quickly locates relevant documents without manual browsing, supports fuzzy matching for partial names, and automatically excludes refined outputs and unlocked intermediates.

**Examples:**
• Find tax forms: "Scan the input directory for files containing 'f1040'"
• Locate petitions: "Find all PDFs with 'petition' in the name"
• Inventory building: "List every labelable PDF to plan a batch run"

**Common workflows:**
1. Targeted Processing: Scan with a query → label_resolve_document per match → review reports
2. Content Discovery: Scan the directory → identify form families → plan corpus seeding
3. Batch Preparation: Scan → compare against refined outputs → queue the remainder

**Best practices:** Use fuzzy search for partial matches; '_refined.pdf' and '_unlocked.pdf' files never appear in results.`

	// Utility Tools
	LabelerServerInfoDescription = `Get real-time server status, available tools, corpus size, and pending documents.

**When to use:** Starting work with the labeler, troubleshooting issues, or checking what still awaits processing.

**Why it's useful:** Provides complete overview of server capabilities, configured directories, the active oracle, and which input documents have no refined output yet.

**Examples:**
• System check: "Verify directories and corpus before a batch run"
• Troubleshooting: "Check server info to diagnose why files aren't being found"
• Capability discovery: "See all available tools and their descriptions for new projects"

**Common workflows:**
1. Session Startup: Check server info → verify capabilities → plan processing approach
2. Debugging: Review server status → check directory paths → verify tool availability
3. Progress Tracking: Review pending documents → resolve them → re-check

**Best practices:** Run at start of sessions; the pending list is capped, so use pdf_scan_directory for a complete inventory.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"label_resolve_document": LabelResolveDocumentDescription,
	"label_search_similar":   LabelSearchSimilarDescription,
	"label_check_exists":     LabelCheckExistsDescription,
	"label_validate_format":  LabelValidateFormatDescription,
	"label_add":              LabelAddDescription,
	"label_corpus_stats":     LabelCorpusStatsDescription,
	"pdf_scan_directory":     PDFScanDirectoryDescription,
	"labeler_server_info":    LabelerServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
