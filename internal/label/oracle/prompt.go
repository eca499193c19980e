package oracle

import (
	"fmt"
	"strings"
)

// systemPrompt frames the normalization task for the model.
const systemPrompt = `You are a PDF form field normalization expert.
Your job is to map each raw field name to a clear, standardized snake_case label.

Rules:
1. Always output lowercase snake_case labels.
2. Use concise semantic meaning, for example:
   - 'P1_WageEarnerSSN_FLD' becomes 'wage_earner_social_security_number'
   - 'FirstNameofSpouse' becomes 'spouse_first_name'
3. Never include page or index IDs (like P1_, [0], _FLD).
4. Prefer reusing a candidate label over inventing a near-duplicate of it.
5. Only return valid JSON with keys:
   {action, original_field_name, standardized_label, confidence, reasoning}.
   action must be one of: keep_original, match_existing, create_new.`

// userPromptTemplate carries one field. Missing context is spelled out
// rather than omitted so the model does not hallucinate one.
const userPromptTemplate = `Standardize this field:

Field Name: %s
Field Type: %s
Context on PDF: %s
Page: %d
Position: %s

Candidate labels already in the corpus (best match first):
%s`

// conflictTemplate is appended on re-entry after a uniqueness conflict.
const conflictTemplate = `

IMPORTANT: %s
Do not answer with the conflicting label again.`

// BuildPrompt renders the system and user messages for a request.
func BuildPrompt(req Request) (system, user string) {
	context := req.Context
	if context == "" {
		context = "Not available"
	}
	position := req.Position
	if position == "" {
		position = "Unknown"
	}

	user = fmt.Sprintf(userPromptTemplate,
		req.RawName,
		req.FieldType,
		context,
		req.Page,
		position,
		formatCandidates(req.Candidates),
	)
	if note := strings.TrimSpace(req.ConflictNote); note != "" {
		user += fmt.Sprintf(conflictTemplate, note)
	}
	return systemPrompt, user
}
