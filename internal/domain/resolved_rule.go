package domain

import "github.com/google/uuid"

// Provenance of the rule list a check was evaluated against.
const (
	RuleProvenancePersisted = "persisted"
	RuleProvenanceGenerated = "generated"
)

// ResolvedRule is the shape the extraction and evaluation prompts consume.
// For persisted provenance the ID is a real ComplianceRule key; for
// generated provenance it is a fresh id that exists nowhere in the rule
// store and only serves to correlate verdicts back to rules.
type ResolvedRule struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Severity         string    `json:"severity"`
	ValidationPrompt string    `json:"validation_prompt"`
}

func ResolvedFromRule(r *ComplianceRule) ResolvedRule {
	return ResolvedRule{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		Category:         r.Category,
		Severity:         r.Severity,
		ValidationPrompt: r.ValidationPrompt,
	}
}
