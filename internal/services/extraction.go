package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdantiq/labelproof-backend/internal/domain"
	pkgerr "github.com/verdantiq/labelproof-backend/internal/pkg/errors"
	"github.com/verdantiq/labelproof-backend/internal/platform/logger"
)

// ExtractionService pulls structured field data out of a single label panel
// image. One model call per panel, no cross-panel state.
type ExtractionService interface {
	ExtractPanel(ctx context.Context, image []byte, mimeType, panelType, productType string, rules []domain.ResolvedRule) (domain.ExtractedLabelData, error)
}

type extractionService struct {
	log   *logger.Logger
	model GeminiClient
}

func NewExtractionService(baseLog *logger.Logger, model GeminiClient) ExtractionService {
	return &extractionService{
		log:   baseLog.With("service", "ExtractionService"),
		model: model,
	}
}

func buildExtractionInstruction(panelType, productType string, rules []domain.ResolvedRule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are reading the %s panel of a cannabis %s product label.\n\n", panelType, productType)
	b.WriteString("Extract every piece of compliance-relevant information visible in the image. The rules below describe what will be validated, so prioritize fields they mention:\n\n")
	for i, rule := range rules {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, rule.Name, rule.ValidationPrompt)
	}
	b.WriteString(`
Return a single JSON object. Use descriptive camelCase keys for each extracted field (for example thcPercentage, netWeight, governmentWarning, batchNumber, licenseNumber). Use arrays for repeated items such as ingredients. In addition, the object MUST contain:

- "rawText": one string concatenating ALL text visible on the panel, in reading order
- "extractionConfidence": {"overall": <0..1>, "fields": {<fieldName>: <0..1>, ...}}
- "flaggedForReview": true when any value was hard to read or ambiguous
- "reviewReasons": array of strings explaining each flagged value (empty array when nothing is flagged)

If a field the rules care about is not present on this panel, omit it rather than guessing. Return JSON only.`)
	return b.String()
}

func extractionSchema() map[string]any {
	// Keys other than the reserved four are rule-driven and unknown ahead of
	// time, so the schema hint stays open.
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			domain.ExtractedKeyRawText:          map[string]any{"type": "string"},
			domain.ExtractedKeyConfidence:       map[string]any{"type": "object"},
			domain.ExtractedKeyFlaggedForReview: map[string]any{"type": "boolean"},
			domain.ExtractedKeyReviewReasons: map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{
			domain.ExtractedKeyRawText,
			domain.ExtractedKeyConfidence,
			domain.ExtractedKeyFlaggedForReview,
			domain.ExtractedKeyReviewReasons,
		},
	}
}

func (s *extractionService) ExtractPanel(ctx context.Context, image []byte, mimeType, panelType, productType string, rules []domain.ResolvedRule) (domain.ExtractedLabelData, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty panel image", pkgerr.ErrInvalidArgument)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	instruction := buildExtractionInstruction(panelType, productType, rules)
	raw, err := s.model.GenerateJSONWithImage(ctx, instruction, image, mimeType, extractionSchema())
	if err != nil {
		return nil, err
	}

	data, err := domain.ParseExtractedLabelData(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: panel %s: %v", pkgerr.ErrUpstream, panelType, err)
	}
	s.log.Debug("Panel extracted",
		"panel_type", panelType,
		"fields", len(data),
	)
	return data, nil
}
