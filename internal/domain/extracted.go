package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved keys every extraction result must carry alongside the rule-driven
// free-form fields.
const (
	ExtractedKeyRawText          = "rawText"
	ExtractedKeyConfidence       = "extractionConfidence"
	ExtractedKeyFlaggedForReview = "flaggedForReview"
	ExtractedKeyReviewReasons    = "reviewReasons"
)

// ExtractedLabelData is the open-shaped output of one panel extraction. Keys
// other than the reserved ones are only known at runtime (rule-driven), so
// the representation is a plain map rather than a struct.
type ExtractedLabelData map[string]any

func ParseExtractedLabelData(raw []byte) (ExtractedLabelData, error) {
	var data ExtractedLabelData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("extracted data is not a JSON object: %w", err)
	}
	if _, ok := data[ExtractedKeyRawText].(string); !ok {
		return nil, fmt.Errorf("extracted data missing required key %q", ExtractedKeyRawText)
	}
	if _, ok := data[ExtractedKeyConfidence]; !ok {
		return nil, fmt.Errorf("extracted data missing required key %q", ExtractedKeyConfidence)
	}

	// The review keys default when absent but must be well-typed when
	// present, so review-flag reads never guess at shapes.
	if v, ok := data[ExtractedKeyFlaggedForReview]; ok {
		if _, isBool := v.(bool); !isBool {
			return nil, fmt.Errorf("extracted data key %q is not a boolean", ExtractedKeyFlaggedForReview)
		}
	} else {
		data[ExtractedKeyFlaggedForReview] = false
	}
	if v, ok := data[ExtractedKeyReviewReasons]; ok {
		arr, isArr := v.([]any)
		if !isArr {
			return nil, fmt.Errorf("extracted data key %q is not an array", ExtractedKeyReviewReasons)
		}
		for _, item := range arr {
			if _, isStr := item.(string); !isStr {
				return nil, fmt.Errorf("extracted data key %q contains a non-string entry", ExtractedKeyReviewReasons)
			}
		}
	} else {
		data[ExtractedKeyReviewReasons] = []any{}
	}
	return data, nil
}

func (d ExtractedLabelData) JSON() ([]byte, error) {
	return json.Marshal(map[string]any(d))
}

func (d ExtractedLabelData) RawText() string {
	s, _ := d[ExtractedKeyRawText].(string)
	return s
}

func (d ExtractedLabelData) FlaggedForReview() bool {
	b, _ := d[ExtractedKeyFlaggedForReview].(bool)
	return b
}

func (d ExtractedLabelData) ReviewReasons() []string {
	arr, _ := d[ExtractedKeyReviewReasons].([]any)
	reasons := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			reasons = append(reasons, s)
		}
	}
	return reasons
}

// MergeExtractedPanels folds per-panel extractions into one combined record,
// in panel upload order. Array fields concatenate, rawText joins with a
// separator, scalar collisions resolve last-write-wins.
func MergeExtractedPanels(panels []ExtractedLabelData) ExtractedLabelData {
	merged := ExtractedLabelData{}
	var rawParts []string
	for _, panel := range panels {
		for key, val := range panel {
			if key == ExtractedKeyRawText {
				if s, ok := val.(string); ok && s != "" {
					rawParts = append(rawParts, s)
				}
				continue
			}
			existing, present := merged[key]
			if !present {
				merged[key] = val
				continue
			}
			existingArr, eOK := existing.([]any)
			valArr, vOK := val.([]any)
			switch {
			case eOK && vOK:
				merged[key] = append(existingArr, valArr...)
			case eOK:
				merged[key] = append(existingArr, val)
			case vOK:
				merged[key] = append([]any{existing}, valArr...)
			default:
				merged[key] = val
			}
		}
	}
	merged[ExtractedKeyRawText] = strings.Join(rawParts, "\n---\n")
	return merged
}
