package recorder

import "caduceus-hq/veil/pkg/audit"

// SanitizeOperations reduces raw tag operations to their persisted form.
// Only presence, byte length and a one-way SHA-256 hash of the original
// value survive; the value itself never leaves the input slice.
func SanitizeOperations(operations []audit.TagOperation) []audit.SanitizedOperation {
	sanitized := make([]audit.SanitizedOperation, 0, len(operations))
	for _, op := range operations {
		s := audit.SanitizedOperation{
			Tag:         op.Tag,
			Action:      op.Action,
			HadValue:    op.OriginalValue != "",
			ValueLength: len(op.OriginalValue),
		}
		if op.OriginalValue != "" {
			s.ValueHash = HashString(op.OriginalValue)
		}
		sanitized = append(sanitized, s)
	}
	return sanitized
}

// Summarize computes the aggregate counts for a record from an
// anonymization result.
func Summarize(result *audit.AnonymizationResult) audit.Summary {
	summary := audit.Summary{
		TagsProcessed:      len(result.Operations),
		ValidationPassed:   result.Validation.Passed,
		ErrorCount:         len(result.Validation.Errors),
		WarningCount:       len(result.Validation.Warnings),
		OriginalTagCount:   result.OriginalTagCount,
		AnonymizedTagCount: result.AnonymizedTagCount,
	}

	for _, op := range result.Operations {
		switch op.Action {
		case audit.ActionRemoved:
			summary.TagsRemoved++
		case audit.ActionPseudonymized:
			summary.TagsPseudonymized++
		case audit.ActionPreserved:
			summary.TagsPreserved++
		}
	}

	return summary
}
