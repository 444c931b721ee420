package recorder

import "caduceus-hq/veil/pkg/audit"

// hipaaIdentifier is one entry in the fixed HIPAA identifier table.
type hipaaIdentifier struct {
	Tag  string
	Name string
}

// hipaaIdentifiers lists the DICOM tag coordinates that carry direct
// patient identifiers under HIPAA. Every one of them must be removed or
// pseudonymized for a record to count as HIPAA compliant.
var hipaaIdentifiers = []hipaaIdentifier{
	{"(0010,0010)", "patient name"},
	{"(0010,0020)", "patient ID"},
	{"(0010,0030)", "birth date"},
	{"(0008,0050)", "accession number"},
	{"(0008,0080)", "institution name"},
	{"(0008,0090)", "referring physician"},
}

// AssessCompliance evaluates an anonymization result against the HIPAA
// identifier table and the validator's PHI verdict. Non-compliance is
// returned as data; it is never an error.
//
// An identifier counts as handled when it was removed or pseudonymized,
// or when it never appeared in the original object at all. Any identifier
// present in the original but left untouched flips the record to
// non-compliant with high risk.
func AssessCompliance(result *audit.AnonymizationResult) audit.ComplianceAssessment {
	handled := make(map[string]bool, len(result.Operations))
	present := make(map[string]bool, len(result.Operations))

	for _, op := range result.Operations {
		present[op.Tag] = true
		if op.Action == audit.ActionRemoved || op.Action == audit.ActionPseudonymized {
			handled[op.Tag] = true
		}
	}

	assessment := audit.ComplianceAssessment{
		HIPAACompliant: true,
		GDPRCompliant:  result.Validation.PHIRemoved,
		RiskLevel:      audit.RiskLow,
	}

	for _, identifier := range hipaaIdentifiers {
		if !present[identifier.Tag] {
			continue
		}
		if handled[identifier.Tag] {
			continue
		}
		assessment.HIPAACompliant = false
		assessment.RiskLevel = audit.RiskHigh
		assessment.UnhandledIdentifiers = append(assessment.UnhandledIdentifiers, identifier.Tag)
	}

	return assessment
}
