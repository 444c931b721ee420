package recorder

import (
	"testing"

	"caduceus-hq/veil/pkg/audit"
)

func TestAssessCompliance_AllIdentifiersHandled(t *testing.T) {
	result := &audit.AnonymizationResult{
		Operations: []audit.TagOperation{
			{Tag: "(0010,0010)", Action: audit.ActionRemoved},
			{Tag: "(0010,0020)", Action: audit.ActionPseudonymized},
			{Tag: "(0010,0030)", Action: audit.ActionRemoved},
		},
		Validation: audit.ValidationOutcome{PHIRemoved: true},
	}

	assessment := AssessCompliance(result)

	if !assessment.HIPAACompliant {
		t.Error("HIPAACompliant = false, want true")
	}
	if !assessment.GDPRCompliant {
		t.Error("GDPRCompliant = false, want true")
	}
	if assessment.RiskLevel != audit.RiskLow {
		t.Errorf("RiskLevel = %q, want %q", assessment.RiskLevel, audit.RiskLow)
	}
	if len(assessment.UnhandledIdentifiers) != 0 {
		t.Errorf("UnhandledIdentifiers = %v, want none", assessment.UnhandledIdentifiers)
	}
}

func TestAssessCompliance_UnhandledPatientID(t *testing.T) {
	// Patient ID present in the original but neither removed nor
	// pseudonymized.
	result := &audit.AnonymizationResult{
		Operations: []audit.TagOperation{
			{Tag: "(0010,0010)", Action: audit.ActionRemoved},
			{Tag: "(0010,0020)", Action: audit.ActionPreserved},
		},
		Validation: audit.ValidationOutcome{PHIRemoved: false},
	}

	assessment := AssessCompliance(result)

	if assessment.HIPAACompliant {
		t.Error("HIPAACompliant = true, want false")
	}
	if assessment.RiskLevel != audit.RiskHigh {
		t.Errorf("RiskLevel = %q, want %q", assessment.RiskLevel, audit.RiskHigh)
	}
	if len(assessment.UnhandledIdentifiers) != 1 || assessment.UnhandledIdentifiers[0] != "(0010,0020)" {
		t.Errorf("UnhandledIdentifiers = %v, want [(0010,0020)]", assessment.UnhandledIdentifiers)
	}
}

func TestAssessCompliance_AbsentIdentifiersAreCompliant(t *testing.T) {
	// An object that never contained identifier tags is compliant.
	result := &audit.AnonymizationResult{
		Operations: []audit.TagOperation{
			{Tag: "(0008,0060)", Action: audit.ActionPreserved},
		},
		Validation: audit.ValidationOutcome{PHIRemoved: true},
	}

	assessment := AssessCompliance(result)

	if !assessment.HIPAACompliant {
		t.Error("HIPAACompliant = false for object with no identifier tags")
	}
}

func TestAssessCompliance_GDPRFollowsValidator(t *testing.T) {
	result := &audit.AnonymizationResult{
		Operations: []audit.TagOperation{
			{Tag: "(0010,0010)", Action: audit.ActionRemoved},
		},
		Validation: audit.ValidationOutcome{PHIRemoved: false},
	}

	assessment := AssessCompliance(result)

	if assessment.GDPRCompliant {
		t.Error("GDPRCompliant = true, want false when validator reports PHI not removed")
	}
	// GDPR non-compliance alone does not raise the HIPAA risk level.
	if !assessment.HIPAACompliant {
		t.Error("HIPAACompliant = false, want true (all identifiers handled)")
	}
}
