package recorder

import (
	"context"
	"fmt"
	"time"

	"caduceus-hq/veil/pkg/audit"
)

// ComplianceReport aggregates audit records over a time range into
// compliance statistics and plain-language recommendations.
type ComplianceReport struct {
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// StartDate and EndDate bound the reporting window, inclusive.
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// TotalRecords is the number of audit records in range.
	TotalRecords int `json:"total_records"`

	// Successful and Failed count records by validation outcome.
	Successful int `json:"successful"`
	Failed     int `json:"failed"`

	// HIPAACompliantCount and GDPRCompliantCount tally compliant records.
	HIPAACompliantCount int `json:"hipaa_compliant_count"`
	GDPRCompliantCount  int `json:"gdpr_compliant_count"`

	// HIPAACompliancePct and GDPRCompliancePct are percentages over
	// TotalRecords, 100 when the range is empty.
	HIPAACompliancePct float64 `json:"hipaa_compliance_pct"`
	GDPRCompliancePct  float64 `json:"gdpr_compliance_pct"`

	// HighRiskRecords counts records assessed at high risk.
	HighRiskRecords int `json:"high_risk_records"`

	// Recommendations are plain-language follow-ups, present only when
	// the numbers warrant them.
	Recommendations []string `json:"recommendations,omitempty"`
}

// GenerateComplianceReport scans all records in the given range and
// tallies validation and compliance outcomes. The report is deterministic
// for a given record set.
func (r *Recorder) GenerateComplianceReport(ctx context.Context, startDate, endDate time.Time) (*ComplianceReport, error) {
	// The tallies must cover every record in range, not one page.
	query := &audit.Query{
		StartTime: &startDate,
		EndTime:   &endDate,
		Limit:     audit.UnlimitedLimit,
	}

	recordsCh, errCh, err := r.storage.QueryStream(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}

	report := &ComplianceReport{
		GeneratedAt: time.Now().UTC(),
		StartDate:   startDate,
		EndDate:     endDate,
	}

	for record := range recordsCh {
		report.TotalRecords++

		if record.Summary.ValidationPassed {
			report.Successful++
		} else {
			report.Failed++
		}
		if record.Compliance.HIPAACompliant {
			report.HIPAACompliantCount++
		}
		if record.Compliance.GDPRCompliant {
			report.GDPRCompliantCount++
		}
		if record.Compliance.RiskLevel == audit.RiskHigh {
			report.HighRiskRecords++
		}
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("failed to scan audit records: %w", err)
	}

	if report.TotalRecords > 0 {
		report.HIPAACompliancePct = percentage(report.HIPAACompliantCount, report.TotalRecords)
		report.GDPRCompliancePct = percentage(report.GDPRCompliantCount, report.TotalRecords)
	} else {
		report.HIPAACompliancePct = 100
		report.GDPRCompliancePct = 100
	}

	report.Recommendations = buildRecommendations(report)

	r.logger.Info("Compliance report generated",
		"total_records", report.TotalRecords,
		"hipaa_pct", report.HIPAACompliancePct,
		"gdpr_pct", report.GDPRCompliancePct,
		"high_risk", report.HighRiskRecords,
	)

	return report, nil
}

// percentage returns count/total as a percentage rounded to two decimals.
func percentage(count, total int) float64 {
	pct := float64(count) / float64(total) * 100
	return float64(int(pct*100+0.5)) / 100
}

// buildRecommendations emits plain-language follow-ups when the numbers
// fall short of full compliance.
func buildRecommendations(report *ComplianceReport) []string {
	var recommendations []string

	if report.Failed > 0 {
		recommendations = append(recommendations, fmt.Sprintf(
			"%d of %d anonymization operations failed validation; review the failing operations and their policies.",
			report.Failed, report.TotalRecords,
		))
	}
	if report.TotalRecords > 0 && report.HIPAACompliantCount < report.TotalRecords {
		recommendations = append(recommendations, fmt.Sprintf(
			"HIPAA compliance is %.2f%%; audit the policies applied to non-compliant records and ensure all identifier tags are removed or pseudonymized.",
			report.HIPAACompliancePct,
		))
	}
	if report.TotalRecords > 0 && report.GDPRCompliantCount < report.TotalRecords {
		recommendations = append(recommendations, fmt.Sprintf(
			"GDPR compliance is %.2f%%; verify that PHI removal validation passes for all source systems.",
			report.GDPRCompliancePct,
		))
	}
	if report.HighRiskRecords > 0 {
		recommendations = append(recommendations, fmt.Sprintf(
			"%d records carry unhandled HIPAA identifiers and are flagged high risk; these require immediate review.",
			report.HighRiskRecords,
		))
	}

	return recommendations
}
