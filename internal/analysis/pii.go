package analysis

import (
	"context"
	"regexp"
)

// piiPatterns mirrors the reference PIIDetector.PATTERNS table: email,
// US-format phone, SSN, and major card-issuer credit card numbers.
var piiPatterns = map[string]*regexp.Regexp{
	"email":       regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	"phone":       regexp.MustCompile(`(?:\+?1[-.]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})`),
	"ssn":         regexp.MustCompile(`\d{3}-\d{2}-\d{4}`),
	"credit_card": regexp.MustCompile(`4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}`),
}

// PIIReport never stores the matched values themselves — only counts —
// so the core's prohibition on logging unmasked gateway payloads extends
// naturally to scan results too.
type PIIReport struct {
	ColumnFindings map[string]map[string]int `json:"column_findings"` // column -> kind -> count
}

// ScanPII implements Engine.ScanPII: a column-by-column regex sweep,
// reporting counts only (no sample values). No handler calls it, so
// nothing runs it before Summarize or WebSearch.
func (e *LocalEngine) ScanPII(ctx context.Context, dataset Dataset) (*PIIReport, error) {
	report := &PIIReport{ColumnFindings: make(map[string]map[string]int)}

	for _, col := range dataset.Columns {
		findings := make(map[string]int)
		for kind, pattern := range piiPatterns {
			count := 0
			for _, v := range col.Values {
				if pattern.MatchString(v) {
					count++
				}
			}
			if count > 0 {
				findings[kind] = count
			}
		}
		if len(findings) > 0 {
			report.ColumnFindings[col.Name] = findings
		}
	}

	return report, nil
}
