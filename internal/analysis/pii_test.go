package analysis

import (
	"context"
	"testing"
)

func TestScanPII_DetectsKnownPatterns(t *testing.T) {
	dataset := Dataset{
		Columns: []Column{
			{Name: "contact", Values: []string{"jane@example.com", "555-123-4567", "no findings here"}},
			{Name: "ssn", Values: []string{"123-45-6789", "not an ssn"}},
		},
	}

	e := NewLocalEngine(LLMConfig{}, WebSearchConfig{})
	report, err := e.ScanPII(context.Background(), dataset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	contact, ok := report.ColumnFindings["contact"]
	if !ok {
		t.Fatalf("expected findings for column contact")
	}
	if contact["email"] != 1 {
		t.Errorf("email count = %d, want 1", contact["email"])
	}
	if contact["phone"] != 1 {
		t.Errorf("phone count = %d, want 1", contact["phone"])
	}

	ssn, ok := report.ColumnFindings["ssn"]
	if !ok {
		t.Fatalf("expected findings for column ssn")
	}
	if ssn["ssn"] != 1 {
		t.Errorf("ssn count = %d, want 1", ssn["ssn"])
	}
}

func TestScanPII_CleanColumnOmitted(t *testing.T) {
	dataset := Dataset{
		Columns: []Column{
			{Name: "notes", Values: []string{"just some text", "nothing sensitive"}},
		},
	}

	e := NewLocalEngine(LLMConfig{}, WebSearchConfig{})
	report, err := e.ScanPII(context.Background(), dataset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := report.ColumnFindings["notes"]; ok {
		t.Errorf("did not expect a findings entry for a column with no matches")
	}
}

func TestScanPII_ReportsCountsOnly(t *testing.T) {
	dataset := Dataset{
		Columns: []Column{
			{Name: "email", Values: []string{"a@b.com", "c@d.com"}},
		},
	}

	e := NewLocalEngine(LLMConfig{}, WebSearchConfig{})
	report, err := e.ScanPII(context.Background(), dataset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ColumnFindings["email"]["email"] != 2 {
		t.Errorf("email count = %d, want 2", report.ColumnFindings["email"]["email"])
	}
}
