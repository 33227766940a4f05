package analysis

import (
	"context"
	"testing"
)

func TestProfile_MissingValues(t *testing.T) {
	dataset := Dataset{
		Rows: 4,
		Columns: []Column{
			{Name: "age", Values: []string{"20", "", "30", "40"}},
			{Name: "name", Values: []string{"a", "b", "c", "d"}},
		},
	}

	e := NewLocalEngine(LLMConfig{}, WebSearchConfig{})
	report, err := e.Profile(context.Background(), dataset, "classification")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	missing, ok := report.MissingValues["age"]
	if !ok {
		t.Fatalf("expected a missing_values entry for column age")
	}
	if missing.Count != 1 {
		t.Errorf("missing count = %d, want 1", missing.Count)
	}

	if _, ok := report.MissingValues["name"]; ok {
		t.Errorf("did not expect a missing_values entry for a fully populated column")
	}
}

func TestProfile_QualityScore(t *testing.T) {
	dataset := Dataset{
		Rows: 2,
		Columns: []Column{
			{Name: "a", Values: []string{"1", ""}},
			{Name: "b", Values: []string{"1", "2"}},
		},
	}

	e := NewLocalEngine(LLMConfig{}, WebSearchConfig{})
	report, err := e.Profile(context.Background(), dataset, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1 missing cell out of 4 total -> 75% complete.
	if report.QualityScore != 0.75 {
		t.Errorf("QualityScore = %v, want 0.75", report.QualityScore)
	}
}

func TestProfile_OutliersIQR(t *testing.T) {
	dataset := Dataset{
		Rows: 7,
		Columns: []Column{
			{Name: "value", Values: []string{"1", "2", "3", "4", "5", "6", "1000"}},
		},
	}

	e := NewLocalEngine(LLMConfig{}, WebSearchConfig{})
	report, err := e.Profile(context.Background(), dataset, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outliers, ok := report.Outliers["value"]
	if !ok {
		t.Fatalf("expected an outlier entry for column value")
	}
	if outliers.Count != 1 {
		t.Errorf("outlier count = %d, want 1", outliers.Count)
	}
}

func TestProfile_NonNumericColumnSkipsOutlierDetection(t *testing.T) {
	dataset := Dataset{
		Rows: 3,
		Columns: []Column{
			{Name: "label", Values: []string{"cat", "dog", "bird"}},
		},
	}

	e := NewLocalEngine(LLMConfig{}, WebSearchConfig{})
	report, err := e.Profile(context.Background(), dataset, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := report.Outliers["label"]; ok {
		t.Errorf("did not expect outlier detection on a non-numeric column")
	}
}

func TestDetectOutliersIQR_TooFewValues(t *testing.T) {
	count, lower, upper, outliers := detectOutliersIQR([]float64{1, 2, 3})
	if count != 0 || lower != 0 || upper != 0 || outliers != nil {
		t.Errorf("expected a no-op result for fewer than 4 values, got count=%d lower=%f upper=%f outliers=%v", count, lower, upper, outliers)
	}
}

func TestAsNumeric(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		wantOK bool
	}{
		{"all numeric with blanks", []string{"1", "", "3"}, true},
		{"contains non-numeric", []string{"1", "x", "3"}, false},
		{"all blank", []string{"", ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := asNumeric(tt.values)
			if ok != tt.wantOK {
				t.Errorf("asNumeric(%v) ok = %v, want %v", tt.values, ok, tt.wantOK)
			}
		})
	}
}

func TestPercentOf_ZeroTotal(t *testing.T) {
	if got := percentOf(5, 0); got != 0 {
		t.Errorf("percentOf(5, 0) = %v, want 0", got)
	}
}
