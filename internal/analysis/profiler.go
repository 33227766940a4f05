package analysis

import (
	"context"
	"math"
	"sort"
	"strconv"
)

// ProfileReport is a reduced form of the reference profiler's
// generate_profile() output: missing-value and outlier counts per
// column plus an overall quality score, without the problem-type-aware
// severity ranking that belongs to a richer implementation.
type ProfileReport struct {
	Rows          int                        `json:"rows"`
	Columns       int                        `json:"columns"`
	MissingValues map[string]ColumnMissing   `json:"missing_values"`
	Outliers      map[string]ColumnOutliers  `json:"outliers"`
	QualityScore  float64                    `json:"quality_score"`
}

type ColumnMissing struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type ColumnOutliers struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Profile implements Engine.Profile: missing-value detection over every
// column, and IQR-based outlier detection (§ reference profiler's
// detect_outliers) over columns that parse entirely as numeric.
func (e *LocalEngine) Profile(ctx context.Context, dataset Dataset, problemType string) (*ProfileReport, error) {
	report := &ProfileReport{
		Rows:          dataset.Rows,
		Columns:       len(dataset.Columns),
		MissingValues: make(map[string]ColumnMissing),
		Outliers:      make(map[string]ColumnOutliers),
	}

	totalCells := dataset.Rows * len(dataset.Columns)
	missingCells := 0

	for _, col := range dataset.Columns {
		missing := 0
		for _, v := range col.Values {
			if v == "" {
				missing++
			}
		}
		if missing > 0 {
			missingCells += missing
			report.MissingValues[col.Name] = ColumnMissing{
				Count:      missing,
				Percentage: percentOf(missing, dataset.Rows),
			}
		}

		if nums, ok := asNumeric(col.Values); ok {
			if outlierCount, lower, upper, values := detectOutliersIQR(nums); outlierCount > 0 {
				_ = values
				report.Outliers[col.Name] = ColumnOutliers{
					Count:      outlierCount,
					Percentage: percentOf(outlierCount, dataset.Rows),
					LowerBound: lower,
					UpperBound: upper,
				}
			}
		}
	}

	if totalCells > 0 {
		completeness := float64(totalCells-missingCells) / float64(totalCells)
		report.QualityScore = math.Round(completeness*1000) / 1000
	}

	return report, nil
}

func percentOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}

func asNumeric(values []string) ([]float64, bool) {
	out := make([]float64, 0, len(values))
	seen := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, f)
		seen++
	}
	return out, seen > 0
}

// detectOutliersIQR mirrors the reference implementation's IQR method
// with the same default 1.5x multiplier.
func detectOutliersIQR(values []float64) (count int, lower, upper float64, outliers []float64) {
	if len(values) < 4 {
		return 0, 0, 0, nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 0.25)
	q3 := percentile(sorted, 0.75)
	iqr := q3 - q1
	lower = q1 - 1.5*iqr
	upper = q3 + 1.5*iqr

	for _, v := range values {
		if v < lower || v > upper {
			count++
			outliers = append(outliers, v)
		}
	}
	return count, lower, upper, outliers
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
