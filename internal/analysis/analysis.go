// Package analysis provides the external collaborators ConsumptionGuard
// invokes as do_work: a dataset profiler, a PII scanner, an LLM client,
// and a web-search client. The spec explicitly treats these as thin
// adapters whose detailed behavior sits outside the core design — they
// are grounded on the reference implementation's profiler.py,
// pii_detector.py, llm_client.py and exa_client.py, reproduced here as
// minimal Go equivalents rather than full ports.
package analysis

import (
	"context"
)

// Engine is the seam ConsumptionGuard's do_work closures call through;
// each paid operation in the API layer wraps one Engine method.
type Engine interface {
	Profile(ctx context.Context, dataset Dataset, problemType string) (*ProfileReport, error)
	ScanPII(ctx context.Context, dataset Dataset) (*PIIReport, error)
	Summarize(ctx context.Context, prompt string) (string, error)
	WebSearch(ctx context.Context, query string) ([]SearchResult, error)
}

// Dataset is a minimal tabular handle: columns of numeric or string
// values, enough for the profiler and PII scanner without pulling in a
// dataframe dependency the rest of the pack never uses.
type Dataset struct {
	Columns []Column
	Rows    int
}

type Column struct {
	Name   string
	Values []string
}
