package analysis

// LocalEngine is the concrete Engine: profiling and PII scanning run
// in-process, while Summarize and WebSearch delegate to configured
// external HTTP APIs.
type LocalEngine struct {
	llm       LLMConfig
	webSearch WebSearchConfig
}

func NewLocalEngine(llm LLMConfig, webSearch WebSearchConfig) *LocalEngine {
	return &LocalEngine{llm: llm, webSearch: webSearch}
}

var _ Engine = (*LocalEngine)(nil)
