package domain

// QueryType is the closed set of processing strategies a question can
// be classified into.
type QueryType string

const (
	QueryTypeSimpleDirect       QueryType = "simple_direct"
	QueryTypeComparativeYoY     QueryType = "comparative_yoy"
	QueryTypeCrossCompany       QueryType = "cross_company"
	QueryTypeComplexMultiAspect QueryType = "complex_multi_aspect"
	QueryTypeSegmentAnalysis    QueryType = "segment_analysis"
)

// QueryTypes lists every valid QueryType in classification order.
func QueryTypes() []QueryType {
	return []QueryType{
		QueryTypeSimpleDirect,
		QueryTypeComparativeYoY,
		QueryTypeCrossCompany,
		QueryTypeComplexMultiAspect,
		QueryTypeSegmentAnalysis,
	}
}

// Valid reports whether t is one of the known query types.
func (t QueryType) Valid() bool {
	switch t {
	case QueryTypeSimpleDirect, QueryTypeComparativeYoY, QueryTypeCrossCompany,
		QueryTypeComplexMultiAspect, QueryTypeSegmentAnalysis:
		return true
	}
	return false
}

// Confidence is the coarse reliability label attached to an answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is one of the known confidence levels.
func (c Confidence) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// Classification holds the entities and strategy extracted from one
// query. Produced once per answer call and read-only afterward.
type Classification struct {
	Type            QueryType
	Companies       []string // canonical tickers, sorted
	Years           []int    // deduplicated, ascending
	Metrics         []string
	ComplexityScore int
}

// EvidenceItem is one retrieved span of filing text with its metadata.
// Distance is similarity-inverse: lower means more relevant.
type EvidenceItem struct {
	ChunkID  string
	Text     string
	Company  string
	Year     int
	Section  string
	Distance float64
}

// SourceCitation is one deduplicated source attached to an answer.
type SourceCitation struct {
	Company        string  `json:"company"`
	Year           int     `json:"year"`
	Excerpt        string  `json:"excerpt"`
	Section        string  `json:"section"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Answer is the terminal artifact returned to callers. It is always
// well formed: every failure path in the pipeline degrades into an
// Answer instead of an error.
type Answer struct {
	Query      string           `json:"query"`
	Answer     string           `json:"answer"`
	Reasoning  string           `json:"reasoning"`
	SubQueries []string         `json:"sub_queries"`
	Sources    []SourceCitation `json:"sources"`
	Confidence Confidence       `json:"confidence"`
}
