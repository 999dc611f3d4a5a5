package retrieval

import (
	"finqa-orchestrator/internal/domain"
)

// Strategy names one retrieval behavior. The set is closed; unknown
// values degrade to plain semantic search.
type Strategy string

const (
	StrategySemantic       Strategy = "semantic"
	StrategyHybrid         Strategy = "hybrid"
	StrategyCompanyFocused Strategy = "company_focused"
	StrategyTemporal       Strategy = "temporal"
)

// DefaultLimit is the evidence count per sub-query when the caller
// does not set one.
const DefaultLimit = 6

// Options carries per-call retrieval parameters. Companies feeds the
// company-focused strategy, Years the temporal one; both are ignored
// elsewhere.
type Options struct {
	Limit     int
	Companies []string
	Years     []int
}

func (o Options) limit() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return DefaultLimit
}

// StrategyFor maps a classified query to the strategy and options the
// engine should run with. Cross-company comparisons fan out per
// company; year-anchored comparisons constrain by year; everything
// else takes the hybrid path.
func StrategyFor(queryType domain.QueryType, cls *domain.Classification) (Strategy, Options) {
	switch queryType {
	case domain.QueryTypeCrossCompany:
		companies := cls.Companies
		if len(companies) == 0 {
			companies = domain.AllCompanies()
		}
		return StrategyCompanyFocused, Options{Companies: companies}
	case domain.QueryTypeComparativeYoY:
		if len(cls.Years) > 0 {
			return StrategyTemporal, Options{Years: cls.Years}
		}
		return StrategyHybrid, Options{}
	default:
		return StrategyHybrid, Options{}
	}
}
