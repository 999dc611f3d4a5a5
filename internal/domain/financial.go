package domain

import (
	"sort"
	"strings"
)

// Fixed corpus vocabulary. The covered filings are the annual reports
// of three companies; aliases map lowercase surface forms to the
// canonical ticker.
var companyAliases = map[string][]string{
	"GOOGL": {"google", "googl", "alphabet"},
	"MSFT":  {"microsoft", "msft"},
	"NVDA":  {"nvidia", "nvda"},
}

// Year bounds for entity extraction, and the year assumed when a query
// names none.
const (
	MinFilingYear = 2020
	MaxFilingYear = 2025
	DefaultYear   = 2023
)

// MetricVocabulary is the fixed set of financial terms matched by
// substring during entity extraction.
var MetricVocabulary = []string{
	"revenue", "sales", "income", "earnings", "profit", "margin",
	"operating margin", "gross margin", "net income", "ebitda",
	"cash flow", "assets", "liabilities", "equity", "expenses",
	"r&d", "research and development", "capex", "operating expenses",
}

// FinancialKeywords gates validation: a query containing none of these
// is rejected before classification.
var FinancialKeywords = []string{
	"revenue", "income", "profit", "sales", "margin", "earnings",
	"financial", "money", "dollar", "billion", "million", "growth",
	"year", "annual", "quarterly", "fiscal", "operating", "net",
}

// ComplexityKeywords each add one point to the complexity score.
var ComplexityKeywords = []string{
	"compare", "growth", "change", "ratio", "percentage", "breakdown",
}

// HybridBoostKeywords drive the lexical re-rank of the hybrid
// retrieval strategy.
var HybridBoostKeywords = []string{
	"revenue", "income", "profit", "margin", "earnings", "sales",
}

// AllCompanies returns every canonical ticker, sorted.
func AllCompanies() []string {
	companies := make([]string, 0, len(companyAliases))
	for ticker := range companyAliases {
		companies = append(companies, ticker)
	}
	sort.Strings(companies)
	return companies
}

// ExtractCompanies resolves company mentions in the lowercased query
// to canonical tickers, sorted and deduplicated.
func ExtractCompanies(queryLower string) []string {
	var companies []string
	for _, ticker := range AllCompanies() {
		for _, alias := range companyAliases[ticker] {
			if strings.Contains(queryLower, alias) {
				companies = append(companies, ticker)
				break
			}
		}
	}
	return companies
}

var canonicalNames = map[string]string{
	"alphabet":  "Google",
	"googl":     "Google",
	"google":    "Google",
	"msft":      "Microsoft",
	"microsoft": "Microsoft",
	"nvda":      "NVIDIA",
	"nvidia":    "NVIDIA",
}

// NormalizeCompanies rewrites company aliases in a query to one
// canonical display name, so downstream matching sees one spelling.
func NormalizeCompanies(query string) string {
	words := strings.Fields(query)
	for i, word := range words {
		key := strings.ToLower(strings.Trim(word, ".,?!\"'"))
		if canonical, ok := canonicalNames[key]; ok {
			words[i] = canonical
		}
	}
	return strings.Join(words, " ")
}
