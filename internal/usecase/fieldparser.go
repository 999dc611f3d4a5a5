package usecase

import (
	"strings"

	"finqa-orchestrator/internal/domain"
)

// ParsedAnswer is the structured view of a raw synthesis response.
// Parsed is false when the ANSWER label was missing and the caller
// should apply its fallback.
type ParsedAnswer struct {
	Answer     string
	Reasoning  string
	Confidence domain.Confidence
	Parsed     bool
}

// AnswerParser extracts labeled fields from raw model output.
type AnswerParser interface {
	Parse(raw string) ParsedAnswer
}

var answerLabels = []string{"ANSWER:", "REASONING:", "CONFIDENCE:"}

type labelParser struct{}

// NewLabelParser returns the parser for the ANSWER/REASONING/CONFIDENCE
// response format.
func NewLabelParser() AnswerParser {
	return labelParser{}
}

// Parse scans for the three labels and takes each field's value up to
// the next label or the end of the text. Labels may appear in any
// order; a missing label yields an empty field.
func (labelParser) Parse(raw string) ParsedAnswer {
	positions := make(map[string]int, len(answerLabels))
	for _, label := range answerLabels {
		positions[label] = strings.Index(raw, label)
	}

	field := func(label string) string {
		start := positions[label]
		if start < 0 {
			return ""
		}
		start += len(label)
		end := len(raw)
		for _, other := range answerLabels {
			if other == label {
				continue
			}
			if p := positions[other]; p >= start && p < end {
				end = p
			}
		}
		return strings.TrimSpace(raw[start:end])
	}

	parsed := ParsedAnswer{
		Answer:    field("ANSWER:"),
		Reasoning: field("REASONING:"),
	}
	parsed.Parsed = positions["ANSWER:"] >= 0 && parsed.Answer != ""

	confidence := domain.Confidence(strings.ToLower(firstWord(field("CONFIDENCE:"))))
	if confidence.Valid() {
		parsed.Confidence = confidence
	}
	return parsed
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
