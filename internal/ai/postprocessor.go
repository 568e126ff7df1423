package ai

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	codeFence    = regexp.MustCompile("^```[a-zA-Z]*\\s*|\\s*```$")
	tldrLabel    = regexp.MustCompile(`(?i)^(?:\*\*)?tl;?dr(?:\*\*)?\s*[:\-]\s*(?:\*\*)?\s*`)
)

// PostProcessor cleans model output before it is cached or stored.
type PostProcessor struct {
	maxSummaryLength int
	minSummaryLength int
}

func NewPostProcessor() *PostProcessor {
	return &PostProcessor{
		maxSummaryLength: 1200,
		minSummaryLength: 10,
	}
}

// CleanSummary strips fences, labels and control characters, collapses
// whitespace and bounds the length. Output shorter than the minimum is an
// error.
func (p *PostProcessor) CleanSummary(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = codeFence.ReplaceAllString(s, "")
	s = tldrLabel.ReplaceAllString(s, "")
	s = controlChars.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) < p.minSummaryLength {
		return "", fmt.Errorf("summary too short, minimum %d characters required", p.minSummaryLength)
	}
	if utf8.RuneCountInString(s) > p.maxSummaryLength {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:p.maxSummaryLength-3])) + "..."
	}
	return s, nil
}

// TruncateInput bounds text to max runes, cutting back to a word boundary in
// the second half of the kept text when there is one.
func TruncateInput(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)[:max]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
