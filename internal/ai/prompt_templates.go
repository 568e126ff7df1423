package ai

import (
	"fmt"
	"strings"
)

// PromptTemplates holds the instructions sent with every request.
var PromptTemplates = struct {
	SummarySystem string
	SummaryUser   string
}{
	SummarySystem: `You are a news editor who writes TLDR summaries.
Write 2-3 plain sentences that tell a busy reader what happened and why it matters.
Do not add headings, bullet points, markdown or a "TLDR" label.
Do not invent facts that are not in the text.`,

	SummaryUser: `Summarize this article:

Title: %s

Text: %s`,
}

// BuildSummaryPrompt returns the user message for a summary request. The
// title may be empty.
func BuildSummaryPrompt(title, text string) string {
	title = escapeForPrompt(title)
	if title == "" {
		title = "(untitled)"
	}
	return fmt.Sprintf(PromptTemplates.SummaryUser, title, escapeForPrompt(text))
}

// escapeForPrompt flattens tabs and line breaks so the text cannot break out
// of its slot in the template.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}
