package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/memvault/search"
)

const answerPromptTemplate = `You are an analyst answering questions from a person's own saved memories.
Answer the question briefly in plain language using only the excerpts below.
Cite the memory behind each specific claim inline as [M-<id>].
When the answer draws on many memories, cite the two or three most relevant.
If no excerpt is relevant, say so in one sentence and suggest a filter to try, such as a tag or a date range.

USER QUESTION:
%s

MEMORY EXCERPTS:
%s`

const noExcerpts = "(none)"

// buildPrompt renders the question and the working set into a single prompt.
func buildPrompt(question string, workingSet []*search.ScoredCandidate) string {
	return fmt.Sprintf(answerPromptTemplate, question, excerpts(workingSet))
}

func excerpts(workingSet []*search.ScoredCandidate) string {
	if len(workingSet) == 0 {
		return noExcerpts
	}

	blocks := make([]string, len(workingSet))
	for i, c := range workingSet {
		title := c.Note.Title
		if title == "" {
			title = "(untitled)"
		}
		blocks[i] = fmt.Sprintf("# [%s] %s\n%s", c.Note.Id, title, c.Block)
	}
	return strings.Join(blocks, "\n\n")
}
