package session

import (
	"fmt"
	"strings"

	"ragprompt/internal/domain"
)

const promptTemplate = `### User Input:
%s

### User Additional Information:
%s

### Context (if any):
%s

### Output:
(Generate a structured and concise %s without any introductory text or explanations.)
`

// JoinContext joins chunk texts with blank lines. No chunks give an empty context.
func JoinContext(chunks []domain.Chunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}

// FormatPrompt renders the four-section grounded prompt.
func FormatPrompt(userQuery, documentType, additionalInfo, context string) string {
	return fmt.Sprintf(promptTemplate, userQuery, additionalInfo, context, documentType)
}
