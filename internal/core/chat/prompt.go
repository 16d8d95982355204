package chat

import (
	"fmt"
	"strings"

	"ipc-assist/internal/core/search"
)

// FallbackAnswer is returned when retrieval produces nothing; the LLM is not
// called in that case.
const FallbackAnswer = "I could not find any relevant IPC section in my database " +
	"for your query. Could you rephrase the question, or share a few more details?"

// BuildPrompt assembles the generation prompt: assistant instructions, the
// retrieved IPC sections as the only permitted context, then the user query.
func BuildPrompt(query string, results []*search.SearchResult) string {
	var sb strings.Builder

	sb.WriteString("You are a helpful legal assistant with expert knowledge of the Indian Penal Code (IPC).\n")
	sb.WriteString("Your goal is to explain IPC concepts and punishments in very simple, everyday language, ")
	sb.WriteString("as if explaining to someone with no legal background. Avoid legal jargon where possible, ")
	sb.WriteString("and briefly explain any term you cannot avoid.\n\n")

	sb.WriteString("## Rules\n")
	sb.WriteString("- Answer ONLY from the IPC sections provided below. Never invent information.\n")
	sb.WriteString("- First, list EVERY provided section that matches the user's criteria; do not drop any.\n")
	sb.WriteString("- For each section state its number, its title, and its punishment clearly.\n")
	sb.WriteString("- Elaborate a little on each section so the user actually understands it.\n")
	sb.WriteString("- If the provided sections do not fully answer the question, say so plainly instead of guessing.\n\n")

	sb.WriteString("## IPC Sections\n")
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("### [%d] %s\n", i+1, r.SectionID))
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## User Query\n")
	sb.WriteString(query)
	sb.WriteString("\n\n## Answer\n")

	return sb.String()
}
