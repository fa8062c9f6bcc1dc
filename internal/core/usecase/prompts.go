package usecase

import (
	"fmt"
	"strings"

	"github.com/patentscout/patent-discovery/internal/core/domain"
)

const rerankInstructions = `You are a reranking model. Reorder candidates by relevance to the user query.
Return ONLY valid JSON with this exact shape:
{"ranked_ids": ["<id1>", "<id2>", "..."]}
Rules:
- Use candidate 'id' values exactly as given.
- Include each id at most once.
- If uncertain, keep original relative order.`

const answerContextChars = 500

var modeInstructions = map[string]string{
	domain.ModePriorArt: "You are a patent prior art search assistant. " +
		"Analyze the evidence and identify relevant prior art patents. " +
		"Explain how they relate to the query.",
	domain.ModeInfringement: "You are a patent infringement analysis assistant. " +
		"Analyze the evidence and identify potential infringement issues. " +
		"Explain which claims may be relevant.",
	domain.ModeLandscape: "You are a patent landscape analysis assistant. " +
		"Analyze the evidence and provide an overview of the patent landscape. " +
		"Identify key trends and technologies.",
}

func answerInstructions(mode string) string {
	if instructions, ok := modeInstructions[mode]; ok {
		return instructions
	}
	return "You are a patent search assistant. Analyze the evidence and answer the query."
}

func buildRerankPrompt(query string, candidates []domain.EvidenceItem, snippetChars int) string {
	var b strings.Builder
	b.WriteString("User query:\n")
	b.WriteString(strings.TrimSpace(query))
	b.WriteString("\n\nCandidates (rerank by relevance):\n")

	for idx, c := range candidates {
		fmt.Fprintf(&b, "\n[%d] id=%s\n", idx+1, c.CandidateID())
		fmt.Fprintf(&b, "patent_id=%s level=%s", c.PatentID, c.Level)
		if c.ClaimNo != nil {
			fmt.Fprintf(&b, " claim_no=%d", *c.ClaimNo)
		}
		b.WriteString("\n")
		if c.Title != "" {
			fmt.Fprintf(&b, "title=%s\n", c.Title)
		}
		b.WriteString("text:\n")
		b.WriteString(makeSnippet(c.Text, snippetChars))
		b.WriteString("\n")
	}

	b.WriteString("\nReturn JSON only.")
	return b.String()
}

func buildAnswerPrompt(query string, evidence []domain.EvidenceItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nEvidence:\n", query)

	for idx, item := range evidence {
		claimNo := "N/A"
		if item.ClaimNo != nil {
			claimNo = fmt.Sprintf("%d", *item.ClaimNo)
		}
		title := item.Title
		if title == "" {
			title = "N/A"
		}
		fmt.Fprintf(&b, "[%d] Patent: %s | Level: %s | Claim: %s\nTitle: %s\nText: %s\n\n",
			idx+1, item.PatentID, item.Level, claimNo, title, makeSnippet(item.Text, answerContextChars))
	}

	b.WriteString("Based on the evidence above, provide a comprehensive answer to the query.")
	return b.String()
}

func makeSnippet(text string, limit int) string {
	t := strings.TrimSpace(text)
	if limit <= 3 || len(t) <= limit {
		return t
	}
	runes := []rune(t)
	if len(runes) <= limit {
		return t
	}
	return string(runes[:limit-3]) + "..."
}
