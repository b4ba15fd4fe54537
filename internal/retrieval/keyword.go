package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cadence/internal/repository"
)

// searchWindow bounds how much history a keyword search scans.
const searchWindow = 200

var wordRe = regexp.MustCompile(`[a-z0-9']+`)

// KeywordRetriever implements Retriever over the message store using
// term-overlap scoring. It serves as the default retriever when no
// external vector search is wired in.
type KeywordRetriever struct {
	messages repository.MessageRepo
}

func NewKeywordRetriever(messages repository.MessageRepo) *KeywordRetriever {
	return &KeywordRetriever{messages: messages}
}

// Search scores each recent message in the conversation by the fraction of
// query terms it contains and returns the topK matches at or above minScore.
func (r *KeywordRetriever) Search(ctx context.Context, query, conversationID string, topK int, minScore float64) ([]Document, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	msgs, err := r.messages.ListByConversation(ctx, conversationID, searchWindow)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	var docs []Document
	for _, m := range msgs {
		score := termOverlap(terms, tokenize(m.Text))
		if score < minScore {
			continue
		}
		docs = append(docs, Document{
			ID:        m.ID,
			SenderID:  m.SenderID,
			Content:   m.Text,
			Score:     score,
			CreatedAt: m.CreatedAt,
		})
		if len(docs) >= topK {
			break
		}
	}
	return docs, nil
}

func tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

func termOverlap(queryTerms, docTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docSet := make(map[string]bool, len(docTerms))
	for _, t := range docTerms {
		docSet[t] = true
	}
	matched := 0
	for _, t := range queryTerms {
		if docSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
