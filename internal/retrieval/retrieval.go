// Package retrieval assembles conversation context for LLM prompts:
// similarity search, recency boosting, token budgeting, and sender
// identity minimization.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Document is one retrieved unit of conversation history.
type Document struct {
	ID        string
	SenderID  string
	Content   string
	Score     float64
	CreatedAt time.Time
}

// Retriever performs similarity search over a conversation's history.
type Retriever interface {
	Search(ctx context.Context, query, conversationID string, topK int, minScore float64) ([]Document, error)
}

// Options tune context assembly. Zero values take the defaults noted.
type Options struct {
	TopK      int     // default 20
	MaxTokens int     // default 4096
	MinScore  float64 // default 0.3
	// Now anchors the recency boost window; zero means time.Now().
	Now time.Time
}

func (o Options) withDefaults() Options {
	if o.TopK == 0 {
		o.TopK = 20
	}
	if o.MaxTokens == 0 {
		o.MaxTokens = 4096
	}
	if o.MinScore == 0 {
		o.MinScore = 0.3
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

// Context is the assembled result handed to prompt builders.
type Context struct {
	Documents     []Document
	TotalTokens   int
	RetrievalTime time.Duration
	Source        string
}

const (
	recencyWindow = 7 * 24 * time.Hour
	recencyBoost  = 2.0
)

// BuildContext runs the retrieval pipeline: search scoped to the
// conversation, boost documents from the last seven days, re-sort, then
// greedily accept whole documents in rank order until the token budget
// would be exceeded. Zero matches is a valid empty result, not an error.
func BuildContext(ctx context.Context, query, conversationID string, retriever Retriever, opts Options) (*Context, error) {
	opts = opts.withDefaults()
	started := time.Now()

	docs, err := retriever.Search(ctx, query, conversationID, opts.TopK, opts.MinScore)
	if err != nil {
		return nil, fmt.Errorf("searching context: %w", err)
	}

	for i := range docs {
		if opts.Now.Sub(docs[i].CreatedAt) <= recencyWindow {
			docs[i].Score *= recencyBoost
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})

	result := &Context{Source: "conversation"}
	for _, doc := range docs {
		tokens := EstimateTokens(doc.Content)
		if result.TotalTokens+tokens > opts.MaxTokens {
			break
		}
		doc.Content = minimizeSender(doc)
		result.Documents = append(result.Documents, doc)
		result.TotalTokens += tokens
	}

	result.RetrievalTime = time.Since(started)
	return result, nil
}

// EstimateTokens approximates token count as one token per four characters.
func EstimateTokens(content string) int {
	return len(content) / 4
}

// minimizeSender replaces the human-readable sender context with a short
// sender-id tag, keeping the message content itself intact.
func minimizeSender(doc Document) string {
	return fmt.Sprintf("[%s] %s", senderTag(doc.SenderID), doc.Content)
}

func senderTag(senderID string) string {
	if len(senderID) > 8 {
		senderID = senderID[:8]
	}
	if senderID == "" {
		senderID = "unknown"
	}
	return "u:" + senderID
}
