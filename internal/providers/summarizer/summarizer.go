package summarizer

import "context"

// Provider answers a question from ranked retrieval context. The context is a
// pre-formatted block listing every retrieved snippet with its rank and
// similarity; implementations instruct the model to weigh entries by
// similarity without discarding the lower-ranked ones.
type Provider interface {
	Summarize(ctx context.Context, question, rankedContext string) (string, error)
	Close() error
}

const systemPrompt = "You are a helpful assistant. Summarize and analyze the provided context to answer the user's question concisely. " +
	"Entries are ranked by similarity to the question: weigh higher-similarity entries more heavily, but do not ignore lower-ranked entries."
