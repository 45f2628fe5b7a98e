package summarizer

import (
	"context"
	"fmt"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"

	"github.com/hearsay-labs/hearsay/internal/utils"
)

// VertexGemini is the Gemini-backed summarizer, selected with
// SUMMARIZER_PROVIDER=vertex. The streamed response is joined into a single
// answer since the wire protocol carries one summary string.
type VertexGemini struct {
	client *vertexgenai.Client
	model  *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	return &VertexGemini{client: c, model: m}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Summarize(ctx context.Context, question, rankedContext string) (string, error) {
	const op = "summarizer.VertexGemini.Summarize"

	prompt := fmt.Sprintf("%s\n\nQuestion: %s\n\nContext from similar entries:\n%s",
		systemPrompt, question, rankedContext)

	var full strings.Builder
	it := v.model.GenerateContentStream(ctx, vertexgenai.Text(prompt))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", utils.E(utils.CodeUnavailable, op, "summary request failed", err)
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					full.WriteString(string(t))
				}
			}
		}
	}
	return full.String(), nil
}
