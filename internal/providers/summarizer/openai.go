package summarizer

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/hearsay-labs/hearsay/internal/utils"
)

const defaultChatModel = "gpt-4"

// OpenAI generates summaries through the OpenAI chat API via langchaingo.
type OpenAI struct {
	llm *openai.LLM
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	const op = "summarizer.NewOpenAI"

	if apiKey == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "api key is required", nil)
	}
	if model == "" {
		model = defaultChatModel
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to create openai client", err)
	}
	return &OpenAI{llm: llm}, nil
}

func (o *OpenAI) Summarize(ctx context.Context, question, rankedContext string) (string, error) {
	const op = "summarizer.OpenAI.Summarize"

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			fmt.Sprintf("Question: %s\n\nContext from similar entries:\n%s", question, rankedContext)),
	}

	resp, err := o.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(0.7),
		llms.WithMaxTokens(500),
	)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "summary request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", utils.E(utils.CodeUnavailable, op, "summary response has no choices", nil)
	}
	return resp.Choices[0].Content, nil
}

func (o *OpenAI) Close() error { return nil }
