// Package query answers natural-language questions from stored speech
// chunks: embed the question, retrieve the nearest stored chunks for the
// user, and summarize the ranked context with a language model.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"github.com/hearsay-labs/hearsay/internal/cache"
	"github.com/hearsay-labs/hearsay/internal/models"
	"github.com/hearsay-labs/hearsay/internal/providers/embedding"
	"github.com/hearsay-labs/hearsay/internal/providers/summarizer"
	"github.com/hearsay-labs/hearsay/internal/utils"
)

const DefaultTopK = 10

// Store is the read/delete half of the vector store.
type Store interface {
	Search(ctx context.Context, userID string, vec pgvector.Vector, topK int) ([]models.QueryMatch, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// InteractionLog persists answered queries. Optional; persistence failures
// are logged, the answer is still returned.
type InteractionLog interface {
	Insert(ctx context.Context, row *models.ChatInteraction) error
}

type Options struct {
	TopK         int
	CacheTTL     time.Duration
	Interactions InteractionLog
	Cache        cache.Cache
	Logger       *logrus.Logger
}

type Orchestrator struct {
	embed        embedding.Provider
	store        Store
	summarize    summarizer.Provider
	interactions InteractionLog
	cache        cache.Cache
	topK         int
	cacheTTL     time.Duration
	log          *logrus.Logger
}

type Response struct {
	Results []models.QueryMatch `json:"results"`
	Summary string              `json:"summary"`
}

func NewOrchestrator(embed embedding.Provider, store Store, summarize summarizer.Provider, opts Options) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 2 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Orchestrator{
		embed:        embed,
		store:        store,
		summarize:    summarize,
		interactions: opts.Interactions,
		cache:        opts.Cache,
		topK:         opts.TopK,
		cacheTTL:     opts.CacheTTL,
		log:          opts.Logger,
	}
}

// Query validates the question, retrieves the user's topK nearest chunks,
// and returns them score-descending together with the generated summary.
// Empty questions are rejected before any remote call.
func (o *Orchestrator) Query(ctx context.Context, userID, question string) (*Response, error) {
	const op = "Orchestrator.Query"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "query text is empty", nil)
	}

	key := cache.QueryKey(userID, question)
	if o.cache != nil {
		var cached Response
		hit, err := o.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			o.log.WithError(err).Warn("query cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	vec, err := o.embed.Embed(ctx, question)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to embed question", err)
	}

	matches, err := o.store.Search(ctx, userID, pgvector.NewVector(vec), o.topK)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "vector search failed", err)
	}

	for i := range matches {
		if matches[i].Score < 0 {
			matches[i].Score = 0
		}
		if matches[i].Score > 1 {
			matches[i].Score = 1
		}
	}
	// stable: retrieval order breaks score ties
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	summary, err := o.summarize.Summarize(ctx, question, rankedContext(matches))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "summarization failed", err)
	}

	if o.interactions != nil {
		row := &models.ChatInteraction{
			ID:        uuid.NewString(),
			UserID:    userID,
			Question:  question,
			Answer:    summary,
			Context:   transcriptsOf(matches),
			CreatedAt: time.Now().UTC(),
		}
		if len(matches) > 0 {
			row.TopScore = matches[0].Score
		}
		if err := o.interactions.Insert(ctx, row); err != nil {
			o.log.WithError(err).WithField("user_id", userID).Warn("failed to persist chat interaction")
		}
	}

	resp := &Response{Results: matches, Summary: summary}
	if o.cache != nil {
		if err := o.cache.SetJSON(ctx, key, resp, o.cacheTTL); err != nil {
			o.log.WithError(err).Warn("query cache write failed")
		}
	}
	return resp, nil
}

// DeleteAll removes every stored record belonging to userID. Store failures
// surface to the caller verbatim.
func (o *Orchestrator) DeleteAll(ctx context.Context, userID string) (string, error) {
	const op = "Orchestrator.DeleteAll"

	if userID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	n, err := o.store.DeleteAllByUser(ctx, userID)
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, err.Error(), err)
	}

	// cached answers for this user expire within cacheTTL
	return fmt.Sprintf("All vectors deleted successfully (%d removed)", n), nil
}

// rankedContext lists every match with its rank and similarity so the model
// can weigh entries by score while still seeing lower-ranked context.
func rankedContext(matches []models.QueryMatch) string {
	if len(matches) == 0 {
		return "No similar entries were found."
	}
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Rank #%d (similarity %.2f%%): %s", i+1, m.Score*100, m.Transcript)
	}
	return b.String()
}

func transcriptsOf(matches []models.QueryMatch) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Transcript
	}
	return out
}
