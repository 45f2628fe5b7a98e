// Package buffer coalesces bursty speech fragments into stable segments
// before they are chunked, embedded, and stored. One accumulator exists per
// session; sessions never share mutable state.
package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/hearsay-labs/hearsay/internal/chunker"
	"github.com/hearsay-labs/hearsay/internal/models"
	"github.com/hearsay-labs/hearsay/internal/notify"
	"github.com/hearsay-labs/hearsay/internal/providers/embedding"
	"github.com/hearsay-labs/hearsay/internal/utils"
)

type Policy string

const (
	// PolicyTimer flushes a fixed delay after the most recent fragment; every
	// fragment resets the timer, so a continuous talker is never cut off.
	PolicyTimer Policy = "timer"
	// PolicySilenceGap finalizes the previous accumulation when the gap
	// between two fragments exceeds the threshold; the new fragment starts a
	// fresh segment. A safety timer covers trailing silence.
	PolicySilenceGap Policy = "gap"
)

const (
	DefaultFlushAfter = 5 * time.Second
	DefaultSilenceGap = 3 * time.Second
)

type Config struct {
	Policy     Policy
	FlushAfter time.Duration // timer policy delay
	SilenceGap time.Duration // gap policy threshold
}

func (c Config) withDefaults() Config {
	if c.Policy != PolicySilenceGap {
		c.Policy = PolicyTimer
	}
	if c.FlushAfter <= 0 {
		c.FlushAfter = DefaultFlushAfter
	}
	if c.SilenceGap <= 0 {
		c.SilenceGap = DefaultSilenceGap
	}
	return c
}

// RecordStore is the write half of the vector store used by the flush
// pipeline.
type RecordStore interface {
	Upsert(ctx context.Context, rec *models.SpeechRecord) error
}

// Journal receives the flush audit trail. Optional; journaling failures are
// logged, never fatal.
type Journal interface {
	Append(ctx context.Context, seg *models.SegmentLog) error
}

type Coordinator struct {
	cfg     Config
	split   chunker.Strategy
	embed   embedding.Provider
	records RecordStore
	emitter notify.Emitter
	journal Journal
	log     *logrus.Logger

	mu       sync.Mutex
	sessions map[string]*sessionBuffer
}

// sessionBuffer accumulates one session's fragments between flushes. Guarded
// by the coordinator mutex; at most one pending timer exists per session.
type sessionBuffer struct {
	userID       string
	segmentID    string
	text         strings.Builder
	lastActivity time.Time
	timer        *time.Timer
}

// pendingSegment is a finalized accumulation handed to the flush pipeline
// outside the lock.
type pendingSegment struct {
	segmentID string
	userID    string
	text      string
	reason    string
}

func (sb *sessionBuffer) append(text string) {
	if sb.segmentID == "" {
		sb.segmentID = uuid.NewString()
	}
	if sb.text.Len() > 0 {
		sb.text.WriteByte(' ')
	}
	sb.text.WriteString(text)
}

// take empties the accumulator and returns its contents. Because this runs
// under the coordinator lock, a timer firing concurrently with an explicit
// flush sees an empty buffer and no-ops: a segment is flushed exactly once.
func (sb *sessionBuffer) take(reason string) *pendingSegment {
	if sb.text.Len() == 0 {
		return nil
	}
	p := &pendingSegment{
		segmentID: sb.segmentID,
		userID:    sb.userID,
		text:      sb.text.String(),
		reason:    reason,
	}
	sb.text.Reset()
	sb.segmentID = ""
	return p
}

func (sb *sessionBuffer) stopTimer() {
	if sb.timer != nil {
		sb.timer.Stop()
		sb.timer = nil
	}
}

func NewCoordinator(cfg Config, split chunker.Strategy, embed embedding.Provider, records RecordStore, emitter notify.Emitter, journal Journal, log *logrus.Logger) *Coordinator {
	if log == nil {
		log = logrus.New()
	}
	return &Coordinator{
		cfg:      cfg.withDefaults(),
		split:    split,
		embed:    embed,
		records:  records,
		emitter:  emitter,
		journal:  journal,
		log:      log,
		sessions: make(map[string]*sessionBuffer),
	}
}

// OnFragment appends a recognized fragment to the session's accumulator and
// re-arms the flush deadline. Under the silence-gap policy a fragment that
// arrives after a long pause first finalizes the previous accumulation.
func (c *Coordinator) OnFragment(ctx context.Context, sessionID, userID, text string, arrivedAt time.Time) error {
	const op = "Coordinator.OnFragment"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if arrivedAt.IsZero() {
		arrivedAt = time.Now().UTC()
	}

	c.mu.Lock()
	sb := c.sessions[sessionID]
	if sb == nil {
		sb = &sessionBuffer{userID: userID}
		c.sessions[sessionID] = sb
	}
	if userID != "" {
		sb.userID = userID
	}

	var finished *pendingSegment
	if c.cfg.Policy == PolicySilenceGap && sb.text.Len() > 0 &&
		arrivedAt.Sub(sb.lastActivity) > c.cfg.SilenceGap {
		finished = sb.take("gap")
	}

	sb.append(text)
	sb.lastActivity = arrivedAt
	c.armLocked(sessionID, sb)
	c.mu.Unlock()

	if finished != nil {
		return c.process(ctx, sessionID, finished)
	}
	return nil
}

// armLocked cancels and replaces the session's flush timer. Caller holds the
// lock.
func (c *Coordinator) armLocked(sessionID string, sb *sessionBuffer) {
	sb.stopTimer()

	delay := c.cfg.FlushAfter
	reason := "timer"
	if c.cfg.Policy == PolicySilenceGap {
		delay = c.cfg.SilenceGap
		reason = "gap"
	}

	sb.timer = time.AfterFunc(delay, func() {
		if err := c.Flush(context.Background(), sessionID, reason); err != nil {
			c.log.WithError(err).WithField("session_id", sessionID).Warn("scheduled flush finished with errors")
		}
	})
}

// Flush finalizes whatever the session has accumulated and runs the
// chunk-embed-store pipeline on it. A session with nothing buffered is a
// no-op.
func (c *Coordinator) Flush(ctx context.Context, sessionID, reason string) error {
	c.mu.Lock()
	sb := c.sessions[sessionID]
	if sb == nil {
		c.mu.Unlock()
		return nil
	}
	sb.stopTimer()
	p := sb.take(reason)
	c.mu.Unlock()

	if p == nil {
		return nil
	}
	return c.process(ctx, sessionID, p)
}

// Close cancels any pending timer and flushes unflushed text so a trailing
// segment is never lost when the connection ends.
func (c *Coordinator) Close(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	sb := c.sessions[sessionID]
	if sb == nil {
		c.mu.Unlock()
		return nil
	}
	sb.stopTimer()
	p := sb.take("close")
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	if p == nil {
		return nil
	}
	return c.process(ctx, sessionID, p)
}

// process runs the per-chunk pipeline: embed, store, notify. Chunk failures
// are reported to the session and the remaining chunks still run; the
// aggregated error is returned at the end.
func (c *Coordinator) process(ctx context.Context, sessionID string, p *pendingSegment) error {
	const op = "Coordinator.Flush"

	chunks := c.split.Split(p.text)
	total := len(chunks)

	var errs []error
	for i, ch := range chunks {
		vec, err := c.embed.Embed(ctx, ch.Content)
		if err != nil {
			msg := fmt.Sprintf("embedding failed for chunk %d/%d", i+1, total)
			c.reportChunkError(ctx, sessionID, utils.CodeUnavailable, msg, err)
			errs = append(errs, utils.E(utils.CodeUnavailable, op, msg, err))
			continue
		}

		meta, _ := json.Marshal(map[string]any{
			"segment_id":   p.segmentID,
			"chunk_index":  i,
			"total_chunks": total,
			"flush_reason": p.reason,
		})
		rec := &models.SpeechRecord{
			ID:         uuid.NewString(),
			UserID:     p.userID,
			Transcript: ch.Content,
			Embedding:  pgvector.NewVector(vec),
			Metadata:   datatypes.JSON(meta),
			CreatedAt:  time.Now().UTC(),
		}
		if err := c.records.Upsert(ctx, rec); err != nil {
			msg := fmt.Sprintf("failed to store chunk %d/%d", i+1, total)
			c.reportChunkError(ctx, sessionID, utils.CodeUnavailable, msg, err)
			errs = append(errs, utils.E(utils.CodeUnavailable, op, msg, err))
			continue
		}

		if err := c.emitter.ChunkStored(ctx, sessionID, notify.EmbeddingEvent{
			Data:        vec,
			NoteID:      rec.ID,
			Text:        ch.Content,
			IsChunk:     total > 1,
			ChunkIndex:  i,
			TotalChunks: total,
		}); err != nil {
			c.log.WithError(err).WithField("session_id", sessionID).Warn("failed to publish chunk event")
		}
	}

	if c.journal != nil {
		seg := &models.SegmentLog{
			SessionID:   sessionID,
			UserID:      p.userID,
			Text:        p.text,
			ChunkCount:  total,
			ChunkErrors: len(errs),
			FlushReason: p.reason,
		}
		if err := c.journal.Append(ctx, seg); err != nil {
			c.log.WithError(err).WithField("session_id", sessionID).Warn("failed to journal segment")
		}
	}

	return errors.Join(errs...)
}

func (c *Coordinator) reportChunkError(ctx context.Context, sessionID string, code utils.Code, msg string, err error) {
	c.log.WithError(err).WithField("session_id", sessionID).Error(msg)
	if emitErr := c.emitter.Error(ctx, sessionID, code, msg); emitErr != nil {
		c.log.WithError(emitErr).WithField("session_id", sessionID).Warn("failed to publish error event")
	}
}
