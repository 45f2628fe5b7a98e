package buffer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearsay-labs/hearsay/internal/chunker"
	"github.com/hearsay-labs/hearsay/internal/models"
	"github.com/hearsay-labs/hearsay/internal/notify"
	"github.com/hearsay-labs/hearsay/internal/utils"
)

type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failWhen func(text string) bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failWhen != nil && f.failWhen(text) {
		return nil, utils.E(utils.CodeUnavailable, "fakeEmbedder.Embed", "provider down", nil)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStore struct {
	mu   sync.Mutex
	recs []*models.SpeechRecord
}

func (f *fakeStore) Upsert(_ context.Context, rec *models.SpeechRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeStore) records() []*models.SpeechRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.SpeechRecord, len(f.recs))
	copy(out, f.recs)
	return out
}

type fakeEmitter struct {
	mu     sync.Mutex
	stored []notify.EmbeddingEvent
	errs   []string
}

func (f *fakeEmitter) ChunkStored(_ context.Context, _ string, ev notify.EmbeddingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, ev)
	return nil
}

func (f *fakeEmitter) Error(_ context.Context, _ string, _ utils.Code, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, message)
	return nil
}

func (f *fakeEmitter) storedEvents() []notify.EmbeddingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notify.EmbeddingEvent, len(f.stored))
	copy(out, f.stored)
	return out
}

func (f *fakeEmitter) errorMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.errs))
	copy(out, f.errs)
	return out
}

type fakeJournal struct {
	mu   sync.Mutex
	segs []*models.SegmentLog
}

func (f *fakeJournal) Append(_ context.Context, seg *models.SegmentLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segs = append(f.segs, seg)
	return nil
}

func (f *fakeJournal) segments() []*models.SegmentLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.SegmentLog, len(f.segs))
	copy(out, f.segs)
	return out
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestCoordinator(cfg Config, split chunker.Strategy) (*Coordinator, *fakeEmbedder, *fakeStore, *fakeEmitter, *fakeJournal) {
	emb := &fakeEmbedder{}
	store := &fakeStore{}
	emitter := &fakeEmitter{}
	journal := &fakeJournal{}
	c := NewCoordinator(cfg, split, emb, store, emitter, journal, quietLogger())
	return c, emb, store, emitter, journal
}

func TestTimerResetProducesSingleFlush(t *testing.T) {
	c, _, store, _, journal := newTestCoordinator(
		Config{Policy: PolicyTimer, FlushAfter: 80 * time.Millisecond},
		chunker.WordWindow{Size: 100, Overlap: 20, MinChars: 1},
	)
	ctx := context.Background()

	// three fragments inside the flush window: the timer must reset each time
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "one", time.Now()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "two", time.Now()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "three", time.Now()))

	require.Eventually(t, func() bool { return len(store.records()) == 1 },
		time.Second, 10*time.Millisecond)

	recs := store.records()
	assert.Equal(t, "one two three", recs[0].Transcript)
	assert.Equal(t, "alice", recs[0].UserID)

	// nothing left to flush: no second flush may fire
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, store.records(), 1)

	segs := journal.segments()
	require.Len(t, segs, 1)
	assert.Equal(t, "timer", segs[0].FlushReason)
	assert.Equal(t, "one two three", segs[0].Text)
}

func TestSilenceGapSplitsSegments(t *testing.T) {
	c, _, store, _, journal := newTestCoordinator(
		Config{Policy: PolicySilenceGap, SilenceGap: 3 * time.Second},
		chunker.WordWindow{Size: 100, Overlap: 20, MinChars: 1},
	)
	ctx := context.Background()

	t0 := time.Now()
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "first segment words", t0))
	// gap of 5s > 3s threshold: the previous accumulation is finalized first
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "second segment words", t0.Add(5*time.Second)))

	recs := store.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "first segment words", recs[0].Transcript)

	require.NoError(t, c.Close(ctx, "s1"))
	recs = store.records()
	require.Len(t, recs, 2)
	assert.Equal(t, "second segment words", recs[1].Transcript)

	segs := journal.segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "gap", segs[0].FlushReason)
	assert.Equal(t, "close", segs[1].FlushReason)
}

func TestGapBelowThresholdKeepsAccumulating(t *testing.T) {
	c, _, store, _, _ := newTestCoordinator(
		Config{Policy: PolicySilenceGap, SilenceGap: 3 * time.Second},
		chunker.WordWindow{Size: 100, Overlap: 20, MinChars: 1},
	)
	ctx := context.Background()

	t0 := time.Now()
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "hello", t0))
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "again", t0.Add(2*time.Second)))
	assert.Empty(t, store.records())

	require.NoError(t, c.Close(ctx, "s1"))
	recs := store.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "hello again", recs[0].Transcript)
}

func TestCloseFlushesTrailingSegment(t *testing.T) {
	c, _, store, emitter, _ := newTestCoordinator(
		Config{Policy: PolicyTimer, FlushAfter: time.Hour},
		chunker.WordWindow{Size: 100, Overlap: 20, MinChars: 1},
	)
	ctx := context.Background()

	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "do not lose me", time.Now()))
	require.NoError(t, c.Close(ctx, "s1"))

	recs := store.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "do not lose me", recs[0].Transcript)

	events := emitter.storedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, recs[0].ID, events[0].NoteID)
	assert.False(t, events[0].IsChunk)
	assert.Equal(t, 1, events[0].TotalChunks)

	// closed session: further flushes are no-ops
	require.NoError(t, c.Flush(ctx, "s1", "timer"))
	assert.Len(t, store.records(), 1)
}

func TestChunkFailureContinuesWithRemaining(t *testing.T) {
	emb := &fakeEmbedder{failWhen: func(text string) bool {
		return strings.HasPrefix(text, "alpha")
	}}
	store := &fakeStore{}
	emitter := &fakeEmitter{}
	c := NewCoordinator(
		Config{Policy: PolicyTimer, FlushAfter: time.Hour},
		chunker.WordWindow{Size: 3, Overlap: 0, MinChars: 1},
		emb, store, emitter, nil, quietLogger(),
	)
	ctx := context.Background()

	// two chunks of three words: the first fails to embed
	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "alpha beta gamma delta epsilon zeta", time.Now()))
	err := c.Flush(ctx, "s1", "timer")
	require.Error(t, err)

	recs := store.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "delta epsilon zeta", recs[0].Transcript)

	msgs := emitter.errorMessages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "chunk 1/2")

	events := emitter.storedEvents()
	require.Len(t, events, 1)
	assert.True(t, events[0].IsChunk)
	assert.Equal(t, 1, events[0].ChunkIndex)
	assert.Equal(t, 2, events[0].TotalChunks)
}

func TestEmptyFragmentIgnored(t *testing.T) {
	c, emb, store, _, _ := newTestCoordinator(
		Config{Policy: PolicyTimer, FlushAfter: time.Hour},
		chunker.WordWindow{Size: 100, Overlap: 20, MinChars: 1},
	)
	ctx := context.Background()

	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "   ", time.Now()))
	require.NoError(t, c.Flush(ctx, "s1", "timer"))
	require.NoError(t, c.Close(ctx, "s1"))

	assert.Empty(t, store.records())
	assert.Zero(t, emb.callCount())
}

func TestMissingSessionIDRejected(t *testing.T) {
	c, _, _, _, _ := newTestCoordinator(Config{}, chunker.NewWordWindow(100, 20, 1))
	err := c.OnFragment(context.Background(), "", "alice", "hi", time.Now())
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestSessionsAreIsolated(t *testing.T) {
	c, _, store, _, _ := newTestCoordinator(
		Config{Policy: PolicyTimer, FlushAfter: time.Hour},
		chunker.WordWindow{Size: 100, Overlap: 20, MinChars: 1},
	)
	ctx := context.Background()

	require.NoError(t, c.OnFragment(ctx, "s1", "alice", "alice speaking", time.Now()))
	require.NoError(t, c.OnFragment(ctx, "s2", "bob", "bob speaking", time.Now()))

	require.NoError(t, c.Flush(ctx, "s1", "timer"))
	recs := store.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "alice", recs[0].UserID)

	require.NoError(t, c.Close(ctx, "s2"))
	recs = store.records()
	require.Len(t, recs, 2)
	assert.Equal(t, "bob", recs[1].UserID)
	assert.Equal(t, "bob speaking", recs[1].Transcript)
}
