// Package notify fans pipeline events out to the session that produced them.
// The flush pipeline publishes here and the websocket writer forwards the
// payloads verbatim, so a slow socket never blocks embedding or storage.
package notify

import (
	"context"

	"github.com/hearsay-labs/hearsay/internal/utils"
)

// EmbeddingEvent is sent once per stored chunk.
type EmbeddingEvent struct {
	Type        string    `json:"type"` // always "embedding"
	Data        []float32 `json:"data"`
	NoteID      string    `json:"noteId"`
	Text        string    `json:"text"`
	IsChunk     bool      `json:"isChunk"`
	ChunkIndex  int       `json:"chunkIndex"`
	TotalChunks int       `json:"totalChunks"`
}

// ErrorEvent reports a per-chunk or per-message failure without ending the
// session.
type ErrorEvent struct {
	Type    string     `json:"type"` // always "error"
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type Emitter interface {
	ChunkStored(ctx context.Context, sessionID string, ev EmbeddingEvent) error
	Error(ctx context.Context, sessionID string, code utils.Code, message string) error
}

// SessionChannel is the pub/sub channel carrying one session's events.
func SessionChannel(sessionID string) string {
	return "session:" + sessionID + ":events"
}
