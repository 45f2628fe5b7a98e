package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// SpeechRecord is one embedded transcript chunk. Rows are append-only inserts
// with server-generated ids; they are never updated, only bulk-deleted per user.
type SpeechRecord struct {
	ID         string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     string          `gorm:"column:user_id;type:text;index" json:"user_id"`
	Transcript string          `gorm:"column:transcript;type:text" json:"transcript"`
	Embedding  pgvector.Vector `gorm:"column:embedding;type:vector(1536)" json:"embedding"`
	Metadata   datatypes.JSON  `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time       `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (SpeechRecord) TableName() string { return "speech_records" }

// ChatInteraction records one answered query: the question, the generated
// summary, and the retrieved transcripts that backed it.
type ChatInteraction struct {
	ID        string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;type:text;index" json:"user_id"`
	Question  string         `gorm:"column:question;type:text" json:"question"`
	Answer    string         `gorm:"column:answer;type:text" json:"answer"`
	Context   pq.StringArray `gorm:"column:context;type:text[]" json:"context"`
	TopScore  float64        `gorm:"column:top_score;type:numeric" json:"top_score"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (ChatInteraction) TableName() string { return "chat_interactions" }

// QueryMatch is a transient ranked retrieval result. Score is cosine
// similarity in [0,1], higher is more similar.
type QueryMatch struct {
	Score      float64 `gorm:"column:score" json:"score"`
	Transcript string  `gorm:"column:transcript" json:"transcript"`
}
