// Package store defines the persisted records and the storage contract:
// per-user document state, embedded chunks with vector search, and the
// append-only analysis history.
package store

import (
	"context"
	"time"
)

// Source is the document a chunk was cut from.
type Source string

const (
	SourceResume         Source = "resume"
	SourceJobDescription Source = "jd"
)

// Sources lists every chunked document kind.
var Sources = []Source{SourceResume, SourceJobDescription}

// Collection is the chunk collection name for the source.
func (s Source) Collection() string {
	return string(s) + "_chunks"
}

// Chunk is one embedded piece of a document. Index is 1-based and follows the
// splitter order; it is not unique across sources.
type Chunk struct {
	UserID     string    `bson:"user_id"`
	Generation string    `bson:"generation"`
	Index      int       `bson:"chunk_id"`
	Text       string    `bson:"text"`
	Embedding  []float32 `bson:"embedding"`
	CreatedAt  time.Time `bson:"created_at"`
}

// State is the per-user document holding the full texts. Each source also
// records the generation id of its live chunk set.
type State struct {
	UserID                   string    `bson:"user_id"`
	ResumeText               string    `bson:"resume_text,omitempty"`
	ResumeUpdatedAt          time.Time `bson:"resume_updated_at,omitempty"`
	ResumeGeneration         string    `bson:"resume_generation,omitempty"`
	JobDescriptionText       string    `bson:"jd_text,omitempty"`
	JobDescriptionUpdatedAt  time.Time `bson:"jd_updated_at,omitempty"`
	JobDescriptionGeneration string    `bson:"jd_generation,omitempty"`
}

// Text returns the stored full text for the source.
func (s *State) Text(source Source) string {
	if s == nil {
		return ""
	}
	if source == SourceJobDescription {
		return s.JobDescriptionText
	}
	return s.ResumeText
}

// Generation returns the live chunk generation for the source.
func (s *State) Generation(source Source) string {
	if s == nil {
		return ""
	}
	if source == SourceJobDescription {
		return s.JobDescriptionGeneration
	}
	return s.ResumeGeneration
}

// TextField, UpdatedField and GenerationField name the state document fields of a source.
func TextField(source Source) string       { return string(source) + "_text" }
func UpdatedField(source Source) string    { return string(source) + "_updated_at" }
func GenerationField(source Source) string { return string(source) + "_generation" }

// Hit is a single vector search result.
type Hit struct {
	Text  string  `bson:"text" json:"text"`
	Index int     `bson:"chunk_id" json:"chunk_id"`
	Score float64 `bson:"score" json:"score"`
}

// SearchQuery asks for the chunks of one user/source generation closest to Vector.
type SearchQuery struct {
	Source     Source
	UserID     string
	Generation string
	Vector     []float32
	Limit      int
}

// CandidateLimit is how many nearest neighbours are requested before the
// exact user/generation filter and the final truncation.
func CandidateLimit(limit int) int {
	return max(limit*4, 20)
}

// AnalysisLog is one persisted resume vs job description report. Records are
// never updated after insert.
type AnalysisLog struct {
	ID           string    `bson:"-"`
	UserID       string    `bson:"user_id"`
	MatchScore   *int      `bson:"match_score"`
	JDPreview    string    `bson:"jd_preview"`
	Report       string    `bson:"report"`
	AnalysisTime time.Time `bson:"analysis_time"`
}

// Store persists documents, chunks and analysis logs.
type Store interface {
	// ReplaceSource swaps the text and chunk set of one source for the user.
	// It returns how many chunks of earlier generations were removed.
	ReplaceSource(ctx context.Context, userID string, source Source, text string, chunks []Chunk) (int64, error)
	// State returns the user's document state; a user without one gets an empty state.
	State(ctx context.Context, userID string) (*State, error)
	Search(ctx context.Context, q SearchQuery) ([]Hit, error)

	SaveAnalysis(ctx context.Context, log *AnalysisLog) (string, error)
	// ListAnalyses returns at most limit logs of the user, newest first.
	ListAnalyses(ctx context.Context, userID string, limit int) ([]*AnalysisLog, error)
	ClearAnalyses(ctx context.Context, userID string) (int64, error)

	Close(ctx context.Context) error
}
