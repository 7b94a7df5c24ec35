// Package service wires extraction output, chunking, embeddings, storage and
// the LLM gateway into the operations exposed over HTTP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/ai"
	"github.com/spigell/smart-resume/internal/chunker"
	"github.com/spigell/smart-resume/internal/embedding"
	"github.com/spigell/smart-resume/internal/logger"
	"github.com/spigell/smart-resume/internal/store"
	"github.com/spigell/smart-resume/internal/utils"
)

const (
	DefaultUserID = "default"

	// ChatTopK is how many chunks of each source back a chat answer.
	ChatTopK = 4
	// FallbackChars bounds the raw text used when search finds nothing.
	FallbackChars = 5000
	// PreviewChars bounds the job description preview kept with an analysis.
	PreviewChars = 400

	NoDataReply = "No CV/JD data found yet. Upload CV and update JD first."

	contextSeparator = "\n---\n"
	blockSeparator   = "\n\n=====\n\n"
)

var (
	// ErrMissingDocuments means the resume or the job description is not stored yet.
	ErrMissingDocuments = errors.New("upload CV and update JD first")
	// ErrEmptyMessage is returned for a blank chat message.
	ErrEmptyMessage = errors.New("empty message")
)

// Stats describes one document replacement. Chunks is what the splitter
// produced; Inserted excludes chunks dropped for an empty embedding.
type Stats struct {
	Deleted  int64 `json:"deleted"`
	Inserted int   `json:"inserted"`
	Chunks   int   `json:"chunks"`
}

// Documents are the stored full texts of the user.
type Documents struct {
	Resume         string
	JobDescription string
}

// Service is safe for concurrent use as long as its dependencies are.
type Service struct {
	store    store.Store
	embedder embedding.Embedder
	gateway  ai.Gateway
	chunking chunker.Options
	userID   string
	logger   *zap.Logger
	now      func() time.Time

	// replaceMu serializes replacements so that one swap cannot sweep the
	// generation another swap just published.
	replaceMu sync.Mutex
}

func New(st store.Store, embedder embedding.Embedder, gateway ai.Gateway, chunking chunker.Options, userID string, log *zap.Logger) *Service {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = DefaultUserID
	}

	return &Service{
		store:    st,
		embedder: embedder,
		gateway:  gateway,
		chunking: chunking,
		userID:   userID,
		logger:   logger.WithComponent(log, "service", userID),
		now:      time.Now,
	}
}

func (s *Service) UserID() string { return s.userID }

// ReplaceResume stores text as the user's resume and rebuilds its chunks.
func (s *Service) ReplaceResume(ctx context.Context, text string) (*Stats, error) {
	return s.replace(ctx, store.SourceResume, text)
}

// ReplaceJobDescription stores text as the job description and rebuilds its chunks.
func (s *Service) ReplaceJobDescription(ctx context.Context, text string) (*Stats, error) {
	return s.replace(ctx, store.SourceJobDescription, text)
}

func (s *Service) replace(ctx context.Context, source store.Source, text string) (*Stats, error) {
	pieces := chunker.Split(text, s.chunking)

	chunks := make([]store.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		vector, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("embedding %s chunk %d: %w", source, i+1, err)
		}
		if len(vector) == 0 {
			s.logger.Warn("dropping chunk with empty embedding",
				zap.String("source", string(source)),
				zap.Int("chunk_id", i+1),
			)
			continue
		}
		chunks = append(chunks, store.Chunk{Index: i + 1, Text: piece, Embedding: vector})
	}

	s.replaceMu.Lock()
	deleted, err := s.store.ReplaceSource(ctx, s.userID, source, text, chunks)
	s.replaceMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("replacing %s: %w", source, err)
	}

	stats := &Stats{Deleted: deleted, Inserted: len(chunks), Chunks: len(pieces)}
	s.logger.Info("document replaced",
		zap.String("source", string(source)),
		zap.Int64("deleted", stats.Deleted),
		zap.Int("inserted", stats.Inserted),
	)

	return stats, nil
}

// Documents returns the stored resume and job description, trimmed.
func (s *Service) Documents(ctx context.Context) (*Documents, error) {
	state, err := s.store.State(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	return &Documents{
		Resume:         strings.TrimSpace(state.Text(store.SourceResume)),
		JobDescription: strings.TrimSpace(state.Text(store.SourceJobDescription)),
	}, nil
}

// Analyze asks the LLM for a fit report and records it in the history.
func (s *Service) Analyze(ctx context.Context) (*store.AnalysisLog, error) {
	docs, err := s.Documents(ctx)
	if err != nil {
		return nil, err
	}
	if docs.Resume == "" || docs.JobDescription == "" {
		return nil, ErrMissingDocuments
	}

	report := s.gateway.Ask(ctx, ai.ReportInstruction, ai.BuildReportPrompt(docs.Resume, docs.JobDescription))

	entry := &store.AnalysisLog{
		UserID:       s.userID,
		MatchScore:   ai.ParseMatchScore(report),
		JDPreview:    utils.Head(docs.JobDescription, PreviewChars),
		Report:       report,
		AnalysisTime: s.now().UTC(),
	}

	id, err := s.store.SaveAnalysis(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("saving analysis: %w", err)
	}
	entry.ID = id

	s.logger.Info("analysis saved", zap.String("id", id), zap.Intp("match_score", entry.MatchScore))

	return entry, nil
}

// History returns at most limit analyses, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*store.AnalysisLog, error) {
	logs, err := s.store.ListAnalyses(ctx, s.userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	return logs, nil
}

// ClearHistory deletes every analysis of the user.
func (s *Service) ClearHistory(ctx context.Context) (int64, error) {
	removed, err := s.store.ClearAnalyses(ctx, s.userID)
	if err != nil {
		return 0, fmt.Errorf("clearing analyses: %w", err)
	}
	s.logger.Info("history cleared", zap.Int64("removed", removed))
	return removed, nil
}

// Search embeds query and returns the closest chunks of the live generation of source.
func (s *Service) Search(ctx context.Context, source store.Source, query string, limit int) ([]store.Hit, error) {
	state, err := s.store.State(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return s.search(ctx, state, source, query, limit)
}

func (s *Service) search(ctx context.Context, state *store.State, source store.Source, query string, limit int) ([]store.Hit, error) {
	// state written before generations existed has text but no generation;
	// its chunks are then matched on the user alone
	generation := state.Generation(source)
	if generation == "" && strings.TrimSpace(state.Text(source)) == "" {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vector) == 0 {
		return nil, nil
	}

	hits, err := s.store.Search(ctx, store.SearchQuery{
		Source:     source,
		UserID:     s.userID,
		Generation: generation,
		Vector:     vector,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", source, err)
	}

	return hits, nil
}

// Chat answers message with context retrieved from both documents.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	state, err := s.store.State(ctx, s.userID)
	if err != nil {
		return "", fmt.Errorf("loading state: %w", err)
	}

	resumeHits, err := s.search(ctx, state, store.SourceResume, message, ChatTopK)
	if err != nil {
		return "", err
	}
	jdHits, err := s.search(ctx, state, store.SourceJobDescription, message, ChatTopK)
	if err != nil {
		return "", err
	}

	contextBlock := retrievedContext(resumeHits, jdHits)
	if contextBlock == "" {
		contextBlock = fallbackContext(state)
	}
	if contextBlock == "" {
		return NoDataReply, nil
	}

	s.logger.Debug("chat context built",
		zap.Int("resume_hits", len(resumeHits)),
		zap.Int("jd_hits", len(jdHits)),
	)

	return s.gateway.Ask(ctx, message, contextBlock), nil
}

func retrievedContext(resumeHits, jdHits []store.Hit) string {
	var blocks []string
	if len(resumeHits) > 0 {
		blocks = append(blocks, "CV CONTEXT:\n"+joinHits(resumeHits))
	}
	if len(jdHits) > 0 {
		blocks = append(blocks, "JD CONTEXT:\n"+joinHits(jdHits))
	}
	return strings.TrimSpace(strings.Join(blocks, blockSeparator))
}

func joinHits(hits []store.Hit) string {
	texts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Text == "" {
			continue
		}
		texts = append(texts, h.Text)
	}
	return strings.Join(texts, contextSeparator)
}

func fallbackContext(state *store.State) string {
	resume := strings.TrimSpace(state.Text(store.SourceResume))
	jd := strings.TrimSpace(state.Text(store.SourceJobDescription))
	if resume == "" && jd == "" {
		return ""
	}

	return strings.TrimSpace("CV (fallback):\n" + utils.Head(resume, FallbackChars) +
		"\n\nJOB DESCRIPTION (fallback):\n" + utils.Head(jd, FallbackChars))
}
