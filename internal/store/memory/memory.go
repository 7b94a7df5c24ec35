// Package memory is an in-process Store using brute-force cosine similarity.
// It mirrors the semantics of the MongoDB store and backs tests and local runs.
package memory

import (
	"context"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/smart-resume/internal/store"
)

// Store keeps everything in maps guarded by a single RWMutex.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	states   map[string]*store.State
	chunks   map[store.Source][]store.Chunk
	analyses []*store.AnalysisLog
	nextID   int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:    time.Now,
		states: make(map[string]*store.State),
		chunks: make(map[store.Source][]store.Chunk),
	}
}

func (s *Store) ReplaceSource(_ context.Context, userID string, source store.Source, text string, chunks []store.Chunk) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	generation := uuid.NewString()
	now := s.now().UTC()

	fresh := make([]store.Chunk, 0, len(chunks))
	for _, c := range chunks {
		c.UserID = userID
		c.Generation = generation
		c.CreatedAt = now
		c.Embedding = slices.Clone(c.Embedding)
		fresh = append(fresh, c)
	}

	state := s.stateLocked(userID)
	switch source {
	case store.SourceJobDescription:
		state.JobDescriptionText = text
		state.JobDescriptionUpdatedAt = now
		state.JobDescriptionGeneration = generation
	default:
		state.ResumeText = text
		state.ResumeUpdatedAt = now
		state.ResumeGeneration = generation
	}

	var deleted int64
	kept := make([]store.Chunk, 0, len(s.chunks[source])+len(fresh))
	for _, c := range s.chunks[source] {
		if c.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	s.chunks[source] = append(kept, fresh...)

	return deleted, nil
}

func (s *Store) State(_ context.Context, userID string) (*store.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return &store.State{UserID: userID}, nil
	}

	copied := *state
	return &copied, nil
}

// Search scores every chunk of the source, keeps the best CandidateLimit
// candidates, then applies the user/generation filter and the limit, the same
// order of operations as the Atlas pipeline.
func (s *Store) Search(_ context.Context, q store.SearchQuery) ([]store.Hit, error) {
	if len(q.Vector) == 0 || q.Limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk *store.Chunk
		score float64
	}

	all := s.chunks[q.Source]
	candidates := make([]scored, 0, len(all))
	for i := range all {
		candidates = append(candidates, scored{chunk: &all[i], score: cosine(all[i].Embedding, q.Vector)})
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	if n := store.CandidateLimit(q.Limit); len(candidates) > n {
		candidates = candidates[:n]
	}

	hits := make([]store.Hit, 0, q.Limit)
	for _, c := range candidates {
		if c.chunk.UserID != q.UserID || (q.Generation != "" && c.chunk.Generation != q.Generation) {
			continue
		}
		hits = append(hits, store.Hit{Text: c.chunk.Text, Index: c.chunk.Index, Score: c.score})
		if len(hits) == q.Limit {
			break
		}
	}

	return hits, nil
}

func (s *Store) SaveAnalysis(_ context.Context, log *store.AnalysisLog) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	copied := *log
	copied.ID = strconv.Itoa(s.nextID)
	if copied.AnalysisTime.IsZero() {
		copied.AnalysisTime = s.now().UTC()
	}
	s.analyses = append(s.analyses, &copied)

	return copied.ID, nil
}

func (s *Store) ListAnalyses(_ context.Context, userID string, limit int) ([]*store.AnalysisLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.AnalysisLog, 0)
	for _, log := range s.analyses {
		if log.UserID != userID {
			continue
		}
		copied := *log
		out = append(out, &copied)
	}

	slices.SortStableFunc(out, func(a, b *store.AnalysisLog) int {
		if c := b.AnalysisTime.Compare(a.AnalysisTime); c != 0 {
			return c
		}
		// equal times: the later insert is newer
		ai, _ := strconv.Atoi(a.ID)
		bi, _ := strconv.Atoi(b.ID)
		return bi - ai
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *Store) ClearAnalyses(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	kept := s.analyses[:0]
	for _, log := range s.analyses {
		if log.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, log)
	}
	s.analyses = kept

	return removed, nil
}

func (s *Store) Close(context.Context) error { return nil }

// ChunkCount reports how many chunks of the source are held for the user.
func (s *Store) ChunkCount(userID string, source store.Source) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.chunks[source] {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Store) stateLocked(userID string) *store.State {
	state, ok := s.states[userID]
	if !ok {
		state = &store.State{UserID: userID}
		s.states[userID] = state
	}
	return state
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
