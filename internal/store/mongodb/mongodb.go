// Package mongodb stores state, chunks and analysis logs in MongoDB and answers
// nearest-neighbour queries with the Atlas $vectorSearch stage.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/store"
)

const (
	DefaultDatabase    = "smart_resume"
	DefaultVectorIndex = "vector_index"

	defaultNumCandidates  = 120
	defaultConnectTimeout = 30 * time.Second

	stateCollection    = "state"
	analysisCollection = "analysis_logs"
	embeddingPath      = "embedding"
)

// Config holds the connection settings.
type Config struct {
	URI            string        `mapstructure:"uri"`
	URIFile        string        `mapstructure:"uri-file"`
	Database       string        `mapstructure:"database"`
	VectorIndex    string        `mapstructure:"vector-index"`
	NumCandidates  int           `mapstructure:"num-candidates"`
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Database) == "" {
		c.Database = DefaultDatabase
	}
	if strings.TrimSpace(c.VectorIndex) == "" {
		c.VectorIndex = DefaultVectorIndex
	}
	if c.NumCandidates <= 0 {
		c.NumCandidates = defaultNumCandidates
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	return c
}

// Store is the MongoDB implementation of store.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// New connects, pings the primary and ensures the regular indexes. The Atlas
// vector index itself is managed outside of the application.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, errors.New("mongodb uri is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("smart-resume").
		SetServerSelectionTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
		logger: logger.With(zap.String("database", cfg.Database)),
		now:    time.Now,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		s.logger.Warn("ensuring indexes failed", zap.Error(err))
	}

	s.logger.Info("connected to mongodb", zap.String("vector_index", cfg.VectorIndex))

	return s, nil
}

// ReplaceSource writes the new chunk set under a fresh generation, flips the
// state document to it in one update and then removes every other generation.
// Readers filter on the generation recorded in the state, so they see either
// the old or the new set, never a mix.
func (s *Store) ReplaceSource(ctx context.Context, userID string, source store.Source, text string, chunks []store.Chunk) (int64, error) {
	generation := uuid.NewString()
	now := s.now().UTC()
	coll := s.db.Collection(source.Collection())

	if len(chunks) > 0 {
		docs := make([]any, 0, len(chunks))
		for _, c := range chunks {
			c.UserID = userID
			c.Generation = generation
			c.CreatedAt = now
			docs = append(docs, c)
		}
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return 0, fmt.Errorf("insert %s: %w", source.Collection(), err)
		}
	}

	update := bson.M{"$set": bson.M{
		store.TextField(source):       text,
		store.UpdatedField(source):    now,
		store.GenerationField(source): generation,
	}}
	if _, err := s.db.Collection(stateCollection).UpdateOne(ctx, bson.M{"user_id": userID}, update, options.Update().SetUpsert(true)); err != nil {
		return 0, fmt.Errorf("update state: %w", err)
	}

	res, err := coll.DeleteMany(ctx, bson.M{"user_id": userID, "generation": bson.M{"$ne": generation}})
	if err != nil {
		return 0, fmt.Errorf("delete stale %s: %w", source.Collection(), err)
	}

	s.logger.Debug("replaced source",
		zap.String("user_id", userID),
		zap.String("source", string(source)),
		zap.String("generation", generation),
		zap.Int("inserted", len(chunks)),
		zap.Int64("deleted", res.DeletedCount),
	)

	return res.DeletedCount, nil
}

func (s *Store) State(ctx context.Context, userID string) (*store.State, error) {
	var state store.State
	err := s.db.Collection(stateCollection).FindOne(ctx, bson.M{"user_id": userID}).Decode(&state)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &store.State{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find state: %w", err)
	}
	return &state, nil
}

func (s *Store) Search(ctx context.Context, q store.SearchQuery) ([]store.Hit, error) {
	if len(q.Vector) == 0 || q.Limit <= 0 {
		return nil, nil
	}

	cursor, err := s.db.Collection(q.Source.Collection()).Aggregate(ctx, searchPipeline(s.cfg.VectorIndex, s.cfg.NumCandidates, q))
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", q.Source.Collection(), err)
	}

	var hits []store.Hit
	if err := cursor.All(ctx, &hits); err != nil {
		return nil, fmt.Errorf("read vector search results: %w", err)
	}

	return hits, nil
}

// searchPipeline over-fetches CandidateLimit neighbours, filters them to the
// user's live generation and keeps the first q.Limit. Without a generation
// only the user is matched, which covers chunks stored before generations.
func searchPipeline(index string, numCandidates int, q store.SearchQuery) mongo.Pipeline {
	candidates := store.CandidateLimit(q.Limit)

	match := bson.D{{Key: "user_id", Value: q.UserID}}
	if q.Generation != "" {
		match = append(match, bson.E{Key: "generation", Value: q.Generation})
	}

	return mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: index},
			{Key: "path", Value: embeddingPath},
			{Key: "queryVector", Value: q.Vector},
			{Key: "numCandidates", Value: max(numCandidates, candidates)},
			{Key: "limit", Value: candidates},
		}}},
		{{Key: "$match", Value: match}},
		{{Key: "$limit", Value: q.Limit}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "text", Value: 1},
			{Key: "chunk_id", Value: 1},
			{Key: "score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}
}

type analysisDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	store.AnalysisLog `bson:",inline"`
}

func (s *Store) SaveAnalysis(ctx context.Context, log *store.AnalysisLog) (string, error) {
	doc := analysisDoc{AnalysisLog: *log}
	if doc.AnalysisTime.IsZero() {
		doc.AnalysisTime = s.now().UTC()
	}

	res, err := s.db.Collection(analysisCollection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert analysis log: %w", err)
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		return id.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *Store) ListAnalyses(ctx context.Context, userID string, limit int) ([]*store.AnalysisLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "analysis_time", Value: -1}}).
		SetProjection(bson.D{
			{Key: "report", Value: 1},
			{Key: "match_score", Value: 1},
			{Key: "jd_preview", Value: 1},
			{Key: "analysis_time", Value: 1},
		})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(analysisCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find analysis logs: %w", err)
	}

	var docs []analysisDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read analysis logs: %w", err)
	}

	logs := make([]*store.AnalysisLog, 0, len(docs))
	for _, doc := range docs {
		log := doc.AnalysisLog
		log.ID = doc.ID.Hex()
		log.UserID = userID
		logs = append(logs, &log)
	}

	return logs, nil
}

func (s *Store) ClearAnalyses(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.Collection(analysisCollection).DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("delete analysis logs: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		stateCollection: {{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		analysisCollection: {{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "analysis_time", Value: -1}},
		}},
	}
	for _, source := range store.Sources {
		indexes[source.Collection()] = []mongo.IndexModel{{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "generation", Value: 1}},
		}}
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}

	return nil
}
