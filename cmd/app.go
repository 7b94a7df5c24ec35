package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/ai/gemini"
	"github.com/spigell/smart-resume/internal/embedding"
	"github.com/spigell/smart-resume/internal/secrets"
	"github.com/spigell/smart-resume/internal/service"
	"github.com/spigell/smart-resume/internal/store"
	"github.com/spigell/smart-resume/internal/store/memory"
	"github.com/spigell/smart-resume/internal/store/mongodb"
)

// newService builds every dependency once and returns the assembled service
// together with a function releasing the storage connection.
func newService(ctx context.Context, config *Config, logger *zap.Logger) (*service.Service, func(), error) {
	geminiKey, err := secrets.Load(secrets.Source{
		Name:  "GEMINI_API_KEY",
		Value: config.Gemini.APIKey,
		File:  config.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("loading gemini api key: %w", err)
	}

	embeddingKey, err := secrets.LoadOptional(secrets.Source{Name: "EMBEDDING_API_KEY", Value: config.Embedding.APIKey})
	if err != nil {
		return nil, nil, err
	}
	config.Embedding.APIKey = embeddingKey

	logger.Debug("starting with config",
		zap.String("storage", config.Storage.Driver),
		zap.String("database", config.Mongo.Database),
		zap.String("vector_index", config.Mongo.VectorIndex),
		zap.String("gemini_model", config.Gemini.Model),
		zap.String("embedding_provider", config.Embedding.Provider),
		zap.Int("embedding_dimensions", config.Embedding.Dimensions),
		zap.Int("chunk_max_chars", config.Chunking.MaxChars),
		zap.Int("chunk_overlap", config.Chunking.Overlap),
	)

	st, err := openStore(ctx, config, logger)
	if err != nil {
		return nil, nil, err
	}

	closeStore := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}

	embedder, err := embedding.New(ctx, &config.Embedding, geminiKey, logger)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	generator, err := gemini.NewGenerator(ctx, geminiKey, config.Gemini.Model, gemini.Options{
		MaxAttempts: config.Gemini.MaxAttempts,
		RetryDelay:  config.Gemini.RetryDelay,
	}, logger)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("creating gemini generator: %w", err)
	}

	gateway := gemini.NewGateway(generator, config.Gemini.MaxLogLength, logger)

	logger.Info("service ready",
		zap.String("user_id", config.UserID),
		zap.String("embedder", embedder.Name()),
		zap.String("model", generator.Model()),
	)

	return service.New(st, embedder, gateway, config.Chunking, config.UserID, logger), closeStore, nil
}

func openStore(ctx context.Context, config *Config, logger *zap.Logger) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(config.Storage.Driver)) {
	case StorageMemory:
		logger.Warn("using in-memory storage, data is lost on exit")
		return memory.New(), nil
	case "", StorageMongo:
		uri, err := secrets.Load(secrets.Source{
			Name:  "MONGODB_URI",
			Value: config.Mongo.URI,
			File:  config.Mongo.URIFile,
		})
		if err != nil {
			return nil, fmt.Errorf("loading mongodb uri: %w", err)
		}
		mongoCfg := config.Mongo
		mongoCfg.URI = uri

		st, err := mongodb.New(ctx, mongoCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("opening mongodb store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", config.Storage.Driver)
	}
}
