package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/smart-resume/internal/chunker"
	"github.com/spigell/smart-resume/internal/embedding"
	"github.com/spigell/smart-resume/internal/server"
	"github.com/spigell/smart-resume/internal/service"
	"github.com/spigell/smart-resume/internal/store/mongodb"
)

const (
	app = "smart-resume"

	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

type Config struct {
	UserID    string           `mapstructure:"user-id"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Mongo     mongodb.Config   `mapstructure:"mongo"`
	Gemini    GeminiConfig     `mapstructure:"gemini"`
	Embedding embedding.Config `mapstructure:"embedding"`
	Chunking  chunker.Options  `mapstructure:"chunking"`
	Server    server.Config    `mapstructure:"server"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxAttempts  int           `mapstructure:"max-attempts"`
	RetryDelay   time.Duration `mapstructure:"retry-delay"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

// envBindings maps config keys to environment variables.
var envBindings = map[string]string{
	"user-id":               "SMART_RESUME_USER",
	"storage.driver":        "STORAGE_DRIVER",
	"mongo.uri":             "MONGODB_URI",
	"mongo.uri-file":        "MONGODB_URI_FILE",
	"mongo.database":        "MONGO_DB",
	"mongo.vector-index":    "VECTOR_INDEX_NAME",
	"gemini.api-key":        "GEMINI_API_KEY",
	"gemini.api-key-file":   "GEMINI_API_KEY_FILE",
	"gemini.model":          "GEMINI_MODEL",
	"gemini.max-attempts":   "GEMINI_MAX_ATTEMPTS",
	"gemini.retry-delay":    "GEMINI_RETRY_DELAY",
	"gemini.max-log-length": "GEMINI_MAX_LOG_LENGTH",
	"embedding.provider":    "EMBEDDING_PROVIDER",
	"embedding.model":       "EMBEDDING_MODEL",
	"embedding.dimensions":  "EMBEDDING_DIMENSIONS",
	"embedding.base-url":    "EMBEDDING_BASE_URL",
	"embedding.api-key":     "EMBEDDING_API_KEY",
	"chunking.max-chars":    "CHUNK_MAX_CHARS",
	"chunking.overlap":      "CHUNK_OVERLAP",
	"server.host":           "HOST",
	"server.port":           "PORT",
	"server.cors-origins":   "CORS_ORIGINS",
}

var defaults = map[string]any{
	"user-id":               service.DefaultUserID,
	"storage.driver":        StorageMongo,
	"mongo.database":        mongodb.DefaultDatabase,
	"mongo.vector-index":    mongodb.DefaultVectorIndex,
	"gemini.model":          "gemini-2.5-flash",
	"gemini.max-attempts":   3,
	"gemini.retry-delay":    "2s",
	"gemini.max-log-length": 200,
	"embedding.provider":    embedding.ProviderGemini,
	"embedding.dimensions":  embedding.DefaultDimensions,
	"chunking.max-chars":    chunker.DefaultMaxChars,
	"chunking.overlap":      chunker.DefaultOverlap,
	"server.port":           server.DefaultPort,
	"server.cors-origins":   "*",
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "smart-resume matches a resume against a job description with embeddings and Gemini",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig()
		},
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is smart-resume.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initConfig loads .env into the environment and reads the optional config file.
func initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	return nil
}

func getConfig() (*Config, error) {
	var config Config
	err := viper.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		trimStringsHook,
	)))
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &config, nil
}

// trimStringsHook trims list entries and drops the empty ones, so
// "a, b," decodes to [a b].
func trimStringsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}

	items, ok := data.([]string)
	if !ok {
		return data, nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
