package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/store"
	"github.com/spigell/smart-resume/internal/store/memory"
)

func TestGetConfigDefaults(t *testing.T) {
	config, err := getConfig()
	if err != nil {
		t.Fatalf("getConfig returned error: %v", err)
	}

	if config.UserID != "default" {
		t.Fatalf("unexpected user id %q", config.UserID)
	}
	if config.Storage.Driver != StorageMongo {
		t.Fatalf("unexpected storage driver %q", config.Storage.Driver)
	}
	if config.Gemini.RetryDelay != 2*time.Second || config.Gemini.MaxAttempts != 3 {
		t.Fatalf("unexpected gemini retry settings %+v", config.Gemini)
	}
	if config.Embedding.Dimensions != 384 || config.Embedding.Provider != "gemini" {
		t.Fatalf("unexpected embedding config %+v", config.Embedding)
	}
	if config.Chunking.MaxChars != 900 || config.Chunking.Overlap != 150 {
		t.Fatalf("unexpected chunking config %+v", config.Chunking)
	}
	if config.Server.Port != 8000 || !reflect.DeepEqual(config.Server.CORSOrigins, []string{"*"}) {
		t.Fatalf("unexpected server config %+v", config.Server)
	}
}

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("GEMINI_RETRY_DELAY", "500ms")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("MONGO_DB", "resumes")

	config, err := getConfig()
	if err != nil {
		t.Fatalf("getConfig returned error: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Fatalf("unexpected port %d", config.Server.Port)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(config.Server.CORSOrigins, want) {
		t.Fatalf("unexpected origins %q", config.Server.CORSOrigins)
	}
	if config.Gemini.RetryDelay != 500*time.Millisecond {
		t.Fatalf("unexpected retry delay %s", config.Gemini.RetryDelay)
	}
	if config.Storage.Driver != StorageMemory || config.Mongo.Database != "resumes" {
		t.Fatalf("unexpected storage config %+v %+v", config.Storage, config.Mongo)
	}
}

func TestOpenStore(t *testing.T) {
	st, err := openStore(context.Background(), &Config{Storage: StorageConfig{Driver: "Memory"}}, zap.NewNop())
	if err != nil {
		t.Fatalf("openStore returned error: %v", err)
	}
	if _, ok := st.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}

	if _, err := openStore(context.Background(), &Config{Storage: StorageConfig{Driver: "sqlite"}}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}

	if _, err := openStore(context.Background(), &Config{Storage: StorageConfig{Driver: StorageMongo}}, zap.NewNop()); err == nil {
		t.Fatalf("expected error when the mongodb uri is missing")
	}
}

func TestNewServiceRequiresGeminiKey(t *testing.T) {
	config := &Config{Storage: StorageConfig{Driver: StorageMemory}}
	if _, _, err := newService(context.Background(), config, zap.NewNop()); err == nil {
		t.Fatalf("expected error without a gemini api key")
	}
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jd.txt")
	if err := os.WriteFile(path, []byte("Go\r\nengineer"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	text, err := readDocument(path)
	if err != nil {
		t.Fatalf("readDocument returned error: %v", err)
	}
	if text != "Go engineer" {
		t.Fatalf("unexpected text %q", text)
	}

	if _, err := readDocument(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestPrintHelpers(t *testing.T) {
	var out bytes.Buffer

	printHits(&out, nil)
	printHits(&out, []store.Hit{{Index: 2, Score: 0.5, Text: "Go"}})

	score := 64
	printHistory(&out, []*store.AnalysisLog{{
		MatchScore:   &score,
		JDPreview:    "line one\nline two",
		AnalysisTime: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
	}})

	got := out.String()
	for _, want := range []string{"nothing found", "#2  score 0.500\nGo", "2025-01-02 03:04  64/100  line one line two"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output %q does not contain %q", got, want)
		}
	}
}
