package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/genai"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResponse
	models  []string
	prompts []string
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.models = append(f.models, model)
	for _, content := range contents {
		for _, part := range content.Parts {
			f.prompts = append(f.prompts, part.Text)
		}
	}

	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.models)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()

	var delays []time.Duration
	original := wait
	wait = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { wait = original })

	return &delays
}

func TestGeneratorRetriesOnQuotaError(t *testing.T) {
	delays := stubWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"})
	models.enqueue(textResponse("  first ", "second"), nil)

	gen := newGenerator(models, "gemini-test", Options{MaxAttempts: 3, RetryDelay: time.Second}, zap.NewNop())

	out, err := gen.GenerateContent(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if out != "first\nsecond" {
		t.Fatalf("unexpected output %q", out)
	}
	if models.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls())
	}
	if len(*delays) != 1 || (*delays)[0] != time.Second {
		t.Fatalf("expected a single 1s delay, got %v", *delays)
	}
	if models.models[0] != "gemini-test" {
		t.Fatalf("unexpected model %q", models.models[0])
	}
	if models.prompts[0] != "hello" {
		t.Fatalf("unexpected prompt %q", models.prompts[0])
	}
}

func TestGeneratorDoesNotRetryOtherErrors(t *testing.T) {
	delays := stubWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL", Message: "boom"})

	gen := newGenerator(models, "", Options{}, nil)

	_, err := gen.GenerateContent(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("did not expect quota error: %v", err)
	}
	if models.calls() != 1 {
		t.Fatalf("expected 1 call, got %d", models.calls())
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no delay, got %v", *delays)
	}
	if gen.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", gen.Model())
	}
}

func TestGeneratorQuotaExhausted(t *testing.T) {
	delays := stubWait(t)

	models := &fakeModels{}
	for i := 0; i < 3; i++ {
		models.enqueue(nil, &genai.APIError{Code: http.StatusTooManyRequests})
	}

	gen := newGenerator(models, "m", Options{MaxAttempts: 3, RetryDelay: 2 * time.Second}, zap.NewNop())

	_, err := gen.GenerateContent(context.Background(), "hello")
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	if models.calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", models.calls())
	}
	if len(*delays) != 2 {
		t.Fatalf("expected 2 delays, got %v", *delays)
	}
}

func TestGeneratorStopsWhenContextCancelled(t *testing.T) {
	stubWait(t)

	models := &fakeModels{}
	models.enqueue(nil, errors.New("RESOURCE_EXHAUSTED: quota"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := newGenerator(models, "m", Options{MaxAttempts: 5}, zap.NewNop())
	_, err := gen.GenerateContent(ctx, "hello")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if models.calls() != 1 {
		t.Fatalf("expected 1 call, got %d", models.calls())
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("   "), nil)

	gen := newGenerator(models, "m", Options{}, zap.NewNop())
	if _, err := gen.GenerateContent(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for empty response")
	}

	if _, err := gen.GenerateContent(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestIsQuotaError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "api error code", err: genai.APIError{Code: 429}, want: true},
		{name: "api error status", err: genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, want: true},
		{name: "api error pointer", err: &genai.APIError{Code: 429}, want: true},
		{name: "wrapped api error", err: fmt.Errorf("outer: %w", genai.APIError{Code: 429}), want: true},
		{name: "other api error", err: genai.APIError{Code: 500, Status: "INTERNAL"}, want: false},
		{name: "plain message", err: errors.New("status 429 too many requests"), want: true},
		{name: "plain other", err: errors.New("connection reset"), want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isQuotaError(tt.err); got != tt.want {
				t.Fatalf("isQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

type fakeGenerator struct {
	prompt string
	output string
	err    error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.output, f.err
}

func (f *fakeGenerator) Model() string { return "fake-model" }

func TestGatewayAsk(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	gen := &fakeGenerator{output: "Match score: 80/100"}
	gw := NewGateway(gen, 10, zap.New(core))

	got := gw.Ask(context.Background(), "How well do I match?", "CV CONTEXT:\ngo")
	if got != "Match score: 80/100" {
		t.Fatalf("unexpected answer %q", got)
	}
	if !strings.Contains(gen.prompt, "How well do I match?") || !strings.Contains(gen.prompt, "CV CONTEXT:\ngo") {
		t.Fatalf("prompt does not contain question and context: %q", gen.prompt)
	}

	entries := observed.FilterMessage("gemini generate content request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["ai_model"] != "fake-model" {
		t.Fatalf("expected model field, got %v", ctx["ai_model"])
	}
	preview, _ := ctx["prompt_preview"].(string)
	if !strings.HasSuffix(preview, "...") {
		t.Fatalf("expected truncated preview, got %q", preview)
	}
}

func TestGatewayWarnings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "quota",
			err:  fmt.Errorf("%w after 3 attempts", ErrQuotaExhausted),
			want: QuotaWarning,
		},
		{
			name: "other",
			err:  errors.New("bad request"),
			want: ErrorWarningPrefix + "bad request",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := NewGateway(&fakeGenerator{err: tt.err}, 0, nil)
			if got := gw.Ask(context.Background(), "q", ""); got != tt.want {
				t.Fatalf("Ask() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGatewayReportsUnderlyingError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, errors.New("invalid argument"))

	gw := NewGateway(newGenerator(models, "m", Options{}, zap.NewNop()), 0, zap.NewNop())

	if got := gw.Ask(context.Background(), "q", "ctx"); got != ErrorWarningPrefix+"invalid argument" {
		t.Fatalf("unexpected warning %q", got)
	}
}
