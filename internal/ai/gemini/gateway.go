package gemini

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/ai"
	"github.com/spigell/smart-resume/internal/logger"
	"github.com/spigell/smart-resume/internal/utils"
)

const (
	// QuotaWarning is returned when Gemini keeps rejecting calls with rate limits.
	QuotaWarning = "⚠️ Gemini API quota/rate limit reached. Please try later."
	// ErrorWarningPrefix starts the answer returned for any other failure.
	ErrorWarningPrefix = "⚠️ LLM error: "

	defaultMaxLogLength = 200
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Gateway implements ai.Gateway on top of a Generator.
type Gateway struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Gateway = (*Gateway)(nil)

func NewGateway(generator contentGenerator, maxLogLength int, log *zap.Logger) *Gateway {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Gateway{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Ask renders the answer prompt and returns the model output. Errors are
// turned into warning text for the user.
func (g *Gateway) Ask(ctx context.Context, message, contextBlock string) string {
	prompt := ai.BuildAnswerPrompt(message, contextBlock)

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrQuotaExhausted) {
			g.logger.Warn("gemini quota exhausted", zap.Error(err))
			return QuotaWarning
		}
		g.logger.Warn("gemini request failed", zap.Error(err))
		return ErrorWarningPrefix + err.Error()
	}

	g.logger.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
	)

	return raw
}
