package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/pipeline"
)

//go:embed explain_prompt.md
var explainPrompt string

// Explainer writes a recruiter-facing explanation of a match.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExplainer(generator contentGenerator, l *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Explainer{
		generator: generator,
		logger:    logger.WithFields(l, logger.CommonFields(Provider, generator.Model())...),
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) Explain(ctx context.Context, result pipeline.MatchResult) (string, error) {
	matchJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal match payload: %w", err)
	}

	prompt := strings.ReplaceAll(explainPrompt, "{{MATCH_JSON}}", string(matchJSON))
	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "`"))
	if text == "" {
		return "", errors.New("gemini returned an empty explanation")
	}

	e.logger.Debug("gemini explanation received",
		zap.String(logger.FieldMatch, result.MatchID),
		zap.String("preview", logger.TruncateForLog(text, e.maxLogLen)),
	)
	return text, nil
}
