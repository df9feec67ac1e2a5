package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/profile"
)

const defaultMaxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed predict_prompt.md
var predictPrompt string

// Predictor asks Gemini for the probability that a candidate fits a job.
type Predictor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewPredictor(generator contentGenerator, l *zap.Logger, maxLogLength int) *Predictor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Predictor{
		generator: generator,
		logger:    logger.WithFields(l, logger.CommonFields(Provider, generator.Model())...),
		maxLogLen: maxLogLength,
	}
}

func (p *Predictor) PredictProbability(ctx context.Context, candidate profile.CandidateFeatures, job profile.JobRequirement) (float64, error) {
	candidateJSON, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal candidate payload: %w", err)
	}
	jobJSON, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal job payload: %w", err)
	}

	prompt := strings.NewReplacer(
		"{{CANDIDATE_JSON}}", string(candidateJSON),
		"{{JOB_JSON}}", string(jobJSON),
	).Replace(predictPrompt)

	fields := logger.MatchFields(candidate.ID, job.ID)
	p.logger.Debug("gemini prediction request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, p.maxLogLen)),
	)...)

	raw, err := p.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return 0, err
	}

	p.logger.Debug("gemini prediction response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, p.maxLogLen)),
	)...)

	pred, err := parsePrediction(raw)
	if err != nil {
		return 0, err
	}
	p.logger.Debug("gemini prediction parsed", append(fields,
		zap.Float64("probability", pred.probability),
		zap.String("reason", pred.reason),
	)...)
	return pred.probability, nil
}
