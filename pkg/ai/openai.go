package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI answer sheet evaluation requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI answer sheet evaluation failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI evaluator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIEvaluator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-eval-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_evaluator").Logger(),
	}, nil
}

// Evaluate grades the answer sheet against the question paper and checks it for plagiarism.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, input EvaluationInput) (Assessment, error) {
	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", e.cfg.Model),
		attribute.String("submission_id", input.SubmissionID),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: evaluatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := e.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(e.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return Assessment{}, e.fail(span, fmt.Errorf("openai evaluate: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Assessment{}, e.fail(span, fmt.Errorf("no choices returned from openai"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	assessment, err := parseAssessment(content)
	if err != nil {
		return Assessment{}, e.fail(span, err)
	}

	assessment.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	e.logger.Debug().
		Str("submission_id", input.SubmissionID).
		Int("items", len(assessment.Items)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("answer sheet evaluated")

	return assessment, nil
}

func (e *OpenAIEvaluator) fail(span trace.Span, err error) error {
	aiFailures.WithLabelValues(e.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func evaluatorSystemPrompt() string {
	return "You are an experienced examiner. Grade the student's answer sheet against the question paper and check it for plagiarism. " +
		"Respond with a JSON object with keys: extractedText (the answer sheet text as read), " +
		"plagiarismReport {status, summary, matches [{studentText, source}], plagiarismPercentage 0-100}, " +
		"evaluation [{question, studentAnswer, marksAwarded, maxMarks, feedback}] with one entry per question, and " +
		"summary {totalMarksAwarded, totalMaxMarks, finalGrade, overallFeedback}. Never award more than maxMarks."
}

func buildUserPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Submission\n")
	builder.WriteString("Student: ")
	builder.WriteString(input.StudentName)
	builder.WriteString("\nRoll number: ")
	builder.WriteString(input.RollNo)
	builder.WriteString("\nSubject: ")
	builder.WriteString(input.Subject)
	builder.WriteString("\n\n## Question Paper\n")
	builder.WriteString(input.QuestionPaper)
	builder.WriteString("\n\n## Answer Sheet\n")
	builder.WriteString(input.AnswerSheet)
	if strings.TrimSpace(input.CustomRules) != "" {
		builder.WriteString("\n\n## Grading Rules\n")
		builder.WriteString(input.CustomRules)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}
