package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const gradedSheet = `{
  "extractedText": "Newton's second law is F = ma.",
  "plagiarismReport": {"status": "Low", "summary": "Mostly original", "plagiarismPercentage": 8,
    "matches": [{"studentText": "F = ma", "source": "Standard textbook definition"}]},
  "evaluation": [
    {"question": "State Newton's second law", "studentAnswer": "F = ma", "marksAwarded": 9, "maxMarks": 10, "feedback": "Good"},
    {"question": "Define inertia", "studentAnswer": "", "marksAwarded": 14, "maxMarks": 10, "feedback": "Missing"}
  ],
  "summary": {"totalMarksAwarded": 99, "totalMaxMarks": 20, "finalGrade": "A", "overallFeedback": "Well done"}
}`

func newChatServer(t *testing.T, content string, captured *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if captured != nil {
			*captured = string(body)
		}

		resp := map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{"index": 0, "finish_reason": "stop", "message": map[string]string{"role": "assistant", "content": content}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestOpenAIEvaluatorParsesAndNormalisesAssessment(t *testing.T) {
	var requestBody string
	server := newChatServer(t, gradedSheet, &requestBody)
	defer server.Close()

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	assessment, err := evaluator.Evaluate(context.Background(), EvaluationInput{
		SubmissionID:  "SUB100",
		StudentName:   "Asha",
		RollNo:        "R-17",
		Subject:       "Physics",
		QuestionPaper: "Q1. State Newton's second law",
		AnswerSheet:   "F = ma",
		CustomRules:   "Be lenient on spelling",
	})
	require.NoError(t, err)

	require.Len(t, assessment.Items, 2)
	require.Equal(t, 10.0, assessment.Items[1].MarksAwarded, "marks are capped at max marks")
	require.Equal(t, 19.0, assessment.TotalMarksAwarded)
	require.Equal(t, 20.0, assessment.TotalMaxMarks)
	require.Equal(t, 8.0, assessment.Plagiarism.Percentage)
	require.Len(t, assessment.Plagiarism.Matches, 1)
	require.Equal(t, "Well done", assessment.OverallFeedback)
	require.NotNil(t, assessment.Raw["usage"])

	require.Contains(t, requestBody, "Be lenient on spelling")
	require.Contains(t, requestBody, "json_object")
}

func TestOpenAIEvaluatorRejectsOutputOutsideSchema(t *testing.T) {
	server := newChatServer(t, `{"evaluation": "not-a-list"}`, nil)
	defer server.Close()

	evaluator, err := NewOpenAIEvaluator(OpenAIConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = evaluator.Evaluate(context.Background(), EvaluationInput{SubmissionID: "SUB1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "schema")
}

func TestNewOpenAIEvaluatorRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEvaluator(OpenAIConfig{})
	require.Error(t, err)
}

func TestParseAssessmentClampsPlagiarismAndTotalsWithoutItems(t *testing.T) {
	assessment, err := parseAssessment(`{
	  "plagiarismReport": {"status": "High", "plagiarismPercentage": 140},
	  "evaluation": [],
	  "summary": {"totalMarksAwarded": 30, "totalMaxMarks": 25}
	}`)
	require.NoError(t, err)
	require.Equal(t, 100.0, assessment.Plagiarism.Percentage)
	require.Equal(t, 25.0, assessment.TotalMarksAwarded)
	require.Equal(t, 25.0, assessment.TotalMaxMarks)
	require.NotNil(t, assessment.Plagiarism.Matches)
}
