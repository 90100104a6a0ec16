package ai

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const assessmentSchemaURL = "assessment.schema.json"

const assessmentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["evaluation", "summary", "plagiarismReport"],
  "properties": {
    "extractedText": {"type": "string"},
    "plagiarismReport": {
      "type": "object",
      "required": ["status", "plagiarismPercentage"],
      "properties": {
        "status": {"type": "string"},
        "summary": {"type": "string"},
        "plagiarismPercentage": {"type": "number"},
        "matches": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["studentText", "source"],
            "properties": {
              "studentText": {"type": "string"},
              "source": {"type": "string"}
            }
          }
        }
      }
    },
    "evaluation": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question", "marksAwarded", "maxMarks"],
        "properties": {
          "question": {"type": "string"},
          "studentAnswer": {"type": "string"},
          "marksAwarded": {"type": "number"},
          "maxMarks": {"type": "number", "minimum": 0},
          "feedback": {"type": "string"}
        }
      }
    },
    "summary": {
      "type": "object",
      "required": ["totalMarksAwarded", "totalMaxMarks"],
      "properties": {
        "totalMarksAwarded": {"type": "number"},
        "totalMaxMarks": {"type": "number", "minimum": 0},
        "finalGrade": {"type": "string"},
        "overallFeedback": {"type": "string"}
      }
    }
  }
}`

var compiledAssessmentSchema = jsonschema.MustCompileString(assessmentSchemaURL, assessmentSchema)

// parseAssessment validates the model output against the assessment schema and normalises the marks.
func parseAssessment(content string) (Assessment, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return Assessment{}, fmt.Errorf("parse assessment json: %w", err)
	}
	if err := compiledAssessmentSchema.Validate(doc); err != nil {
		return Assessment{}, fmt.Errorf("assessment does not match schema: %w", err)
	}

	type summary struct {
		TotalMarksAwarded float64 `json:"totalMarksAwarded"`
		TotalMaxMarks     float64 `json:"totalMaxMarks"`
		FinalGrade        string  `json:"finalGrade"`
		OverallFeedback   string  `json:"overallFeedback"`
	}
	type payload struct {
		ExtractedText string     `json:"extractedText"`
		Plagiarism    Plagiarism `json:"plagiarismReport"`
		Items         []Item     `json:"evaluation"`
		Summary       summary    `json:"summary"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}

	assessment := Assessment{
		ExtractedText:     data.ExtractedText,
		Plagiarism:        data.Plagiarism,
		Items:             data.Items,
		TotalMarksAwarded: data.Summary.TotalMarksAwarded,
		TotalMaxMarks:     data.Summary.TotalMaxMarks,
		FinalGrade:        data.Summary.FinalGrade,
		OverallFeedback:   data.Summary.OverallFeedback,
	}
	normalise(&assessment)
	return assessment, nil
}

// normalise clamps marks so awarded never exceeds the maximum and recomputes totals from the items.
func normalise(a *Assessment) {
	for i := range a.Items {
		item := &a.Items[i]
		item.MaxMarks = math.Max(item.MaxMarks, 0)
		item.MarksAwarded = math.Min(math.Max(item.MarksAwarded, 0), item.MaxMarks)
	}

	if len(a.Items) > 0 {
		var awarded, total float64
		for _, item := range a.Items {
			awarded += item.MarksAwarded
			total += item.MaxMarks
		}
		a.TotalMarksAwarded = awarded
		a.TotalMaxMarks = total
	} else {
		a.TotalMaxMarks = math.Max(a.TotalMaxMarks, 0)
		a.TotalMarksAwarded = math.Min(math.Max(a.TotalMarksAwarded, 0), a.TotalMaxMarks)
	}

	a.Plagiarism.Percentage = math.Min(math.Max(a.Plagiarism.Percentage, 0), 100)
	if a.Plagiarism.Matches == nil {
		a.Plagiarism.Matches = []Match{}
	}
}
