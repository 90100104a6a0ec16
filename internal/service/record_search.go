package service

import (
	"sort"
	"strings"

	"github.com/noah-isme/gema-eval-api/internal/models"
)

// SearchRecords filters the set to records whose student name, roll number or submission id
// contains query, ignoring case. An empty query returns the set unchanged.
func SearchRecords(query string, set models.RecordSet) models.RecordSet {
	if query == "" {
		return set
	}

	needle := strings.ToLower(query)
	matched := make(models.RecordSet)
	for id, record := range set {
		if strings.Contains(strings.ToLower(record.StudentName), needle) ||
			strings.Contains(strings.ToLower(record.RollNo), needle) ||
			strings.Contains(strings.ToLower(record.SubmissionID), needle) {
			matched[id] = record
		}
	}
	return matched
}

// SortedIDs returns the submission ids of the set in ascending order.
func SortedIDs(set models.RecordSet) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
