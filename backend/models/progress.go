package models

import "github.com/google/uuid"

type SubjectProgress struct {
	SubjectID   uuid.UUID `json:"subjectId"`
	SubjectName string    `json:"subjectName"`
	Attempts    int       `json:"attempts"`
	Correct     int       `json:"correct"`
	Incorrect   int       `json:"incorrect"`
	Accuracy    float64   `json:"accuracy"`
}

// ProgressOverview aggregates a student's completed attempts.
type ProgressOverview struct {
	TestsTaken        int               `json:"testsTaken"`
	TestsCompleted    int               `json:"testsCompleted"`
	TestsInProgress   int               `json:"testsInProgress"`
	TestsLastWeek     int               `json:"testsLastWeek"`
	QuestionsAnswered int               `json:"questionsAnswered"`
	AverageAccuracy   float64           `json:"averageAccuracy"`
	AverageScore      float64           `json:"averageScore"`
	Subjects          []SubjectProgress `json:"subjects"`
}

// Accuracy returns correct/(correct+incorrect) as a percentage, 0 when
// nothing was answered.
func Accuracy(correct, incorrect int) float64 {
	answered := correct + incorrect
	if answered == 0 {
		return 0
	}
	return float64(correct) * 100 / float64(answered)
}
