package models

import (
	"time"

	"github.com/google/uuid"
)

// QuestionView is a Question as sent to a client. CorrectAnswer and Solution
// are nil while the owning attempt is still running.
type QuestionView struct {
	ID            uuid.UUID  `json:"_id"`
	Text          string     `json:"text"`
	Options       []Option   `json:"options"`
	Difficulty    Difficulty `json:"difficulty"`
	TopicID       uuid.UUID  `json:"topicId"`
	SubjectID     uuid.UUID  `json:"subjectId"`
	Tags          []string   `json:"tags,omitempty"`
	CorrectAnswer *string    `json:"correctAnswer,omitempty"`
	Solution      *string    `json:"solution,omitempty"`
}

// NewQuestionView projects q, keeping the answer only when reveal is set.
func NewQuestionView(q Question, reveal bool) QuestionView {
	v := QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		Options:    []Option(q.Options),
		Difficulty: q.Difficulty,
		TopicID:    q.TopicID,
		SubjectID:  q.SubjectID,
		Tags:       []string(q.Tags),
	}
	if reveal {
		answer, solution := q.CorrectAnswer, q.Solution
		v.CorrectAnswer = &answer
		v.Solution = &solution
	}
	return v
}

type AttemptQuestionView struct {
	QuestionID     uuid.UUID      `json:"questionId"`
	Question       *QuestionView  `json:"question"`
	Missing        bool           `json:"missing,omitempty"`
	Status         QuestionStatus `json:"status"`
	SelectedOption *string        `json:"selectedOption"`
	IsCorrect      bool           `json:"isCorrect"`
	TimeTaken      int            `json:"timeTaken"`
	TimeRemaining  *int           `json:"timeRemaining"`
	Locked         bool           `json:"locked"`
}

type AttemptView struct {
	ID                     uuid.UUID             `json:"_id"`
	UserID                 uuid.UUID             `json:"userId"`
	Status                 AttemptStatus         `json:"status"`
	Config                 AttemptConfig         `json:"config"`
	Questions              []AttemptQuestionView `json:"questions"`
	Score                  *Score                `json:"score,omitempty"`
	StartedAt              time.Time             `json:"startedAt"`
	CompletedAt            *time.Time            `json:"completedAt,omitempty"`
	TimeRemaining          *int                  `json:"timeRemaining"`
	EffectiveTimeRemaining *int                  `json:"effectiveTimeRemaining,omitempty"`
	LastQuestionIndex      int                   `json:"lastQuestionIndex"`
	Version                int                   `json:"version"`
}

// AttemptSummary is one row of a student's history.
type AttemptSummary struct {
	ID            uuid.UUID     `json:"_id"`
	SubjectID     uuid.UUID     `json:"subjectId"`
	SubjectName   string        `json:"subjectName"`
	Status        AttemptStatus `json:"status"`
	TimerMode     TimerMode     `json:"timerMode"`
	QuestionCount int           `json:"questionCount"`
	Score         *Score        `json:"score,omitempty"`
	StartedAt     time.Time     `json:"startedAt"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
}

type ValidateAnswerResult struct {
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	Solution      string `json:"solution"`
}
