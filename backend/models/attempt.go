package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAborted    AttemptStatus = "aborted"
)

type TimerMode string

const (
	TimerOverall     TimerMode = "overall"
	TimerPerQuestion TimerMode = "per_question"
)

func (m TimerMode) Valid() bool {
	return m == TimerOverall || m == TimerPerQuestion
}

type QuestionStatus string

const (
	QuestionUnattempted     QuestionStatus = "unattempted"
	QuestionAttempted       QuestionStatus = "attempted"
	QuestionSkipped         QuestionStatus = "skipped"
	QuestionMarkedForReview QuestionStatus = "marked_for_review"
)

func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionUnattempted, QuestionAttempted, QuestionSkipped, QuestionMarkedForReview:
		return true
	}
	return false
}

// AttemptConfig is the snapshot taken when an attempt is created. TimeLimit is
// in minutes: the whole attempt in overall mode, each question in
// per_question mode.
type AttemptConfig struct {
	SubjectID     uuid.UUID                      `gorm:"type:uuid" json:"subjectId"`
	TopicIDs      datatypes.JSONSlice[uuid.UUID] `json:"topicIds"`
	Difficulty    Difficulty                     `gorm:"size:16" json:"difficulty"`
	QuestionCount int                            `json:"questionCount"`
	TimerMode     TimerMode                      `gorm:"size:16" json:"timerMode"`
	TimeLimit     int                            `json:"timeLimit"`
}

func (c AttemptConfig) LimitSeconds() int { return c.TimeLimit * 60 }

type Score struct {
	Total     int `json:"total"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
}

type TestAttempt struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"_id"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;index:idx_attempt_user_status" json:"userId"`
	Status    AttemptStatus     `gorm:"size:20;not null;index:idx_attempt_user_status" json:"status"`
	Config    AttemptConfig     `gorm:"embedded;embeddedPrefix:config_" json:"config"`
	Questions []AttemptQuestion `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"questions"`
	Score     Score             `gorm:"embedded;embeddedPrefix:score_" json:"score"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	// TimeRemaining is the session countdown snapshot in seconds, overall mode only.
	TimeRemaining     *int `json:"timeRemaining"`
	LastQuestionIndex int  `gorm:"default:0" json:"lastQuestionIndex"`
	Version           int  `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *TestAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *TestAttempt) OwnedBy(userID uuid.UUID) bool { return a.UserID == userID }

// QuestionIDs returns the exam sequence.
func (a *TestAttempt) QuestionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(a.Questions))
	for i, q := range a.Questions {
		ids[i] = q.QuestionID
	}
	return ids
}

type AttemptQuestion struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	AttemptID      uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_attempt_position" json:"-"`
	Position       int            `gorm:"not null;uniqueIndex:idx_attempt_position" json:"-"`
	QuestionID     uuid.UUID      `gorm:"type:uuid;not null" json:"questionId"`
	Status         QuestionStatus `gorm:"size:20;not null" json:"status"`
	SelectedOption *string        `gorm:"size:64" json:"selectedOption"`
	IsCorrect      bool           `gorm:"not null;default:false" json:"isCorrect"`
	TimeTaken      int            `gorm:"not null;default:0" json:"timeTaken"`
	// TimeRemaining is this question's own countdown in seconds, per_question mode only.
	TimeRemaining *int `json:"timeRemaining"`
}

func (q *AttemptQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// NewAttemptQuestion returns the initial per-question state.
func NewAttemptQuestion(position int, questionID uuid.UUID) AttemptQuestion {
	return AttemptQuestion{
		Position:   position,
		QuestionID: questionID,
		Status:     QuestionUnattempted,
	}
}

// Locked reports whether the question's own countdown has run out. Only
// per_question attempts lock questions.
func (q *AttemptQuestion) Locked(mode TimerMode) bool {
	return mode == TimerPerQuestion && q.TimeRemaining != nil && *q.TimeRemaining == 0
}

// AnswerUpdate is the per-question payload shared by progress saves and the
// final submission.
type AnswerUpdate struct {
	QuestionID     uuid.UUID      `json:"questionId" validate:"required"`
	SelectedOption *string        `json:"selectedOption"`
	Status         QuestionStatus `json:"status" validate:"omitempty,oneof=unattempted attempted skipped marked_for_review"`
	TimeTaken      int            `json:"timeTaken" validate:"gte=0"`
	TimeRemaining  *int           `json:"timeRemaining" validate:"omitempty,gte=0"`
}

// Selection returns the selected option, treating an empty string as none.
func (u AnswerUpdate) Selection() *string {
	if u.SelectedOption == nil || *u.SelectedOption == "" {
		return nil
	}
	return u.SelectedOption
}

type ProgressUpdate struct {
	Answers              []AnswerUpdate `json:"answers" validate:"dive"`
	SessionTimeRemaining *int           `json:"timeRemaining" validate:"omitempty,gte=0"`
	CurrentIndex         *int           `json:"currentQuestionIndex" validate:"omitempty,gte=0"`
	ExpectedVersion      *int           `json:"expectedVersion" validate:"omitempty,gte=0"`
}

type SubmitRequest struct {
	Answers []AnswerUpdate `json:"answers" validate:"dive"`
}
