package models

import "github.com/google/uuid"

// StartRequest configures a new attempt. Zero values fall back to the server
// defaults.
type StartRequest struct {
	SubjectID     uuid.UUID   `json:"subjectId" validate:"required"`
	TopicIDs      []uuid.UUID `json:"topicIds" validate:"required,min=1,dive,required"`
	Difficulty    Difficulty  `json:"difficulty" validate:"omitempty,oneof=easy medium hard mixed"`
	QuestionCount int         `json:"questionCount" validate:"gte=0"`
	TimerMode     TimerMode   `json:"timerMode" validate:"omitempty,oneof=overall per_question"`
	TimeLimit     int         `json:"timeLimit" validate:"gte=0"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserImport struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
	Role     Role   `json:"role" yaml:"role"`
}

type SubjectInput struct {
	Name   string        `json:"name" validate:"required,max=255"`
	Status SubjectStatus `json:"status" validate:"omitempty,oneof=active coming_soon disabled"`
	Icon   string        `json:"icon" validate:"max=64"`
	Order  int           `json:"order"`
}

type TopicInput struct {
	Name          string     `json:"name" validate:"required,max=150"`
	SubjectID     uuid.UUID  `json:"subjectId" validate:"required"`
	ParentTopicID *uuid.UUID `json:"parentTopicId"`
}

type QuestionInput struct {
	Text          string     `json:"text" validate:"required"`
	Options       []Option   `json:"options" validate:"min=2"`
	CorrectAnswer string     `json:"correctAnswer" validate:"required"`
	Solution      string     `json:"solution"`
	Difficulty    Difficulty `json:"difficulty" validate:"required,oneof=easy medium hard"`
	TopicID       uuid.UUID  `json:"topicId" validate:"required"`
	SubjectID     uuid.UUID  `json:"subjectId" validate:"required"`
	Tags          []string   `json:"tags"`
}

// QuestionImport references its subject and topic by name.
type QuestionImport struct {
	Subject       string     `json:"subject" yaml:"subject"`
	Topic         string     `json:"topic" yaml:"topic"`
	Text          string     `json:"text" yaml:"text"`
	Options       []Option   `json:"options" yaml:"options"`
	CorrectAnswer string     `json:"correctAnswer" yaml:"correctAnswer"`
	Solution      string     `json:"solution" yaml:"solution"`
	Difficulty    Difficulty `json:"difficulty" yaml:"difficulty"`
	Tags          []string   `json:"tags" yaml:"tags"`
}

type ValidateAnswerRequest struct {
	QuestionID     uuid.UUID `json:"questionId" validate:"required"`
	SelectedOption string    `json:"selectedOption" validate:"required"`
}

type GenerateRequest struct {
	SubjectID  uuid.UUID   `json:"subjectId" validate:"required"`
	TopicIDs   []uuid.UUID `json:"topicIds" validate:"required,min=1"`
	Difficulty Difficulty  `json:"difficulty" validate:"omitempty,oneof=easy medium hard mixed"`
	Count      int         `json:"count" validate:"gte=0"`
}

type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type AdminQuestion struct {
	Question
	SubjectName string `json:"subjectName"`
	TopicName   string `json:"topicName"`
}

type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type SubmitResult struct {
	Score   Score        `json:"score"`
	Attempt *AttemptView `json:"attempt"`
}

type SaveResult struct {
	Version int `json:"version"`
}
