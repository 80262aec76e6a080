package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	// DifficultyMixed is only a selection filter, never a question's level.
	DifficultyMixed Difficulty = "mixed"
)

// Valid reports whether d is a level a question can carry.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ValidFilter reports whether d can be used to filter a selection.
func (d Difficulty) ValidFilter() bool {
	return d == DifficultyMixed || d.Valid()
}

type Option struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

type Question struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"_id"`
	Text          string                      `gorm:"type:text;not null" json:"text"`
	Options       datatypes.JSONSlice[Option] `json:"options"`
	CorrectAnswer string                      `gorm:"size:64;not null" json:"correctAnswer"`
	Solution      string                      `gorm:"type:text" json:"solution"`
	Difficulty    Difficulty                  `gorm:"size:16;not null;index" json:"difficulty"`
	TopicID       uuid.UUID                   `gorm:"type:uuid;not null;index" json:"topicId"`
	SubjectID     uuid.UUID                   `gorm:"type:uuid;not null;index" json:"subjectId"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// HasOption reports whether id names one of the question's options.
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Validate checks the invariants an administrator must respect when
// creating or editing a question.
func (q *Question) Validate() error {
	var errs []error
	if strings.TrimSpace(q.Text) == "" {
		errs = append(errs, errors.New("text is required"))
	}
	if len(q.Options) < 2 {
		errs = append(errs, errors.New("at least two options are required"))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for i, o := range q.Options {
		if strings.TrimSpace(o.ID) == "" {
			errs = append(errs, fmt.Errorf("option %d has no id", i+1))
			continue
		}
		if _, dup := seen[o.ID]; dup {
			errs = append(errs, fmt.Errorf("option id %q is duplicated", o.ID))
		}
		seen[o.ID] = struct{}{}
	}
	if !q.HasOption(q.CorrectAnswer) {
		errs = append(errs, fmt.Errorf("correct answer %q is not one of the options", q.CorrectAnswer))
	}
	if !q.Difficulty.Valid() {
		errs = append(errs, fmt.Errorf("difficulty %q must be easy, medium or hard", q.Difficulty))
	}
	if q.SubjectID == uuid.Nil {
		errs = append(errs, errors.New("subject is required"))
	}
	if q.TopicID == uuid.Nil {
		errs = append(errs, errors.New("topic is required"))
	}
	return errors.Join(errs...)
}
