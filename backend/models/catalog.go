package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubjectStatus string

const (
	SubjectActive     SubjectStatus = "active"
	SubjectComingSoon SubjectStatus = "coming_soon"
	SubjectDisabled   SubjectStatus = "disabled"
)

type Subject struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"_id"`
	Name      string        `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Slug      string        `gorm:"size:255;uniqueIndex" json:"slug"`
	Status    SubjectStatus `gorm:"size:20;not null;default:coming_soon" json:"status"`
	Icon      string        `gorm:"size:64;default:BookOpen" json:"icon"`
	Order     int           `gorm:"column:sort_order;default:0" json:"order"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SubjectComingSoon
	}
	if s.Icon == "" {
		s.Icon = "BookOpen"
	}
	return nil
}

// Topic names are unique within (subject, parent). Level is only used to
// group topics in listings.
type Topic struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"_id"`
	Name          string     `gorm:"size:150;not null;uniqueIndex:idx_topic_scope" json:"name"`
	Slug          string     `gorm:"size:150" json:"slug"`
	SubjectID     uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_topic_scope" json:"subjectId"`
	ParentTopicID *uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_topic_scope" json:"parentTopicId"`
	Level         int        `gorm:"default:0" json:"level"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
