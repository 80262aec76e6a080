// Package seed loads a YAML question bank into the catalog. Applying the same
// file twice changes nothing.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"catprep/backend/models"
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type File struct {
	Subjects  []Subject               `yaml:"subjects"`
	Admins    []models.UserImport     `yaml:"admins"`
	Questions []models.QuestionImport `yaml:"questions"`
}

type Subject struct {
	Name   string               `yaml:"name"`
	Status models.SubjectStatus `yaml:"status"`
	Icon   string               `yaml:"icon"`
	Order  int                  `yaml:"order"`
	Topics []Topic              `yaml:"topics"`
}

type Topic struct {
	Name     string  `yaml:"name"`
	Children []Topic `yaml:"children"`
}

type Report struct {
	SubjectsCreated   int
	TopicsCreated     int
	QuestionsImported int
	QuestionsSkipped  int
	UsersImported     int
}

func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*File, error) {
	file := &File{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return file, nil
}

type Seeder struct {
	Catalog *services.CatalogService
	Users   *services.UserService
	Log     *utils.Logger
}

// Apply creates missing subjects, topics and admins, then imports questions
// whose text is new to their subject.
func (s *Seeder) Apply(ctx context.Context, file *File) (*Report, error) {
	report := &Report{}
	subjects := map[string]uuid.UUID{}

	for _, in := range file.Subjects {
		subject, created, err := s.Catalog.EnsureSubject(ctx, models.SubjectInput{
			Name: in.Name, Status: in.Status, Icon: in.Icon, Order: in.Order,
		})
		if err != nil {
			return nil, fmt.Errorf("subject %q: %w", in.Name, err)
		}
		if created {
			report.SubjectsCreated++
		}
		subjects[strings.ToLower(subject.Name)] = subject.ID
		if err := s.topics(ctx, report, subject.ID, nil, in.Topics); err != nil {
			return nil, fmt.Errorf("subject %q: %w", in.Name, err)
		}
	}

	if len(file.Admins) > 0 {
		admins := make([]models.UserImport, len(file.Admins))
		for i, a := range file.Admins {
			a.Role = models.RoleAdmin
			admins[i] = a
		}
		res, err := s.Users.BulkImport(ctx, admins)
		if err != nil {
			return nil, fmt.Errorf("admins: %w", err)
		}
		report.UsersImported = res.Imported
	}

	var fresh []models.QuestionImport
	for _, q := range file.Questions {
		subjectID, ok := subjects[strings.ToLower(strings.TrimSpace(q.Subject))]
		if ok {
			exists, err := s.Catalog.HasQuestion(ctx, subjectID, q.Text)
			if err != nil {
				return nil, err
			}
			if exists {
				report.QuestionsSkipped++
				continue
			}
		}
		fresh = append(fresh, q)
	}
	if len(fresh) > 0 {
		res, err := s.Catalog.ImportQuestions(ctx, fresh)
		if err != nil {
			return nil, fmt.Errorf("questions: %w", err)
		}
		report.QuestionsImported = res.Imported
	}

	s.Log.Info("seed applied",
		"subjects_created", report.SubjectsCreated,
		"topics_created", report.TopicsCreated,
		"questions_imported", report.QuestionsImported,
		"questions_skipped", report.QuestionsSkipped,
		"users_imported", report.UsersImported)
	return report, nil
}

func (s *Seeder) topics(ctx context.Context, report *Report, subjectID uuid.UUID, parent *uuid.UUID, topics []Topic) error {
	for _, in := range topics {
		topic, created, err := s.Catalog.EnsureTopic(ctx, models.TopicInput{
			Name: in.Name, SubjectID: subjectID, ParentTopicID: parent,
		})
		if err != nil {
			return fmt.Errorf("topic %q: %w", in.Name, err)
		}
		if created {
			report.TopicsCreated++
		}
		if err := s.topics(ctx, report, subjectID, &topic.ID, in.Children); err != nil {
			return err
		}
	}
	return nil
}
