// Package testutil builds in-memory databases and catalog fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"catprep/backend/config"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_fk=1", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, utils.Migrate(db))
	return db
}

func Config() *config.Config {
	return &config.Config{
		DBDriver:             "sqlite",
		JWTSecret:            "testsecret",
		JWTTTL:               time.Hour,
		LogMode:              "dev",
		DefaultQuestionCount: 10,
		DefaultTimeLimit:     30,
		MaxQuestionCount:     100,
	}
}

// Catalog is one subject with two topics.
type Catalog struct {
	Subject models.Subject
	Topics  []models.Topic
}

func (c Catalog) TopicIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Topics))
	for i, t := range c.Topics {
		ids[i] = t.ID
	}
	return ids
}

func SeedCatalog(t *testing.T, db *gorm.DB) Catalog {
	t.Helper()
	subject := models.Subject{Name: "Quantitative Aptitude", Slug: "quantitative-aptitude", Status: models.SubjectActive}
	require.NoError(t, db.Create(&subject).Error)
	topics := []models.Topic{
		{Name: "Arithmetic", Slug: "arithmetic", SubjectID: subject.ID},
		{Name: "Algebra", Slug: "algebra", SubjectID: subject.ID},
	}
	require.NoError(t, db.Create(&topics).Error)
	return Catalog{Subject: subject, Topics: topics}
}

// SeedQuestions creates n questions in topic with options a-d; the correct
// answer is always "a".
func SeedQuestions(t *testing.T, db *gorm.DB, subjectID, topicID uuid.UUID, difficulty models.Difficulty, n int) []models.Question {
	t.Helper()
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			Text: fmt.Sprintf("%s question %d", difficulty, i+1),
			Options: []models.Option{
				{ID: "a", Text: "first"},
				{ID: "b", Text: "second"},
				{ID: "c", Text: "third"},
				{ID: "d", Text: "fourth"},
			},
			CorrectAnswer: "a",
			Solution:      "because a",
			Difficulty:    difficulty,
			SubjectID:     subjectID,
			TopicID:       topicID,
		}
	}
	require.NoError(t, db.Create(&qs).Error)
	return qs
}

func SeedUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	t.Helper()
	u := models.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func Identity(u models.User) models.Identity {
	return models.Identity{UserID: u.ID, Role: u.Role}
}
