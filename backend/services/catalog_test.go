package services

import (
	"testing"

	"catprep/backend/cache"
	"catprep/backend/config"
	"catprep/backend/internal/testutil"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCatalog(t *testing.T, mutate func(*config.Config)) (*CatalogService, *gorm.DB, testutil.Catalog) {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testutil.Config()
	if mutate != nil {
		mutate(cfg)
	}
	svc := NewCatalogService(db, cache.NewMemory(), NewSelector(db, nil), cfg, utils.NopLogger())
	return svc, db, testutil.SeedCatalog(t, db)
}

func TestListSubjectsCached(t *testing.T) {
	svc, db, _ := newCatalog(t, nil)

	subjects, err := svc.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)

	// written behind the service's back: the cached listing wins
	require.NoError(t, db.Create(&models.Subject{Name: "Logical Reasoning", Slug: "logical-reasoning"}).Error)
	subjects, err = svc.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Len(t, subjects, 1)

	created, err := svc.CreateSubject(ctx, models.SubjectInput{Name: "  Verbal Ability ", Order: -1})
	require.NoError(t, err)
	assert.Equal(t, "Verbal Ability", created.Name)
	assert.Equal(t, "verbal-ability", created.Slug)
	assert.Equal(t, models.SubjectComingSoon, created.Status)
	assert.Equal(t, "BookOpen", created.Icon)

	subjects, err = svc.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 3)
	assert.Equal(t, "Verbal Ability", subjects[0].Name)

	_, err = svc.CreateSubject(ctx, models.SubjectInput{Name: "verbal ability"})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestListTopics(t *testing.T) {
	svc, _, catalog := newCatalog(t, func(c *config.Config) { c.HiddenTopics = []string{"algebra"} })

	topics, err := svc.ListTopics(ctx, catalog.Subject.ID)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Arithmetic", topics[0].Name)

	_, err = svc.ListTopics(ctx, uuid.New())
	assert.ErrorIs(t, err, utils.ErrNotFound)

	child, err := svc.CreateTopic(ctx, models.TopicInput{Name: "Percentages", SubjectID: catalog.Subject.ID, ParentTopicID: &catalog.Topics[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, child.Level)

	topics, err = svc.ListTopics(ctx, catalog.Subject.ID)
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	again, created, err := svc.EnsureTopic(ctx, models.TopicInput{Name: "percentages", SubjectID: catalog.Subject.ID, ParentTopicID: &catalog.Topics[0].ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, child.ID, again.ID)

	_, err = svc.CreateTopic(ctx, models.TopicInput{Name: "Percentages", SubjectID: catalog.Subject.ID, ParentTopicID: &catalog.Topics[0].ID})
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestQuestionAdmin(t *testing.T) {
	svc, db, catalog := newCatalog(t, nil)
	other := models.Subject{Name: "Verbal Ability"}
	require.NoError(t, db.Create(&other).Error)

	in := models.QuestionInput{
		Text:          "What is 15% of 200?",
		Options:       []models.Option{{ID: "a", Text: "30"}, {ID: "b", Text: "25"}},
		CorrectAnswer: "a",
		Difficulty:    models.DifficultyEasy,
		SubjectID:     catalog.Subject.ID,
		TopicID:       catalog.Topics[0].ID,
		Tags:          []string{"percentages"},
	}
	q, err := svc.CreateQuestion(ctx, in)
	require.NoError(t, err)

	t.Run("topic outside subject", func(t *testing.T) {
		bad := in
		bad.SubjectID = other.ID
		_, err := svc.CreateQuestion(ctx, bad)
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("duplicate option ids", func(t *testing.T) {
		bad := in
		bad.Options = []models.Option{{ID: "a"}, {ID: "a"}}
		_, err := svc.CreateQuestion(ctx, bad)
		assert.ErrorIs(t, err, utils.ErrValidation)
		assert.Contains(t, err.Error(), "duplicated")
	})

	t.Run("update", func(t *testing.T) {
		upd := in
		upd.CorrectAnswer = "b"
		updated, err := svc.UpdateQuestion(ctx, q.ID, upd)
		require.NoError(t, err)
		assert.Equal(t, "b", updated.CorrectAnswer)
		assert.Equal(t, q.CreatedAt.Unix(), updated.CreatedAt.Unix())

		_, err = svc.UpdateQuestion(ctx, uuid.New(), upd)
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("validate answer", func(t *testing.T) {
		res, err := svc.ValidateAnswer(ctx, models.ValidateAnswerRequest{QuestionID: q.ID, SelectedOption: "b"})
		require.NoError(t, err)
		assert.True(t, res.IsCorrect)

		_, err = svc.ValidateAnswer(ctx, models.ValidateAnswerRequest{QuestionID: q.ID, SelectedOption: "z"})
		assert.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("list and delete", func(t *testing.T) {
		listed, err := svc.ListQuestions(ctx, QuestionFilter{SubjectID: &catalog.Subject.ID})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, "Quantitative Aptitude", listed[0].SubjectName)
		assert.Equal(t, "Arithmetic", listed[0].TopicName)

		require.NoError(t, svc.DeleteQuestion(ctx, q.ID))
		assert.ErrorIs(t, svc.DeleteQuestion(ctx, q.ID), utils.ErrNotFound)
	})
}

func TestImportQuestions(t *testing.T) {
	svc, db, _ := newCatalog(t, nil)
	row := func(subject, topic, text string) models.QuestionImport {
		return models.QuestionImport{
			Subject: subject, Topic: topic, Text: text,
			Options:       []models.Option{{ID: "a", Text: "yes"}, {ID: "b", Text: "no"}},
			CorrectAnswer: "a",
		}
	}

	_, err := svc.ImportQuestions(ctx, nil)
	assert.ErrorIs(t, err, utils.ErrValidation)

	t.Run("bad rows reject the batch", func(t *testing.T) {
		bad := row("Quantitative Aptitude", "Arithmetic", "no answer")
		bad.CorrectAnswer = "c"
		_, err := svc.ImportQuestions(ctx, []models.QuestionImport{
			row("Quantitative Aptitude", "Geometry", "fine"),
			bad,
			row("Nowhere", "Arithmetic", "no subject"),
		})
		require.ErrorIs(t, err, utils.ErrValidation)
		rows, ok := utils.DetailsOf(err).([]models.ImportError)
		require.True(t, ok)
		require.Len(t, rows, 2)
		assert.Equal(t, 2, rows[0].Row)
		assert.Equal(t, 3, rows[1].Row)

		var n int64
		require.NoError(t, db.Model(&models.Question{}).Count(&n).Error)
		assert.Zero(t, n)
		require.NoError(t, db.Model(&models.Topic{}).Where("name = ?", "Geometry").Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("names resolve case-insensitively", func(t *testing.T) {
		res, err := svc.ImportQuestions(ctx, []models.QuestionImport{
			row("quantitative aptitude", "ARITHMETIC", "one"),
			row("Quantitative Aptitude", "Geometry", "two"),
			row("Quantitative Aptitude", "geometry", "three"),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Imported)

		var geometry []models.Topic
		require.NoError(t, db.Where("LOWER(name) = ?", "geometry").Find(&geometry).Error)
		require.Len(t, geometry, 1)
		assert.Equal(t, 0, geometry[0].Level)

		var medium int64
		require.NoError(t, db.Model(&models.Question{}).Where("difficulty = ?", models.DifficultyMedium).Count(&medium).Error)
		assert.Equal(t, int64(3), medium)
	})
}

func TestGenerate(t *testing.T) {
	svc, db, catalog := newCatalog(t, func(c *config.Config) { c.MaxQuestionCount = 2 })
	testutil.SeedQuestions(t, db, catalog.Subject.ID, catalog.Topics[0].ID, models.DifficultyEasy, 5)

	views, err := svc.Generate(ctx, models.GenerateRequest{SubjectID: catalog.Subject.ID, TopicIDs: catalog.TopicIDs(), Count: 10})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Nil(t, views[0].CorrectAnswer)
	assert.Nil(t, views[0].Solution)

	_, err = svc.Generate(ctx, models.GenerateRequest{SubjectID: catalog.Subject.ID, TopicIDs: catalog.TopicIDs()[1:]})
	assert.ErrorIs(t, err, utils.ErrInsufficientContent)
}
