package services

import (
	"math/rand/v2"
	"testing"
	"time"

	"catprep/backend/internal/testutil"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      *AttemptService
	catalog  testutil.Catalog
	student  models.Identity
	intruder models.Identity
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testutil.Config()
	f := &fixture{
		db:       db,
		svc:      NewAttemptService(db, NewSelector(db, rand.New(rand.NewPCG(1, 2))), cfg, utils.NopLogger()),
		catalog:  testutil.SeedCatalog(t, db),
		student:  testutil.Identity(testutil.SeedUser(t, db, "student@example.com", models.RoleStudent)),
		intruder: testutil.Identity(testutil.SeedUser(t, db, "other@example.com", models.RoleStudent)),
		now:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) start(t *testing.T, mode models.TimerMode, limit, count int) *models.AttemptView {
	t.Helper()
	view, err := f.svc.Start(ctx, f.student, models.StartRequest{
		SubjectID:     f.catalog.Subject.ID,
		TopicIDs:      f.catalog.TopicIDs(),
		QuestionCount: count,
		TimerMode:     mode,
		TimeLimit:     limit,
	})
	require.NoError(t, err)
	return view
}

func (f *fixture) stored(t *testing.T, view *models.AttemptView) *models.TestAttempt {
	t.Helper()
	attempt, err := f.svc.load(ctx, f.db, f.student, view.ID)
	require.NoError(t, err)
	return attempt
}

func answer(q models.AttemptQuestionView, option string) models.AnswerUpdate {
	a := models.AnswerUpdate{QuestionID: q.QuestionID, TimeTaken: 5}
	if option != "" {
		a.SelectedOption = &option
	}
	return a
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func (f *fixture) seed(t *testing.T, n int) []models.Question {
	t.Helper()
	return testutil.SeedQuestions(t, f.db, f.catalog.Subject.ID, f.catalog.Topics[0].ID, models.DifficultyEasy, n)
}
