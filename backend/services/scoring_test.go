package services

import (
	"testing"

	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradingFixture(n int) ([]models.AttemptQuestion, map[uuid.UUID]models.Question) {
	seq := make([]models.AttemptQuestion, n)
	catalog := make(map[uuid.UUID]models.Question, n)
	for i := range seq {
		id := uuid.New()
		seq[i] = models.NewAttemptQuestion(i, id)
		catalog[id] = models.Question{ID: id, CorrectAnswer: "a"}
	}
	return seq, catalog
}

func TestGradeMarkingScheme(t *testing.T) {
	seq, catalog := gradingFixture(4)
	answers := []models.AnswerUpdate{
		{QuestionID: seq[0].QuestionID, SelectedOption: strPtr("a")},
		{QuestionID: seq[1].QuestionID, SelectedOption: strPtr("b")},
		{QuestionID: seq[2].QuestionID, SelectedOption: strPtr("c")},
		{QuestionID: seq[3].QuestionID, Status: models.QuestionSkipped},
	}

	g := Grade(models.TimerOverall, seq, answers, catalog)
	assert.Equal(t, models.Score{Total: 1, Correct: 1, Incorrect: 2, Skipped: 1}, g.Score)
	assert.True(t, g.Questions[0].IsCorrect)
	assert.Equal(t, models.QuestionAttempted, g.Questions[1].Status)
	assert.Equal(t, models.QuestionUnattempted, g.Questions[3].Status)
}

func TestGradeIsOrderIndependent(t *testing.T) {
	seq, catalog := gradingFixture(5)
	answers := []models.AnswerUpdate{
		{QuestionID: seq[0].QuestionID, SelectedOption: strPtr("a")},
		{QuestionID: seq[2].QuestionID, SelectedOption: strPtr("d")},
		{QuestionID: seq[3].QuestionID, SelectedOption: strPtr("a")},
	}
	reversed := []models.AnswerUpdate{answers[2], answers[1], answers[0]}

	a := Grade(models.TimerOverall, seq, answers, catalog)
	b := Grade(models.TimerOverall, seq, reversed, catalog)
	assert.Equal(t, a, b)
	assert.Equal(t, models.Score{Total: 5, Correct: 2, Incorrect: 1, Skipped: 2}, a.Score)
	assert.Len(t, a.Questions, 5)
}

func TestGradeFallsBackToSavedState(t *testing.T) {
	seq, catalog := gradingFixture(2)
	seq[1].SelectedOption = strPtr("a")
	seq[1].Status = models.QuestionAttempted

	g := Grade(models.TimerOverall, seq, nil, catalog)
	assert.Equal(t, models.Score{Total: 3, Correct: 1, Incorrect: 0, Skipped: 1}, g.Score)
}

func TestGradeExcludesMissingQuestions(t *testing.T) {
	seq, catalog := gradingFixture(3)
	delete(catalog, seq[1].QuestionID)
	answers := []models.AnswerUpdate{
		{QuestionID: seq[0].QuestionID, SelectedOption: strPtr("a")},
		{QuestionID: seq[1].QuestionID, SelectedOption: strPtr("a")},
	}

	g := Grade(models.TimerOverall, seq, answers, catalog)
	assert.Equal(t, []uuid.UUID{seq[1].QuestionID}, g.Missing)
	assert.Equal(t, models.Score{Total: 3, Correct: 1, Incorrect: 0, Skipped: 1}, g.Score)
	assert.False(t, g.Questions[1].IsCorrect)
}

// Three questions, overall mode, one minute: right, wrong, unanswered.
func TestSubmitOverallScenario(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 3)
	view := f.start(t, models.TimerOverall, 1, 3)

	res, err := f.svc.Submit(ctx, f.student, view.ID, []models.AnswerUpdate{
		answer(view.Questions[1], "b"),
		answer(view.Questions[0], "a"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Score{Total: 2, Correct: 1, Incorrect: 1, Skipped: 1}, res.Score)
	assert.Equal(t, models.AttemptCompleted, res.Attempt.Status)
	require.NotNil(t, res.Attempt.CompletedAt)

	stored := f.stored(t, view)
	assert.Equal(t, res.Score, stored.Score)
	assert.True(t, stored.Questions[0].IsCorrect)
	assert.False(t, stored.Questions[1].IsCorrect)
	assert.Equal(t, models.QuestionAttempted, stored.Questions[1].Status)
	assert.Equal(t, models.QuestionUnattempted, stored.Questions[2].Status)
}

func TestResubmitConflicts(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2)
	view := f.start(t, models.TimerOverall, 5, 2)

	first, err := f.svc.Submit(ctx, f.student, view.ID, []models.AnswerUpdate{answer(view.Questions[0], "a")})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.student, view.ID, []models.AnswerUpdate{
		answer(view.Questions[0], "a"),
		answer(view.Questions[1], "a"),
	})
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
	assert.Equal(t, first.Score, f.stored(t, view).Score)
}

func TestSubmitRejections(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2)
	view := f.start(t, models.TimerOverall, 5, 2)

	_, err := f.svc.Submit(ctx, f.intruder, view.ID, nil)
	assert.Equal(t, utils.KindForbidden, utils.KindOf(err))

	dup := answer(view.Questions[0], "a")
	_, err = f.svc.Submit(ctx, f.student, view.ID, []models.AnswerUpdate{dup, dup})
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
}

func TestSubmitSkipsDeletedQuestion(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 2)
	view := f.start(t, models.TimerOverall, 5, 2)
	require.NoError(t, f.db.Delete(&models.Question{}, "id = ?", view.Questions[1].QuestionID).Error)

	res, err := f.svc.Submit(ctx, f.student, view.ID, []models.AnswerUpdate{
		answer(view.Questions[0], "a"),
		answer(view.Questions[1], "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.Score{Total: 3, Correct: 1}, res.Score)
	require.Len(t, res.Attempt.Questions, 2)
	assert.True(t, res.Attempt.Questions[1].Missing)
}
