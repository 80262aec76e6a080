package services

import (
	"context"
	"fmt"

	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Marking scheme.
const (
	PointsCorrect   = 3
	PointsIncorrect = -1
)

// Grading is the outcome of scoring an attempt's question sequence.
type Grading struct {
	Score     models.Score
	Questions []models.AttemptQuestion
	// Missing lists questions no longer in the catalog. They are left out of
	// the score.
	Missing []uuid.UUID
}

// Grade scores every question of the sequence exactly once. answers overrides
// the saved state of the questions it names, except for locked ones; catalog
// supplies the correct answers.
func Grade(mode models.TimerMode, sequence []models.AttemptQuestion, answers []models.AnswerUpdate, catalog map[uuid.UUID]models.Question) Grading {
	byQuestion := make(map[uuid.UUID]models.AnswerUpdate, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	g := Grading{Questions: make([]models.AttemptQuestion, len(sequence))}
	for i, aq := range sequence {
		if a, ok := byQuestion[aq.QuestionID]; ok && !aq.Locked(mode) {
			applyAnswer(&aq, a)
		}
		aq.IsCorrect = false

		q, ok := catalog[aq.QuestionID]
		switch {
		case !ok:
			g.Missing = append(g.Missing, aq.QuestionID)
			if aq.SelectedOption != nil {
				aq.Status = models.QuestionAttempted
			} else {
				aq.Status = models.QuestionUnattempted
			}
		case aq.SelectedOption != nil:
			aq.Status = models.QuestionAttempted
			aq.IsCorrect = *aq.SelectedOption == q.CorrectAnswer
			if aq.IsCorrect {
				g.Score.Correct++
			} else {
				g.Score.Incorrect++
			}
		default:
			aq.Status = models.QuestionUnattempted
			g.Score.Skipped++
		}
		g.Questions[i] = aq
	}
	g.Score.Total = PointsCorrect*g.Score.Correct + PointsIncorrect*g.Score.Incorrect
	return g
}

// Submit scores and completes the attempt. It succeeds at most once per
// attempt; later calls get a Conflict and leave the stored score alone.
func (s *AttemptService) Submit(ctx context.Context, who models.Identity, id uuid.UUID, answers []models.AnswerUpdate) (*models.SubmitResult, error) {
	seen := make(map[uuid.UUID]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			return nil, utils.Validationf("question %s is answered more than once", a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
	}

	var completed *models.TestAttempt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.load(ctx, tx, who, id)
		if err != nil {
			return err
		}
		if err := checkWritable(attempt); err != nil {
			return err
		}
		catalog, err := loadQuestions(ctx, tx, attempt.QuestionIDs())
		if err != nil {
			return err
		}

		g := Grade(attempt.Config.TimerMode, attempt.Questions, answers, catalog)
		for _, qid := range g.Missing {
			s.log.Warn("question missing from catalog, excluded from score",
				"attempt_id", attempt.ID, "question_id", qid)
		}

		now := s.now()
		res := tx.Model(&models.TestAttempt{}).
			Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":          models.AttemptCompleted,
				"completed_at":    now,
				"score_total":     g.Score.Total,
				"score_correct":   g.Score.Correct,
				"score_incorrect": g.Score.Incorrect,
				"score_skipped":   g.Score.Skipped,
				"version":         gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("complete attempt: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.Conflictf("attempt is already completed")
		}

		for _, aq := range g.Questions {
			if err := tx.Model(&models.AttemptQuestion{}).Where("id = ?", aq.ID).Updates(map[string]interface{}{
				"status":          aq.Status,
				"selected_option": aq.SelectedOption,
				"is_correct":      aq.IsCorrect,
				"time_taken":      aq.TimeTaken,
				"time_remaining":  aq.TimeRemaining,
			}).Error; err != nil {
				return fmt.Errorf("save graded question: %w", err)
			}
		}

		attempt.Status = models.AttemptCompleted
		attempt.CompletedAt = &now
		attempt.Score = g.Score
		attempt.Questions = g.Questions
		attempt.Version++
		completed = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("attempt submitted", "attempt_id", completed.ID, "user_id", who.UserID,
		"total", completed.Score.Total, "correct", completed.Score.Correct,
		"incorrect", completed.Score.Incorrect, "skipped", completed.Score.Skipped)
	view, err := s.view(ctx, s.db, completed)
	if err != nil {
		return nil, err
	}
	return &models.SubmitResult{Score: completed.Score, Attempt: view}, nil
}
