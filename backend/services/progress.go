package services

import (
	"context"
	"fmt"

	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaveProgress applies an incremental save. Answers are matched by question
// id, never by position, and unknown ids are skipped. Saving the same
// payload twice leaves the questions, the time snapshot and the cursor
// unchanged; only version moves forward, once per save.
func (s *AttemptService) SaveProgress(ctx context.Context, who models.Identity, id uuid.UUID, update models.ProgressUpdate) (*models.SaveResult, error) {
	var result models.SaveResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.load(ctx, tx, who, id)
		if err != nil {
			return err
		}
		if err := checkWritable(attempt); err != nil {
			return err
		}
		if update.ExpectedVersion != nil && *update.ExpectedVersion != attempt.Version {
			return utils.Conflictf("attempt was saved elsewhere (version %d, expected %d)", attempt.Version, *update.ExpectedVersion)
		}
		mode := attempt.Config.TimerMode
		if mode == models.TimerOverall && OverallRemaining(attempt, s.now()) == 0 {
			return utils.Conflictf("time is up, the attempt can only be submitted")
		}

		byQuestion := make(map[uuid.UUID]*models.AttemptQuestion, len(attempt.Questions))
		for i := range attempt.Questions {
			byQuestion[attempt.Questions[i].QuestionID] = &attempt.Questions[i]
		}
		for _, a := range update.Answers {
			aq, ok := byQuestion[a.QuestionID]
			if !ok {
				s.log.Debug("save references unknown question", "attempt_id", attempt.ID, "question_id", a.QuestionID)
				continue
			}
			if aq.Locked(mode) {
				continue
			}
			applyAnswer(aq, a)
			if err := tx.Model(&models.AttemptQuestion{}).Where("id = ?", aq.ID).Updates(map[string]interface{}{
				"status":          aq.Status,
				"selected_option": aq.SelectedOption,
				"time_taken":      aq.TimeTaken,
				"time_remaining":  aq.TimeRemaining,
			}).Error; err != nil {
				return fmt.Errorf("save attempt question: %w", err)
			}
		}

		changes := map[string]interface{}{"version": gorm.Expr("version + 1")}
		if update.SessionTimeRemaining != nil && mode == models.TimerOverall {
			changes["time_remaining"] = *update.SessionTimeRemaining
		}
		if update.CurrentIndex != nil && *update.CurrentIndex >= 0 && *update.CurrentIndex < len(attempt.Questions) {
			changes["last_question_index"] = *update.CurrentIndex
		}
		res := tx.Model(&models.TestAttempt{}).
			Where("id = ? AND version = ? AND status = ?", attempt.ID, attempt.Version, models.AttemptInProgress).
			Updates(changes)
		if res.Error != nil {
			return fmt.Errorf("save attempt: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.Conflictf("attempt changed during save")
		}
		result.Version = attempt.Version + 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func checkWritable(attempt *models.TestAttempt) error {
	switch attempt.Status {
	case models.AttemptInProgress:
		return nil
	case models.AttemptCompleted:
		return utils.Conflictf("attempt is already completed")
	default:
		return utils.Conflictf("attempt is %s", attempt.Status)
	}
}

// applyAnswer copies a into aq. A missing status is inferred from the
// selection.
func applyAnswer(aq *models.AttemptQuestion, a models.AnswerUpdate) {
	aq.SelectedOption = a.Selection()
	switch {
	case a.Status != "":
		aq.Status = a.Status
	case aq.SelectedOption != nil:
		aq.Status = models.QuestionAttempted
	default:
		aq.Status = models.QuestionUnattempted
	}
	aq.TimeTaken = a.TimeTaken
	if a.TimeRemaining != nil {
		v := *a.TimeRemaining
		aq.TimeRemaining = &v
	}
}
