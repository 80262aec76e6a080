package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatsService struct {
	db  *gorm.DB
	log *utils.Logger
	now func() time.Time
}

func NewStatsService(db *gorm.DB, log *utils.Logger) *StatsService {
	return &StatsService{db: db, log: log.With("service", "stats"), now: time.Now}
}

func (s *StatsService) Admin(ctx context.Context) (*models.AdminStats, error) {
	var st models.AdminStats
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleStudent).Count(&st.Students).Error; err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	if err := db.Model(&models.Question{}).Count(&st.Questions).Error; err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if err := db.Model(&models.TestAttempt{}).Where("status = ?", models.AttemptInProgress).Count(&st.ActiveAttempts).Error; err != nil {
		return nil, fmt.Errorf("count active attempts: %w", err)
	}
	if err := db.Model(&models.TestAttempt{}).Where("status = ?", models.AttemptCompleted).Count(&st.CompletedAttempts).Error; err != nil {
		return nil, fmt.Errorf("count completed attempts: %w", err)
	}
	return &st, nil
}

// Overview summarizes the caller's attempts. Accuracy and scores only count
// completed attempts.
func (s *StatsService) Overview(ctx context.Context, who models.Identity) (*models.ProgressOverview, error) {
	var attempts []models.TestAttempt
	if err := s.db.WithContext(ctx).Where("user_id = ?", who.UserID).Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	o := &models.ProgressOverview{TestsTaken: len(attempts), Subjects: []models.SubjectProgress{}}
	weekAgo := s.now().AddDate(0, 0, -7)
	bySubject := map[uuid.UUID]*models.SubjectProgress{}
	var correct, incorrect, totalScore int
	subjectIDs := make([]uuid.UUID, 0, len(attempts))

	for _, a := range attempts {
		if a.StartedAt.After(weekAgo) {
			o.TestsLastWeek++
		}
		switch a.Status {
		case models.AttemptInProgress:
			o.TestsInProgress++
			continue
		case models.AttemptCompleted:
		default:
			continue
		}
		o.TestsCompleted++
		correct += a.Score.Correct
		incorrect += a.Score.Incorrect
		totalScore += a.Score.Total

		sp, ok := bySubject[a.Config.SubjectID]
		if !ok {
			sp = &models.SubjectProgress{SubjectID: a.Config.SubjectID}
			bySubject[a.Config.SubjectID] = sp
			subjectIDs = append(subjectIDs, a.Config.SubjectID)
		}
		sp.Attempts++
		sp.Correct += a.Score.Correct
		sp.Incorrect += a.Score.Incorrect
	}
	o.QuestionsAnswered = correct + incorrect
	o.AverageAccuracy = models.Accuracy(correct, incorrect)
	if o.TestsCompleted > 0 {
		o.AverageScore = float64(totalScore) / float64(o.TestsCompleted)
	}
	if len(subjectIDs) == 0 {
		return o, nil
	}

	names, err := subjectNames(ctx, s.db, subjectIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range subjectIDs {
		sp := bySubject[id]
		sp.SubjectName = names[id]
		sp.Accuracy = models.Accuracy(sp.Correct, sp.Incorrect)
		o.Subjects = append(o.Subjects, *sp)
	}
	sort.SliceStable(o.Subjects, func(i, j int) bool {
		if o.Subjects[i].Attempts != o.Subjects[j].Attempts {
			return o.Subjects[i].Attempts > o.Subjects[j].Attempts
		}
		return o.Subjects[i].SubjectName < o.Subjects[j].SubjectName
	})
	return o, nil
}
