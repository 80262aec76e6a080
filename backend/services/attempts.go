package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catprep/backend/config"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttemptService owns the lifecycle of test attempts: creation, reads,
// progress saves and the final submission.
type AttemptService struct {
	db       *gorm.DB
	selector *Selector
	cfg      *config.Config
	log      *utils.Logger
	now      func() time.Time
}

func NewAttemptService(db *gorm.DB, selector *Selector, cfg *config.Config, log *utils.Logger) *AttemptService {
	return &AttemptService{
		db:       db,
		selector: selector,
		cfg:      cfg,
		log:      log.With("service", "attempts"),
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *AttemptService) SetClock(now func() time.Time) { s.now = now }

func (s *AttemptService) configFor(req models.StartRequest) models.AttemptConfig {
	c := models.AttemptConfig{
		SubjectID:     req.SubjectID,
		TopicIDs:      dedupe(req.TopicIDs),
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
		TimerMode:     req.TimerMode,
		TimeLimit:     req.TimeLimit,
	}
	if c.Difficulty == "" {
		c.Difficulty = models.DifficultyMixed
	}
	if c.QuestionCount == 0 {
		c.QuestionCount = s.cfg.DefaultQuestionCount
	}
	if c.QuestionCount > s.cfg.MaxQuestionCount {
		c.QuestionCount = s.cfg.MaxQuestionCount
	}
	if c.TimerMode == "" {
		c.TimerMode = models.TimerOverall
	}
	if c.TimeLimit == 0 {
		c.TimeLimit = s.cfg.DefaultTimeLimit
	}
	return c
}

// Start selects questions and creates an in-progress attempt. Nothing is
// persisted when selection fails.
func (s *AttemptService) Start(ctx context.Context, who models.Identity, req models.StartRequest) (*models.AttemptView, error) {
	c := s.configFor(req)
	if !c.TimerMode.Valid() {
		return nil, utils.Validationf("timer mode %q must be overall or per_question", c.TimerMode)
	}
	if c.TimeLimit < 0 || c.QuestionCount < 0 {
		return nil, utils.Validationf("time limit and question count must be positive")
	}
	if err := s.db.WithContext(ctx).First(&models.Subject{}, "id = ?", c.SubjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundf("subject not found")
		}
		return nil, fmt.Errorf("load subject: %w", err)
	}

	questions, err := s.selector.Select(ctx, Criteria{
		SubjectID:  c.SubjectID,
		TopicIDs:   c.TopicIDs,
		Difficulty: c.Difficulty,
		Count:      c.QuestionCount,
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	attempt, err := s.create(ctx, who.UserID, c, ids)
	if err != nil {
		return nil, err
	}
	s.log.Info("attempt started", "attempt_id", attempt.ID, "user_id", who.UserID,
		"questions", len(ids), "timer_mode", c.TimerMode)
	return s.view(ctx, s.db, attempt)
}

// create persists a fresh attempt whose exam sequence is questionIDs in order.
func (s *AttemptService) create(ctx context.Context, userID uuid.UUID, c models.AttemptConfig, questionIDs []uuid.UUID) (*models.TestAttempt, error) {
	attempt := &models.TestAttempt{
		UserID:    userID,
		Status:    models.AttemptInProgress,
		Config:    c,
		StartedAt: s.now(),
		Questions: make([]models.AttemptQuestion, len(questionIDs)),
	}
	for i, id := range questionIDs {
		attempt.Questions[i] = models.NewAttemptQuestion(i, id)
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return attempt, nil
}

// load fetches an attempt with its questions in exam order and checks
// ownership.
func (s *AttemptService) load(ctx context.Context, tx *gorm.DB, who models.Identity, id uuid.UUID) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	err := tx.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&attempt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundf("attempt not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if !attempt.OwnedBy(who.UserID) {
		return nil, utils.Forbiddenf("attempt belongs to another user")
	}
	return &attempt, nil
}

// Get returns the attempt projection. Answers and solutions stay hidden until
// the attempt is completed.
func (s *AttemptService) Get(ctx context.Context, who models.Identity, id uuid.UUID) (*models.AttemptView, error) {
	attempt, err := s.load(ctx, s.db, who, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.db, attempt)
}

// Retake starts a new attempt over the same question sequence as id.
func (s *AttemptService) Retake(ctx context.Context, who models.Identity, id uuid.UUID) (*models.AttemptView, error) {
	source, err := s.load(ctx, s.db, who, id)
	if err != nil {
		return nil, err
	}
	c := source.Config
	c.TopicIDs = append(c.TopicIDs[:0:0], c.TopicIDs...)
	attempt, err := s.create(ctx, who.UserID, c, source.QuestionIDs())
	if err != nil {
		return nil, err
	}
	s.log.Info("attempt retaken", "attempt_id", attempt.ID, "source_id", source.ID, "user_id", who.UserID)
	return s.view(ctx, s.db, attempt)
}

// History lists the caller's attempts, newest first.
func (s *AttemptService) History(ctx context.Context, who models.Identity) ([]models.AttemptSummary, error) {
	var attempts []models.TestAttempt
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", who.UserID).
		Order("started_at DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if len(attempts) == 0 {
		return []models.AttemptSummary{}, nil
	}

	attemptIDs := make([]uuid.UUID, len(attempts))
	subjectIDs := make([]uuid.UUID, 0, len(attempts))
	for i, a := range attempts {
		attemptIDs[i] = a.ID
		subjectIDs = append(subjectIDs, a.Config.SubjectID)
	}
	names, err := subjectNames(ctx, s.db, subjectIDs)
	if err != nil {
		return nil, err
	}
	var counts []struct {
		AttemptID uuid.UUID
		N         int
	}
	if err := s.db.WithContext(ctx).Model(&models.AttemptQuestion{}).
		Select("attempt_id, count(*) AS n").
		Where("attempt_id IN ?", attemptIDs).
		Group("attempt_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count attempt questions: %w", err)
	}
	sizes := make(map[uuid.UUID]int, len(counts))
	for _, c := range counts {
		sizes[c.AttemptID] = c.N
	}

	out := make([]models.AttemptSummary, len(attempts))
	for i, a := range attempts {
		out[i] = models.AttemptSummary{
			ID:            a.ID,
			SubjectID:     a.Config.SubjectID,
			SubjectName:   names[a.Config.SubjectID],
			Status:        a.Status,
			TimerMode:     a.Config.TimerMode,
			QuestionCount: sizes[a.ID],
			StartedAt:     a.StartedAt,
			CompletedAt:   a.CompletedAt,
		}
		if a.Status == models.AttemptCompleted {
			score := a.Score
			out[i].Score = &score
		}
	}
	return out, nil
}

func (s *AttemptService) Delete(ctx context.Context, who models.Identity, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt, err := s.load(ctx, tx, who, id)
		if err != nil {
			return err
		}
		if err := tx.Where("attempt_id = ?", attempt.ID).Delete(&models.AttemptQuestion{}).Error; err != nil {
			return fmt.Errorf("delete attempt questions: %w", err)
		}
		if err := tx.Delete(&models.TestAttempt{}, "id = ?", attempt.ID).Error; err != nil {
			return fmt.Errorf("delete attempt: %w", err)
		}
		s.log.Info("attempt deleted", "attempt_id", attempt.ID, "user_id", who.UserID)
		return nil
	})
}

// Abort ends an in-progress attempt without scoring it.
func (s *AttemptService) Abort(ctx context.Context, who models.Identity, id uuid.UUID) error {
	attempt, err := s.load(ctx, s.db, who, id)
	if err != nil {
		return err
	}
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.TestAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       models.AttemptAborted,
			"completed_at": now,
			"version":      gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("abort attempt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.Conflictf("attempt is already %s", attempt.Status)
	}
	s.log.Info("attempt aborted", "attempt_id", attempt.ID, "user_id", who.UserID)
	return nil
}

// view builds the client projection of attempt.
func (s *AttemptService) view(ctx context.Context, db *gorm.DB, attempt *models.TestAttempt) (*models.AttemptView, error) {
	catalog, err := loadQuestions(ctx, db, attempt.QuestionIDs())
	if err != nil {
		return nil, err
	}
	reveal := attempt.Status == models.AttemptCompleted
	mode := attempt.Config.TimerMode

	v := &models.AttemptView{
		ID:                attempt.ID,
		UserID:            attempt.UserID,
		Status:            attempt.Status,
		Config:            attempt.Config,
		Questions:         make([]models.AttemptQuestionView, len(attempt.Questions)),
		StartedAt:         attempt.StartedAt,
		CompletedAt:       attempt.CompletedAt,
		TimeRemaining:     attempt.TimeRemaining,
		LastQuestionIndex: attempt.LastQuestionIndex,
		Version:           attempt.Version,
	}
	for i := range attempt.Questions {
		aq := &attempt.Questions[i]
		qv := models.AttemptQuestionView{
			QuestionID:     aq.QuestionID,
			Status:         aq.Status,
			SelectedOption: aq.SelectedOption,
			TimeTaken:      aq.TimeTaken,
			TimeRemaining:  aq.TimeRemaining,
			Locked:         aq.Locked(mode),
		}
		if reveal {
			qv.IsCorrect = aq.IsCorrect
		}
		if q, ok := catalog[aq.QuestionID]; ok {
			proj := models.NewQuestionView(q, reveal)
			qv.Question = &proj
		} else {
			qv.Missing = true
		}
		v.Questions[i] = qv
	}
	if attempt.Status == models.AttemptCompleted {
		score := attempt.Score
		v.Score = &score
	}
	if attempt.Status == models.AttemptInProgress && mode == models.TimerOverall {
		remaining := OverallRemaining(attempt, s.now())
		v.EffectiveTimeRemaining = &remaining
	}
	return v, nil
}

// OverallRemaining is the session countdown to resume from: the persisted
// snapshot when there is one, otherwise the limit minus the time elapsed
// since the start, never below zero.
func OverallRemaining(attempt *models.TestAttempt, now time.Time) int {
	if attempt.TimeRemaining != nil {
		return max(*attempt.TimeRemaining, 0)
	}
	elapsed := int(now.Sub(attempt.StartedAt) / time.Second)
	return max(attempt.Config.LimitSeconds()-elapsed, 0)
}

func loadQuestions(ctx context.Context, db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Question, error) {
	out := make(map[uuid.UUID]models.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var questions []models.Question
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	for _, q := range questions {
		out[q.ID] = q
	}
	return out, nil
}

func subjectNames(ctx context.Context, db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	var subjects []models.Subject
	if err := db.WithContext(ctx).Select("id", "name").Where("id IN ?", dedupe(ids)).Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	names := make(map[uuid.UUID]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.Name
	}
	return names, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
