package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catprep/backend/cache"
	"catprep/backend/config"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CatalogService manages subjects, topics and the question bank.
type CatalogService struct {
	db       *gorm.DB
	cache    cache.Cache
	selector *Selector
	cfg      *config.Config
	log      *utils.Logger
}

func NewCatalogService(db *gorm.DB, c cache.Cache, selector *Selector, cfg *config.Config, log *utils.Logger) *CatalogService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CatalogService{db: db, cache: c, selector: selector, cfg: cfg, log: log.With("service", "catalog")}
}

func (s *CatalogService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if ok, err := s.cache.Get(ctx, cache.SubjectsKey(), &subjects); err != nil {
		s.log.Warn("catalog cache read failed", "key", cache.SubjectsKey(), "error", err)
	} else if ok {
		return subjects, nil
	}

	if err := s.db.WithContext(ctx).Order("sort_order").Order("name").Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	s.store(ctx, cache.SubjectsKey(), subjects)
	return subjects, nil
}

// ListTopics returns a subject's topics by name, without the hidden ones.
func (s *CatalogService) ListTopics(ctx context.Context, subjectID uuid.UUID) ([]models.Topic, error) {
	key := cache.TopicsKey(subjectID.String())
	var topics []models.Topic
	if ok, err := s.cache.Get(ctx, key, &topics); err != nil {
		s.log.Warn("catalog cache read failed", "key", key, "error", err)
	} else if ok {
		return topics, nil
	}

	if _, err := s.subject(ctx, s.db, subjectID); err != nil {
		return nil, err
	}
	var all []models.Topic
	if err := s.db.WithContext(ctx).Where("subject_id = ?", subjectID).Order("name").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	topics = make([]models.Topic, 0, len(all))
	for _, t := range all {
		if !s.hidden(t.Name) {
			topics = append(topics, t)
		}
	}
	s.store(ctx, key, topics)
	return topics, nil
}

func (s *CatalogService) hidden(name string) bool {
	for _, h := range s.cfg.HiddenTopics {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

func (s *CatalogService) store(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v, s.cfg.CatalogCacheTTL); err != nil {
		s.log.Warn("catalog cache write failed", "key", key, "error", err)
	}
}

func (s *CatalogService) invalidate(ctx context.Context, subjectIDs ...uuid.UUID) {
	keys := []string{cache.SubjectsKey()}
	for _, id := range subjectIDs {
		keys = append(keys, cache.TopicsKey(id.String()))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("catalog cache invalidation failed", "error", err)
	}
}

func (s *CatalogService) subject(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Subject, error) {
	var subject models.Subject
	err := db.WithContext(ctx).First(&subject, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundf("subject not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load subject: %w", err)
	}
	return &subject, nil
}

func (s *CatalogService) CreateSubject(ctx context.Context, in models.SubjectInput) (*models.Subject, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, utils.Validationf("subject name is required")
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Subject{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check subject: %w", err)
	}
	if n > 0 {
		return nil, utils.Conflictf("subject %q already exists", name)
	}
	subject := &models.Subject{
		Name:   name,
		Slug:   slug.Make(name),
		Status: in.Status,
		Icon:   in.Icon,
		Order:  in.Order,
	}
	if err := s.db.WithContext(ctx).Create(subject).Error; err != nil {
		return nil, fmt.Errorf("create subject: %w", err)
	}
	s.invalidate(ctx)
	return subject, nil
}

func (s *CatalogService) CreateTopic(ctx context.Context, in models.TopicInput) (*models.Topic, error) {
	var topic *models.Topic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		topic, err = s.createTopic(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, topic.SubjectID)
	return topic, nil
}

func (s *CatalogService) createTopic(ctx context.Context, tx *gorm.DB, in models.TopicInput) (*models.Topic, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, utils.Validationf("topic name is required")
	}
	if _, err := s.subject(ctx, tx, in.SubjectID); err != nil {
		return nil, err
	}
	level := 0
	scope := tx.WithContext(ctx).Model(&models.Topic{}).Where("subject_id = ? AND LOWER(name) = ?", in.SubjectID, strings.ToLower(name))
	if in.ParentTopicID != nil {
		var parent models.Topic
		err := tx.WithContext(ctx).First(&parent, "id = ? AND subject_id = ?", *in.ParentTopicID, in.SubjectID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundf("parent topic not found in subject")
		}
		if err != nil {
			return nil, fmt.Errorf("load parent topic: %w", err)
		}
		level = parent.Level + 1
		scope = scope.Where("parent_topic_id = ?", parent.ID)
	} else {
		scope = scope.Where("parent_topic_id IS NULL")
	}
	var n int64
	if err := scope.Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check topic: %w", err)
	}
	if n > 0 {
		return nil, utils.Conflictf("topic %q already exists here", name)
	}
	topic := &models.Topic{
		Name:          name,
		Slug:          slug.Make(name),
		SubjectID:     in.SubjectID,
		ParentTopicID: in.ParentTopicID,
		Level:         level,
	}
	if err := tx.WithContext(ctx).Create(topic).Error; err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return topic, nil
}

// EnsureSubject returns the subject named in.Name, creating it when absent.
func (s *CatalogService) EnsureSubject(ctx context.Context, in models.SubjectInput) (*models.Subject, bool, error) {
	var found models.Subject
	err := s.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(in.Name))).First(&found).Error
	if err == nil {
		return &found, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load subject: %w", err)
	}
	created, err := s.CreateSubject(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// EnsureTopic returns the topic named in.Name under the same subject and
// parent, creating it when absent.
func (s *CatalogService) EnsureTopic(ctx context.Context, in models.TopicInput) (*models.Topic, bool, error) {
	q := s.db.WithContext(ctx).Where("subject_id = ? AND LOWER(name) = ?", in.SubjectID, strings.ToLower(strings.TrimSpace(in.Name)))
	if in.ParentTopicID != nil {
		q = q.Where("parent_topic_id = ?", *in.ParentTopicID)
	} else {
		q = q.Where("parent_topic_id IS NULL")
	}
	var found models.Topic
	err := q.First(&found).Error
	if err == nil {
		return &found, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load topic: %w", err)
	}
	created, err := s.CreateTopic(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// HasQuestion reports whether the subject already holds a question with text.
func (s *CatalogService) HasQuestion(ctx context.Context, subjectID uuid.UUID, text string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("subject_id = ? AND text = ?", subjectID, strings.TrimSpace(text)).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check question: %w", err)
	}
	return n > 0, nil
}

type QuestionFilter struct {
	SubjectID  *uuid.UUID
	TopicID    *uuid.UUID
	Difficulty models.Difficulty
}

func (s *CatalogService) ListQuestions(ctx context.Context, f QuestionFilter) ([]models.AdminQuestion, error) {
	q := s.db.WithContext(ctx).Model(&models.Question{})
	if f.SubjectID != nil {
		q = q.Where("subject_id = ?", *f.SubjectID)
	}
	if f.TopicID != nil {
		q = q.Where("topic_id = ?", *f.TopicID)
	}
	if f.Difficulty != "" && f.Difficulty != models.DifficultyMixed {
		q = q.Where("difficulty = ?", f.Difficulty)
	}
	var questions []models.Question
	if err := q.Order("created_at DESC").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	subjectIDs := make([]uuid.UUID, 0, len(questions))
	topicIDs := make([]uuid.UUID, 0, len(questions))
	for _, question := range questions {
		subjectIDs = append(subjectIDs, question.SubjectID)
		topicIDs = append(topicIDs, question.TopicID)
	}
	subjects, err := subjectNames(ctx, s.db, subjectIDs)
	if err != nil {
		return nil, err
	}
	var topics []models.Topic
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", dedupe(topicIDs)).Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	topicNames := make(map[uuid.UUID]string, len(topics))
	for _, t := range topics {
		topicNames[t.ID] = t.Name
	}

	out := make([]models.AdminQuestion, len(questions))
	for i, question := range questions {
		out[i] = models.AdminQuestion{
			Question:    question,
			SubjectName: subjects[question.SubjectID],
			TopicName:   topicNames[question.TopicID],
		}
	}
	return out, nil
}

func (s *CatalogService) checkPlacement(ctx context.Context, db *gorm.DB, subjectID, topicID uuid.UUID) error {
	var topic models.Topic
	err := db.WithContext(ctx).First(&topic, "id = ?", topicID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFoundf("topic not found")
	}
	if err != nil {
		return fmt.Errorf("load topic: %w", err)
	}
	if topic.SubjectID != subjectID {
		return utils.Validationf("topic %q does not belong to the subject", topic.Name)
	}
	return nil
}

func questionFrom(in models.QuestionInput) models.Question {
	return models.Question{
		Text:          strings.TrimSpace(in.Text),
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Solution:      in.Solution,
		Difficulty:    in.Difficulty,
		TopicID:       in.TopicID,
		SubjectID:     in.SubjectID,
		Tags:          in.Tags,
	}
}

func invalidQuestion(err error) error {
	return &utils.AppError{Kind: utils.KindValidation, Message: "invalid question", Err: err}
}

func (s *CatalogService) CreateQuestion(ctx context.Context, in models.QuestionInput) (*models.Question, error) {
	q := questionFrom(in)
	if err := q.Validate(); err != nil {
		return nil, invalidQuestion(err)
	}
	if err := s.checkPlacement(ctx, s.db, q.SubjectID, q.TopicID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	s.log.Info("question created", "question_id", q.ID, "subject_id", q.SubjectID)
	return &q, nil
}

// UpdateQuestion replaces a question's content. Running attempts read the
// new content; their sequence is unaffected.
func (s *CatalogService) UpdateQuestion(ctx context.Context, id uuid.UUID, in models.QuestionInput) (*models.Question, error) {
	var existing models.Question
	err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundf("question not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	q := questionFrom(in)
	q.ID = existing.ID
	q.CreatedAt = existing.CreatedAt
	if err := q.Validate(); err != nil {
		return nil, invalidQuestion(err)
	}
	if err := s.checkPlacement(ctx, s.db, q.SubjectID, q.TopicID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&q).Error; err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return &q, nil
}

// DeleteQuestion removes a question from the bank. Attempts that drew it keep
// their rows and drop it from scoring.
func (s *CatalogService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Question{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete question: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.NotFoundf("question not found")
	}
	s.log.Info("question deleted", "question_id", id)
	return nil
}

// ImportQuestions adds rows that name their subject and topic. The subject
// must exist; a topic is matched case-insensitively within the subject and
// created at the top level if absent. Any bad row rejects the whole batch.
func (s *CatalogService) ImportQuestions(ctx context.Context, rows []models.QuestionImport) (*models.ImportResult, error) {
	if len(rows) == 0 {
		return nil, utils.Validationf("no questions to import")
	}
	touched := map[uuid.UUID]struct{}{}
	var rowErrs []models.ImportError
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subjects := map[string]*models.Subject{}
		topics := map[string]*models.Topic{}
		questions := make([]models.Question, 0, len(rows))

		for i, row := range rows {
			fail := func(format string, args ...interface{}) {
				rowErrs = append(rowErrs, models.ImportError{Row: i + 1, Error: fmt.Sprintf(format, args...)})
			}
			subjectKey := strings.ToLower(strings.TrimSpace(row.Subject))
			subject, ok := subjects[subjectKey]
			if !ok {
				var found models.Subject
				err := tx.Where("LOWER(name) = ?", subjectKey).First(&found).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					fail("subject %q not found", row.Subject)
					continue
				}
				if err != nil {
					return fmt.Errorf("load subject: %w", err)
				}
				subject = &found
				subjects[subjectKey] = subject
			}

			topicName := strings.TrimSpace(row.Topic)
			if topicName == "" {
				fail("topic is required")
				continue
			}
			topicKey := subject.ID.String() + "/" + strings.ToLower(topicName)
			topic, ok := topics[topicKey]
			if !ok {
				var found models.Topic
				err := tx.Where("subject_id = ? AND LOWER(name) = ?", subject.ID, strings.ToLower(topicName)).
					Order("level").First(&found).Error
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					created, cerr := s.createTopic(ctx, tx, models.TopicInput{Name: topicName, SubjectID: subject.ID})
					if cerr != nil {
						return cerr
					}
					topic = created
					touched[subject.ID] = struct{}{}
				case err != nil:
					return fmt.Errorf("load topic: %w", err)
				default:
					topic = &found
				}
				topics[topicKey] = topic
			}

			q := models.Question{
				Text:          strings.TrimSpace(row.Text),
				Options:       row.Options,
				CorrectAnswer: row.CorrectAnswer,
				Solution:      row.Solution,
				Difficulty:    row.Difficulty,
				SubjectID:     subject.ID,
				TopicID:       topic.ID,
				Tags:          row.Tags,
			}
			if q.Difficulty == "" {
				q.Difficulty = models.DifficultyMedium
			}
			if err := q.Validate(); err != nil {
				fail("%s", strings.ReplaceAll(err.Error(), "\n", "; "))
				continue
			}
			questions = append(questions, q)
		}
		if len(rowErrs) > 0 {
			return &utils.AppError{Kind: utils.KindValidation, Message: fmt.Sprintf("%d of %d rows are invalid", len(rowErrs), len(rows)), Details: rowErrs}
		}
		if err := tx.CreateInBatches(&questions, 100).Error; err != nil {
			return fmt.Errorf("import questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	s.invalidate(ctx, ids...)
	s.log.Info("questions imported", "count", len(rows))
	return &models.ImportResult{Imported: len(rows)}, nil
}

// ValidateAnswer checks one selection outside of any attempt.
func (s *CatalogService) ValidateAnswer(ctx context.Context, req models.ValidateAnswerRequest) (*models.ValidateAnswerResult, error) {
	var q models.Question
	err := s.db.WithContext(ctx).First(&q, "id = ?", req.QuestionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundf("question not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	if !q.HasOption(req.SelectedOption) {
		return nil, utils.Validationf("option %q is not one of the question's options", req.SelectedOption)
	}
	return &models.ValidateAnswerResult{
		IsCorrect:     req.SelectedOption == q.CorrectAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Solution:      q.Solution,
	}, nil
}

// Generate previews a selection without creating an attempt. Answers are
// redacted.
func (s *CatalogService) Generate(ctx context.Context, req models.GenerateRequest) ([]models.QuestionView, error) {
	c := Criteria{
		SubjectID:  req.SubjectID,
		TopicIDs:   dedupe(req.TopicIDs),
		Difficulty: req.Difficulty,
		Count:      req.Count,
	}
	if c.Difficulty == "" {
		c.Difficulty = models.DifficultyMixed
	}
	if c.Count == 0 {
		c.Count = s.cfg.DefaultQuestionCount
	}
	c.Count = min(c.Count, s.cfg.MaxQuestionCount)
	questions, err := s.selector.Select(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make([]models.QuestionView, len(questions))
	for i, q := range questions {
		out[i] = models.NewQuestionView(q, false)
	}
	return out, nil
}
