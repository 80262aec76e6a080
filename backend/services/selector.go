package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Criteria struct {
	SubjectID  uuid.UUID
	TopicIDs   []uuid.UUID
	Difficulty models.Difficulty
	Count      int
}

func (c Criteria) validate() error {
	if c.SubjectID == uuid.Nil {
		return utils.Validationf("subject is required")
	}
	if len(c.TopicIDs) == 0 {
		return utils.Validationf("at least one topic is required")
	}
	if !c.Difficulty.ValidFilter() {
		return utils.Validationf("difficulty %q must be easy, medium, hard or mixed", c.Difficulty)
	}
	if c.Count <= 0 {
		return utils.Validationf("question count must be positive")
	}
	return nil
}

// Selector draws a uniform random sample, without replacement, from the
// questions matching a criteria.
type Selector struct {
	db *gorm.DB

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector uses rng for sampling; nil seeds one from the clock.
func NewSelector(db *gorm.DB, rng *rand.Rand) *Selector {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Selector{db: db, rng: rng}
}

func (s *Selector) Select(ctx context.Context, c Criteria) ([]models.Question, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("subject_id = ? AND topic_id IN ?", c.SubjectID, c.TopicIDs)
	if c.Difficulty != models.DifficultyMixed {
		q = q.Where("difficulty = ?", c.Difficulty)
	}
	var ids []uuid.UUID
	if err := q.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("select question ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, utils.InsufficientContentf("no questions match the selected subject, topics and difficulty")
	}

	picked := s.sample(ids, c.Count)

	var questions []models.Question
	if err := s.db.WithContext(ctx).Where("id IN ?", picked).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[uuid.UUID]models.Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}
	out := make([]models.Question, 0, len(picked))
	for _, id := range picked {
		// deleted between the two queries
		if question, ok := byID[id]; ok {
			out = append(out, question)
		}
	}
	if len(out) == 0 {
		return nil, utils.InsufficientContentf("no questions match the selected subject, topics and difficulty")
	}
	return out, nil
}

// sample runs a partial Fisher-Yates shuffle over ids and returns the first
// min(n, len(ids)) elements.
func (s *Selector) sample(ids []uuid.UUID, n int) []uuid.UUID {
	if n > len(ids) {
		n = len(ids)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids[:n]
}
