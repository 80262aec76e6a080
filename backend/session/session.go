// Package session drives one attempt on the client side: the countdowns,
// question locking and navigation, and the payloads sent to the server.
//
// Session holds no goroutines or clocks. Every change happens through a
// method call and reports what the caller must do next through a
// Transition. Runner adds the ticker and the network.
package session

import (
	"errors"

	"catprep/backend/models"

	"github.com/google/uuid"
)

var (
	ErrFinished   = errors.New("session: attempt is finished")
	ErrExpired    = errors.New("session: time is up")
	ErrLocked     = errors.New("session: question is locked")
	ErrOutOfRange = errors.New("session: no such question")
)

// Transition tells the driver which side effects a state change requires.
type Transition struct {
	// Persist asks for an immediate progress save.
	Persist bool
	// AutoSubmit asks for submission once in-flight state has settled.
	AutoSubmit bool
	// Advanced is set when an expired question moved the cursor forward.
	Advanced bool
}

type Question struct {
	ID        uuid.UUID
	Selected  *string
	Status    models.QuestionStatus
	TimeTaken int
	// TimeRemaining is the question's own countdown snapshot in
	// per_question mode, nil until the question is first left.
	TimeRemaining *int
}

type Session struct {
	attemptID uuid.UUID
	mode      models.TimerMode
	limit     int
	questions []Question
	current   int
	// remaining is the running countdown: the whole attempt in overall
	// mode, the current question in per_question mode.
	remaining int
	expired   bool
	finished  bool
}

// Restore rebuilds a session from the server's projection of an attempt.
func Restore(v *models.AttemptView) (*Session, error) {
	if v.Status != models.AttemptInProgress {
		return nil, ErrFinished
	}
	s := &Session{
		attemptID: v.ID,
		mode:      v.Config.TimerMode,
		limit:     v.Config.LimitSeconds(),
		questions: make([]Question, len(v.Questions)),
	}
	for i, q := range v.Questions {
		s.questions[i] = Question{
			ID:            q.QuestionID,
			Selected:      copyString(q.SelectedOption),
			Status:        q.Status,
			TimeTaken:     q.TimeTaken,
			TimeRemaining: copyInt(q.TimeRemaining),
		}
	}
	if len(s.questions) == 0 {
		s.expired = true
		return s, nil
	}
	if v.LastQuestionIndex >= 0 && v.LastQuestionIndex < len(s.questions) {
		s.current = v.LastQuestionIndex
	}

	switch s.mode {
	case models.TimerPerQuestion:
		if s.Locked(s.current) {
			next, ok := s.nextUnlocked(s.current)
			if !ok {
				s.expired = true
				return s, nil
			}
			s.current = next
		}
		s.remaining = s.loadRemaining(s.current)
	default:
		switch {
		case v.EffectiveTimeRemaining != nil:
			s.remaining = *v.EffectiveTimeRemaining
		case v.TimeRemaining != nil:
			s.remaining = *v.TimeRemaining
		default:
			s.remaining = s.limit
		}
		if s.remaining <= 0 {
			s.remaining = 0
			s.expired = true
		}
	}
	return s, nil
}

func (s *Session) AttemptID() uuid.UUID   { return s.attemptID }
func (s *Session) Mode() models.TimerMode { return s.mode }
func (s *Session) Current() int           { return s.current }
func (s *Session) Remaining() int         { return s.remaining }
func (s *Session) Len() int               { return len(s.questions) }

// Expired reports whether time ran out and the attempt now waits for
// submission.
func (s *Session) Expired() bool  { return s.expired }
func (s *Session) Finished() bool { return s.finished }

// Question returns a copy of question i.
func (s *Session) Question(i int) (Question, bool) {
	if i < 0 || i >= len(s.questions) {
		return Question{}, false
	}
	q := s.questions[i]
	q.Selected = copyString(q.Selected)
	q.TimeRemaining = copyInt(q.TimeRemaining)
	return q, true
}

// Locked reports whether question i ran out of time. Only per_question
// sessions lock.
func (s *Session) Locked(i int) bool {
	if s.mode != models.TimerPerQuestion || i < 0 || i >= len(s.questions) {
		return false
	}
	tr := s.questions[i].TimeRemaining
	return tr != nil && *tr == 0
}

// Tick advances the clock by one second.
func (s *Session) Tick() Transition {
	if s.finished || s.expired {
		return Transition{}
	}
	s.questions[s.current].TimeTaken++
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return Transition{}
	}

	if s.mode != models.TimerPerQuestion {
		s.expired = true
		return Transition{Persist: true, AutoSubmit: true}
	}

	zero := 0
	s.questions[s.current].TimeRemaining = &zero
	next, ok := s.nextUnlocked(s.current)
	if !ok {
		s.expired = true
		return Transition{Persist: true, AutoSubmit: true}
	}
	s.current = next
	s.remaining = s.loadRemaining(next)
	return Transition{Persist: true, Advanced: true}
}

// Navigate moves to question i. In per_question mode the countdown of the
// question being left is snapshotted, the target's countdown resumes, and
// the move must be persisted immediately. Locked questions cannot be
// entered or crossed going backward.
func (s *Session) Navigate(i int) (Transition, error) {
	if err := s.writable(); err != nil {
		return Transition{}, err
	}
	if i < 0 || i >= len(s.questions) {
		return Transition{}, ErrOutOfRange
	}
	if i == s.current {
		return Transition{}, nil
	}
	if s.mode != models.TimerPerQuestion {
		s.current = i
		return Transition{}, nil
	}

	if s.Locked(i) {
		return Transition{}, ErrLocked
	}
	for j := i; j < s.current; j++ {
		if s.Locked(j) {
			return Transition{}, ErrLocked
		}
	}
	left := s.remaining
	s.questions[s.current].TimeRemaining = &left
	s.current = i
	s.remaining = s.loadRemaining(i)
	return Transition{Persist: true}, nil
}

func (s *Session) Next() (Transition, error) { return s.Navigate(s.current + 1) }
func (s *Session) Prev() (Transition, error) { return s.Navigate(s.current - 1) }

// Select toggles option on the current question.
func (s *Session) Select(option string) (Transition, error) {
	if err := s.writable(); err != nil {
		return Transition{}, err
	}
	if s.Locked(s.current) {
		return Transition{}, ErrLocked
	}
	q := &s.questions[s.current]
	if q.Selected != nil && *q.Selected == option {
		q.Selected = nil
		if q.Status != models.QuestionMarkedForReview {
			q.Status = models.QuestionUnattempted
		}
		return Transition{}, nil
	}
	q.Selected = &option
	if q.Status != models.QuestionMarkedForReview {
		q.Status = models.QuestionAttempted
	}
	return Transition{}, nil
}

// MarkForReview toggles the review flag on the current question.
func (s *Session) MarkForReview() (Transition, error) {
	if err := s.writable(); err != nil {
		return Transition{}, err
	}
	if s.Locked(s.current) {
		return Transition{}, ErrLocked
	}
	q := &s.questions[s.current]
	switch {
	case q.Status != models.QuestionMarkedForReview:
		q.Status = models.QuestionMarkedForReview
	case q.Selected != nil:
		q.Status = models.QuestionAttempted
	default:
		q.Status = models.QuestionUnattempted
	}
	return Transition{}, nil
}

// Finish marks the attempt as submitted.
func (s *Session) Finish() { s.finished = true }

// Answers is the submission payload.
func (s *Session) Answers() []models.AnswerUpdate {
	out := make([]models.AnswerUpdate, len(s.questions))
	for i, q := range s.questions {
		out[i] = models.AnswerUpdate{
			QuestionID:     q.ID,
			SelectedOption: copyString(q.Selected),
			Status:         q.Status,
			TimeTaken:      q.TimeTaken,
			TimeRemaining:  copyInt(q.TimeRemaining),
		}
	}
	if s.mode == models.TimerPerQuestion && !s.expired && len(out) > 0 {
		live := s.remaining
		out[s.current].TimeRemaining = &live
	}
	return out
}

// Progress is the save payload: every question, the cursor and, in overall
// mode, the session countdown.
func (s *Session) Progress() models.ProgressUpdate {
	current := s.current
	u := models.ProgressUpdate{
		Answers:      s.Answers(),
		CurrentIndex: &current,
	}
	if s.mode != models.TimerPerQuestion {
		remaining := s.remaining
		u.SessionTimeRemaining = &remaining
	}
	return u
}

func (s *Session) writable() error {
	if s.finished {
		return ErrFinished
	}
	if s.expired {
		return ErrExpired
	}
	return nil
}

func (s *Session) nextUnlocked(from int) (int, bool) {
	for i := from + 1; i < len(s.questions); i++ {
		if !s.Locked(i) {
			return i, true
		}
	}
	return 0, false
}

func (s *Session) loadRemaining(i int) int {
	if tr := s.questions[i].TimeRemaining; tr != nil {
		return *tr
	}
	return s.limit
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
