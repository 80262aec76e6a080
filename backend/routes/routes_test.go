package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"catprep/backend/cache"
	"catprep/backend/internal/testutil"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    utils.Kind      `json:"code"`
	Details json.RawMessage `json:"details"`
}

type harness struct {
	t       *testing.T
	app     *fiber.App
	db      *gorm.DB
	catalog testutil.Catalog
}

func newHarness(t *testing.T) *harness {
	db := testutil.NewDB(t)
	app := fiber.New()
	SetupRoutes(app, db, testutil.Config(), cache.NewMemory(), utils.NopLogger())

	catalog := testutil.SeedCatalog(t, db)
	testutil.SeedQuestions(t, db, catalog.Subject.ID, catalog.Topics[0].ID, models.DifficultyEasy, 4)
	testutil.SeedQuestions(t, db, catalog.Subject.ID, catalog.Topics[1].ID, models.DifficultyMedium, 4)
	return &harness{t: t, app: app, db: db, catalog: catalog}
}

func (h *harness) do(method, path, token string, body interface{}) (int, envelope) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 {
		require.NoError(h.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (h *harness) signup(email string) string {
	h.t.Helper()
	status, env := h.do("POST", "/api/auth/signup", "", models.RegisterRequest{
		Name: "Student", Email: email, Password: "password1",
	})
	require.Equal(h.t, fiber.StatusCreated, status)
	var auth models.AuthResult
	require.NoError(h.t, json.Unmarshal(env.Data, &auth))
	require.NotEmpty(h.t, auth.Token)
	return auth.Token
}

func (h *harness) admin() string {
	h.t.Helper()
	user := testutil.SeedUser(h.t, h.db, "admin@catprep.test", models.RoleAdmin)
	token, err := utils.GenerateJWTToken(&user, testutil.Config())
	require.NoError(h.t, err)
	return token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAuthRoutes(t *testing.T) {
	h := newHarness(t)
	h.signup("Ann@Example.com")

	t.Run("duplicate email", func(t *testing.T) {
		status, env := h.do("POST", "/api/auth/signup", "", models.RegisterRequest{
			Name: "Ann", Email: "ann@example.com", Password: "password1",
		})
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Equal(t, utils.KindConflict, env.Code)
	})

	t.Run("login", func(t *testing.T) {
		status, env := h.do("POST", "/api/auth/login", "", models.LoginRequest{Email: "ann@example.com", Password: "password1"})
		require.Equal(t, fiber.StatusOK, status)
		auth := decode[models.AuthResult](t, env.Data)

		status, env = h.do("GET", "/api/user/profile", auth.Token, nil)
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "ann@example.com", decode[models.User](t, env.Data).Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		status, _ := h.do("POST", "/api/auth/login", "", models.LoginRequest{Email: "ann@example.com", Password: "nope"})
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})

	t.Run("invalid body", func(t *testing.T) {
		status, env := h.do("POST", "/api/auth/signup", "", models.RegisterRequest{Email: "not-an-email"})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, utils.KindValidation, env.Code)
		assert.Contains(t, string(env.Details), "Email")
	})

	t.Run("missing token", func(t *testing.T) {
		status, _ := h.do("GET", "/api/tests/history", "", nil)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	})
}

func TestAttemptRoutes(t *testing.T) {
	h := newHarness(t)
	token := h.signup("student@example.com")

	status, env := h.do("GET", "/api/subjects", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	subjects := decode[[]models.Subject](t, env.Data)
	require.Len(t, subjects, 1)

	status, env = h.do("GET", "/api/subjects/"+subjects[0].ID.String()+"/topics", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.Topic](t, env.Data), 2)

	status, env = h.do("POST", "/api/tests/start", token, models.StartRequest{
		SubjectID:     h.catalog.Subject.ID,
		TopicIDs:      h.catalog.TopicIDs(),
		QuestionCount: 3,
		TimerMode:     models.TimerOverall,
		TimeLimit:     10,
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.NotContains(t, string(env.Data), "correctAnswer")
	assert.NotContains(t, string(env.Data), "solution")
	attempt := decode[models.AttemptView](t, env.Data)
	require.Len(t, attempt.Questions, 3)
	base := "/api/tests/" + attempt.ID.String()

	answers := make([]models.AnswerUpdate, len(attempt.Questions))
	for i, q := range attempt.Questions {
		a := "a"
		answers[i] = models.AnswerUpdate{QuestionID: q.QuestionID, SelectedOption: &a, Status: models.QuestionAttempted, TimeTaken: 5}
	}

	t.Run("save progress", func(t *testing.T) {
		remaining, index := 500, 1
		status, env := h.do("POST", base+"/progress", token, models.ProgressUpdate{
			Answers:              answers[:1],
			SessionTimeRemaining: &remaining,
			CurrentIndex:         &index,
		})
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, 1, decode[models.SaveResult](t, env.Data).Version)

		status, env = h.do("GET", base, token, nil)
		require.Equal(t, fiber.StatusOK, status)
		view := decode[models.AttemptView](t, env.Data)
		assert.Equal(t, 1, view.LastQuestionIndex)
		require.NotNil(t, view.TimeRemaining)
		assert.Equal(t, 500, *view.TimeRemaining)
		assert.Equal(t, "a", *view.Questions[0].SelectedOption)
	})

	t.Run("stale version", func(t *testing.T) {
		stale := 0
		status, env := h.do("POST", base+"/progress", token, models.ProgressUpdate{Answers: answers[:1], ExpectedVersion: &stale})
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Equal(t, utils.KindConflict, env.Code)
	})

	t.Run("other student", func(t *testing.T) {
		other := h.signup("other@example.com")
		status, _ := h.do("GET", base, other, nil)
		assert.Equal(t, fiber.StatusForbidden, status)
		status, _ = h.do("POST", base+"/submit", other, models.SubmitRequest{Answers: answers})
		assert.Equal(t, fiber.StatusForbidden, status)
	})

	t.Run("submit", func(t *testing.T) {
		status, env := h.do("POST", base+"/submit", token, models.SubmitRequest{Answers: answers})
		require.Equal(t, fiber.StatusOK, status)
		result := decode[models.SubmitResult](t, env.Data)
		assert.Equal(t, models.Score{Total: 9, Correct: 3}, result.Score)
		assert.Equal(t, models.AttemptCompleted, result.Attempt.Status)
		require.NotNil(t, result.Attempt.Questions[0].Question.CorrectAnswer)

		status, env = h.do("POST", base+"/submit", token, models.SubmitRequest{Answers: answers})
		assert.Equal(t, fiber.StatusConflict, status)
		assert.Equal(t, utils.KindConflict, env.Code)

		status, _ = h.do("POST", base+"/progress", token, models.ProgressUpdate{Answers: answers})
		assert.Equal(t, fiber.StatusConflict, status)
	})

	t.Run("history and overview", func(t *testing.T) {
		status, env := h.do("GET", "/api/tests/history", token, nil)
		require.Equal(t, fiber.StatusOK, status)
		history := decode[[]models.AttemptSummary](t, env.Data)
		require.Len(t, history, 1)
		assert.Equal(t, "Quantitative Aptitude", history[0].SubjectName)

		status, env = h.do("GET", "/api/progress/overview", token, nil)
		require.Equal(t, fiber.StatusOK, status)
		overview := decode[models.ProgressOverview](t, env.Data)
		assert.Equal(t, 1, overview.TestsCompleted)
	})

	t.Run("retake then abort and delete", func(t *testing.T) {
		status, env := h.do("POST", base+"/retake", token, nil)
		require.Equal(t, fiber.StatusCreated, status)
		retake := decode[models.AttemptView](t, env.Data)
		assert.Equal(t, attempt.Questions[0].QuestionID, retake.Questions[0].QuestionID)

		status, _ = h.do("POST", "/api/tests/"+retake.ID.String()+"/abort", token, nil)
		assert.Equal(t, fiber.StatusNoContent, status)
		status, _ = h.do("POST", "/api/tests/"+retake.ID.String()+"/abort", token, nil)
		assert.Equal(t, fiber.StatusConflict, status)

		status, _ = h.do("DELETE", "/api/tests/"+retake.ID.String(), token, nil)
		assert.Equal(t, fiber.StatusNoContent, status)
		status, _ = h.do("GET", "/api/tests/"+retake.ID.String(), token, nil)
		assert.Equal(t, fiber.StatusNotFound, status)
	})

	t.Run("bad id", func(t *testing.T) {
		status, env := h.do("GET", "/api/tests/not-a-uuid", token, nil)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, utils.KindValidation, env.Code)
	})
}

func TestStartRoutes(t *testing.T) {
	h := newHarness(t)
	token := h.signup("student@example.com")

	t.Run("no matching questions", func(t *testing.T) {
		status, env := h.do("POST", "/api/tests/start", token, models.StartRequest{
			SubjectID:  h.catalog.Subject.ID,
			TopicIDs:   h.catalog.TopicIDs(),
			Difficulty: models.DifficultyHard,
		})
		assert.Equal(t, fiber.StatusUnprocessableEntity, status)
		assert.Equal(t, utils.KindInsufficientContent, env.Code)
	})

	t.Run("unknown subject", func(t *testing.T) {
		status, _ := h.do("POST", "/api/tests/start", token, models.StartRequest{
			SubjectID: uuid.New(),
			TopicIDs:  h.catalog.TopicIDs(),
		})
		assert.Equal(t, fiber.StatusNotFound, status)
	})

	t.Run("missing topics", func(t *testing.T) {
		status, _ := h.do("POST", "/api/tests/start", token, fiber.Map{"subjectId": h.catalog.Subject.ID})
		assert.Equal(t, fiber.StatusBadRequest, status)
	})

	t.Run("generate and validate", func(t *testing.T) {
		status, env := h.do("POST", "/api/questions/generate", token, models.GenerateRequest{
			SubjectID: h.catalog.Subject.ID,
			TopicIDs:  h.catalog.TopicIDs()[:1],
			Count:     2,
		})
		require.Equal(t, fiber.StatusOK, status)
		questions := decode[[]models.QuestionView](t, env.Data)
		require.Len(t, questions, 2)
		assert.Nil(t, questions[0].CorrectAnswer)

		status, env = h.do("POST", "/api/questions/validate", token, models.ValidateAnswerRequest{
			QuestionID: questions[0].ID, SelectedOption: "b",
		})
		require.Equal(t, fiber.StatusOK, status)
		result := decode[models.ValidateAnswerResult](t, env.Data)
		assert.False(t, result.IsCorrect)
		assert.Equal(t, "a", result.CorrectAnswer)
	})
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)
	student := h.signup("student@example.com")
	admin := h.admin()

	t.Run("students are forbidden", func(t *testing.T) {
		status, env := h.do("GET", "/api/admin/stats", student, nil)
		assert.Equal(t, fiber.StatusForbidden, status)
		assert.Equal(t, utils.KindForbidden, env.Code)
	})

	t.Run("stats", func(t *testing.T) {
		status, env := h.do("GET", "/api/admin/stats", admin, nil)
		require.Equal(t, fiber.StatusOK, status)
		stats := decode[models.AdminStats](t, env.Data)
		assert.Equal(t, int64(1), stats.Students)
		assert.Equal(t, int64(8), stats.Questions)
	})

	t.Run("question crud", func(t *testing.T) {
		in := models.QuestionInput{
			Text:          "2 + 2 = ?",
			Options:       []models.Option{{ID: "a", Text: "3"}, {ID: "b", Text: "4"}},
			CorrectAnswer: "b",
			Difficulty:    models.DifficultyEasy,
			SubjectID:     h.catalog.Subject.ID,
			TopicID:       h.catalog.Topics[0].ID,
		}
		status, env := h.do("POST", "/api/admin/questions", admin, in)
		require.Equal(t, fiber.StatusCreated, status)
		created := decode[models.Question](t, env.Data)

		in.CorrectAnswer = "c"
		status, env = h.do("PUT", "/api/admin/questions/"+created.ID.String(), admin, in)
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, utils.KindValidation, env.Code)

		status, env = h.do("GET", "/api/admin/questions?topicId="+h.catalog.Topics[0].ID.String()+"&difficulty=easy", admin, nil)
		require.Equal(t, fiber.StatusOK, status)
		listed := decode[[]models.AdminQuestion](t, env.Data)
		assert.Len(t, listed, 5)
		assert.Equal(t, "Arithmetic", listed[0].TopicName)

		status, _ = h.do("DELETE", "/api/admin/questions/"+created.ID.String(), admin, nil)
		assert.Equal(t, fiber.StatusNoContent, status)
		status, _ = h.do("DELETE", "/api/admin/questions/"+created.ID.String(), admin, nil)
		assert.Equal(t, fiber.StatusNotFound, status)
	})

	t.Run("bulk import rejects the batch", func(t *testing.T) {
		rows := []models.QuestionImport{
			{Subject: "quantitative aptitude", Topic: "Geometry", Text: "ok", Options: []models.Option{{ID: "a"}, {ID: "b"}}, CorrectAnswer: "a"},
			{Subject: "History", Topic: "Dates", Text: "bad", Options: []models.Option{{ID: "a"}, {ID: "b"}}, CorrectAnswer: "a"},
		}
		status, env := h.do("POST", "/api/admin/questions/bulk", admin, rows)
		assert.Equal(t, fiber.StatusBadRequest, status)
		errs := decode[[]models.ImportError](t, env.Details)
		require.Len(t, errs, 1)
		assert.Equal(t, 2, errs[0].Row)

		var n int64
		require.NoError(t, h.db.Model(&models.Topic{}).Where("name = ?", "Geometry").Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("subjects and topics", func(t *testing.T) {
		status, env := h.do("POST", "/api/admin/subjects", admin, models.SubjectInput{Name: "Verbal Ability", Status: models.SubjectActive})
		require.Equal(t, fiber.StatusCreated, status)
		subject := decode[models.Subject](t, env.Data)
		assert.Equal(t, "verbal-ability", subject.Slug)

		status, _ = h.do("POST", "/api/admin/topics", admin, models.TopicInput{Name: "Reading", SubjectID: subject.ID})
		require.Equal(t, fiber.StatusCreated, status)
		status, _ = h.do("POST", "/api/admin/topics", admin, models.TopicInput{Name: "Reading", SubjectID: subject.ID})
		assert.Equal(t, fiber.StatusConflict, status)

		status, env = h.do("GET", "/api/subjects", student, nil)
		require.Equal(t, fiber.StatusOK, status)
		assert.Len(t, decode[[]models.Subject](t, env.Data), 2)
	})

	t.Run("users", func(t *testing.T) {
		status, env := h.do("POST", "/api/admin/users/bulk", admin, []models.UserImport{
			{Name: "New", Email: "new@example.com", Password: "password1"},
			{Name: "Dup", Email: "student@example.com", Password: "password1"},
			{Name: "Empty"},
		})
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, models.ImportResult{Imported: 1, Skipped: 2}, decode[models.ImportResult](t, env.Data))

		status, env = h.do("GET", "/api/admin/users", admin, nil)
		require.Equal(t, fiber.StatusOK, status)
		assert.NotContains(t, string(env.Data), "password")
		users := decode[[]models.User](t, env.Data)
		assert.Len(t, users, 3)

		var target uuid.UUID
		for _, u := range users {
			if u.Email == "new@example.com" {
				target = u.ID
			}
		}
		status, _ = h.do("DELETE", "/api/admin/users/"+target.String(), admin, nil)
		assert.Equal(t, fiber.StatusNoContent, status)
	})
}
