package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"catprep/backend/models"
	"catprep/backend/services"
	"catprep/backend/utils"

	"github.com/google/uuid"
)

// LocalBackend calls the attempt service in-process for one user.
type LocalBackend struct {
	Attempts *services.AttemptService
	Identity models.Identity
}

func (b LocalBackend) SaveProgress(ctx context.Context, attemptID uuid.UUID, update models.ProgressUpdate) error {
	_, err := b.Attempts.SaveProgress(ctx, b.Identity, attemptID, update)
	return err
}

func (b LocalBackend) Submit(ctx context.Context, attemptID uuid.UUID, answers []models.AnswerUpdate) (*models.SubmitResult, error) {
	return b.Attempts.Submit(ctx, b.Identity, attemptID, answers)
}

// HTTPBackend talks to the REST API with a bearer token.
type HTTPBackend struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func (b *HTTPBackend) Fetch(ctx context.Context, attemptID uuid.UUID) (*models.AttemptView, error) {
	var view models.AttemptView
	if err := b.do(ctx, http.MethodGet, "/api/tests/"+attemptID.String(), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (b *HTTPBackend) SaveProgress(ctx context.Context, attemptID uuid.UUID, update models.ProgressUpdate) error {
	return b.do(ctx, http.MethodPost, "/api/tests/"+attemptID.String()+"/progress", update, nil)
}

func (b *HTTPBackend) Submit(ctx context.Context, attemptID uuid.UUID, answers []models.AnswerUpdate) (*models.SubmitResult, error) {
	var res models.SubmitResult
	body := models.SubmitRequest{Answers: answers}
	if err := b.do(ctx, http.MethodPost, "/api/tests/"+attemptID.String()+"/submit", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(b.BaseURL, "/")+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.Token)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e utils.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Code == "" {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return &utils.AppError{Kind: e.Code, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}
