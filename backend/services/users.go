package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catprep/backend/config"
	"catprep/backend/models"
	"catprep/backend/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserService struct {
	db  *gorm.DB
	cfg *config.Config
	log *utils.Logger
}

func NewUserService(db *gorm.DB, cfg *config.Config, log *utils.Logger) *UserService {
	return &UserService{db: db, cfg: cfg, log: log.With("service", "users")}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) emailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	email := normalizeEmail(req.Email)
	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, utils.Conflictf("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.Unauthorizedf("invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, utils.Unauthorizedf("invalid email or password")
	}
	return s.issue(&user)
}

func (s *UserService) issue(user *models.User) (*models.AuthResult, error) {
	token, err := utils.GenerateJWTToken(user, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.AuthResult{Token: token, User: user}, nil
}

func (s *UserService) Profile(ctx context.Context, who models.Identity) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", who.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Delete removes a user together with their attempts.
func (s *UserService) Delete(ctx context.Context, who models.Identity, id uuid.UUID) error {
	if who.UserID == id {
		return utils.Conflictf("administrators cannot delete themselves")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := tx.Model(&models.TestAttempt{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("attempt_id IN (?)", attempts).Delete(&models.AttemptQuestion{}).Error; err != nil {
			return fmt.Errorf("delete attempt questions: %w", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.TestAttempt{}).Error; err != nil {
			return fmt.Errorf("delete attempts: %w", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.NotFoundf("user not found")
		}
		s.log.Info("user deleted", "user_id", id, "by", who.UserID)
		return nil
	})
}

// BulkImport creates accounts, skipping rows without an email or whose email
// is already registered.
func (s *UserService) BulkImport(ctx context.Context, rows []models.UserImport) (*models.ImportResult, error) {
	result := &models.ImportResult{}
	seen := map[string]struct{}{}
	for _, row := range rows {
		email := normalizeEmail(row.Email)
		if email == "" || row.Password == "" {
			result.Skipped++
			continue
		}
		if _, dup := seen[email]; dup {
			result.Skipped++
			continue
		}
		seen[email] = struct{}{}
		taken, err := s.emailTaken(ctx, email)
		if err != nil {
			return nil, err
		}
		if taken {
			result.Skipped++
			continue
		}

		role := row.Role
		if role != models.RoleAdmin {
			role = models.RoleStudent
		}
		name := strings.TrimSpace(row.Name)
		if name == "" {
			name = email
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(row.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user := &models.User{Name: name, Email: email, PasswordHash: string(hash), Role: role}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", email, err)
		}
		result.Imported++
	}
	s.log.Info("users imported", "imported", result.Imported, "skipped", result.Skipped)
	return result, nil
}
