// internal/domain/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/ruralcare/medreserve/internal/domain/apperr"
	"github.com/ruralcare/medreserve/internal/pkg/auth"
	"github.com/ruralcare/medreserve/internal/pkg/clock"
	"github.com/sirupsen/logrus"
)

// Store is the persistence port for users
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, id uint) error
	ListByRole(ctx context.Context, role Role) ([]User, error)
}

// Service handles user business logic
type Service struct {
	store           Store
	config          *config.Config
	clock           clock.Clock
	logger          logrus.FieldLogger
	passwordManager *auth.PasswordManager
	jwtManager      *auth.JWTManager
}

// NewService creates a new user service
func NewService(store Store, cfg *config.Config, clk clock.Clock, logger logrus.FieldLogger) *Service {
	return &Service{
		store:           store,
		config:          cfg,
		clock:           clk,
		logger:          logger.WithField("component", "user"),
		passwordManager: auth.NewPasswordManager(cfg),
		jwtManager:      auth.NewJWTManager(cfg),
	}
}

// RegisterRequest represents user registration data
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Phone           string `json:"phone"`
	Role            Role   `json:"role"`
	PharmacyName    string `json:"pharmacy_name"`
	LicenseNumber   string `json:"license_number"`
	Address         string `json:"address"`
	District        string `json:"district"`
}

// LoginRequest represents user login data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register creates a new patient or pharmacy account. Admin accounts are
// created through the seed command only.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, apperr.InvalidInput("passwords do not match")
	}

	role := req.Role
	if role == "" {
		role = RolePatient
	}
	if role != RolePatient && role != RolePharmacy {
		return nil, apperr.InvalidInput("role must be patient or pharmacy")
	}
	if role == RolePharmacy && strings.TrimSpace(req.PharmacyName) == "" {
		return nil, apperr.InvalidInput("pharmacy_name is required for pharmacy accounts")
	}

	hashedPassword, err := s.passwordManager.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error())
	}

	user := &User{
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Password:      hashedPassword,
		Name:          req.Name,
		Phone:         req.Phone,
		Role:          role,
		PharmacyName:  req.PharmacyName,
		LicenseNumber: req.LicenseNumber,
		Address:       req.Address,
		District:      req.District,
		IsActive:      true,
	}

	if err := s.create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")

	return s.authResponse(user)
}

// CreateUser stores an already validated account of any role, used by seeding
func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	hashedPassword, err := s.passwordManager.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error())
	}
	u.Password = hashedPassword
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if !u.Role.IsValid() {
		return apperr.InvalidInput("unknown role %q", u.Role)
	}
	return s.create(ctx, u)
}

// Login authenticates a user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := s.passwordManager.VerifyPassword(req.Password, user.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}
	now := s.clock.Now()
	user.LastLoginAt = &now

	return s.authResponse(user)
}

// GetProfile gets user profile by ID
func (s *Service) GetProfile(ctx context.Context, userID uint) (*User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.NotFound("user")
	}
	return user, nil
}

// GetUserByEmail gets a user by email
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListPharmacies returns every pharmacy account
func (s *Service) ListPharmacies(ctx context.Context) ([]User, error) {
	return s.store.ListByRole(ctx, RolePharmacy)
}

// Contact resolves a display name and email for notifications
func (s *Service) Contact(ctx context.Context, userID uint) (string, string, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return user.GetDisplayName(), user.Email, nil
}

// ErrInvalidCredentials is returned for any failed login
var ErrInvalidCredentials = errors.New("invalid email or password")

func (s *Service) create(ctx context.Context, user *User) error {
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return fmt.Errorf("user with this email %w", apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Service) authResponse(user *User) (*AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.JWT.AccessTokenExpiry.Seconds()),
	}, nil
}
