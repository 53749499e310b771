package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
	now       func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{userRepo: userRepo, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry, now: time.Now}
}

// Register creates a customer account. Admin accounts are only created from
// the command line through RegisterAdmin.
func (s *AuthService) Register(ctx context.Context, req dto.SignupRequest) (*dto.AuthResponse, error) {
	user, err := s.createUser(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return s.authResponse(user)
}

func (s *AuthService) RegisterAdmin(ctx context.Context, req dto.SignupRequest) (*model.User, error) {
	return s.createUser(ctx, req, true)
}

func (s *AuthService) createUser(ctx context.Context, req dto.SignupRequest, admin bool) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, internal(err, "Error creating user")
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internal(fmt.Errorf("hash password: %w", err), "Error creating user")
	}

	user := &model.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		Password:    string(hashed),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		IsAdmin:     admin,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, ErrUserAlreadyExists
		}
		return nil, internal(err, "Error creating user")
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, internal(err, "Error logging in")
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.authResponse(user)
}

// TokenTTL is how long issued tokens stay valid; the session cookie uses the
// same lifetime.
func (s *AuthService) TokenTTL() time.Duration { return s.jwtExpiry }

func (s *AuthService) authResponse(user *model.User) (*dto.AuthResponse, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, internal(fmt.Errorf("generate token: %w", err), "Error issuing token")
	}
	resp := toUserResponse(user)
	return &dto.AuthResponse{Token: token, User: &resp}, nil
}

func (s *AuthService) generateToken(user *model.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"admin": user.IsAdmin,
		"exp":   now.Add(s.jwtExpiry).Unix(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		IsAdmin:     user.IsAdmin,
	}
}
