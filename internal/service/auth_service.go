package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retailpos/internal/apierror"
	"retailpos/internal/config"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

// ErrBadCredentials covers both unknown-username and wrong-password so the
// login endpoint leaks nothing about which one failed.
var ErrBadCredentials = errors.New("invalid credentials")

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	CreateUser(ctx context.Context, businessID uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, businessID uuid.UUID) ([]dto.UserResponse, error)
	UpdateUser(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeactivateUser(ctx context.Context, businessID, id uuid.UUID) error
	ReactivateUser(ctx context.Context, businessID, id uuid.UUID) error
}

type authService struct {
	repo          repository.UserRepository
	subscriptions SubscriptionService
	cfg           *config.Config
}

func NewAuthService(repo repository.UserRepository, subscriptions SubscriptionService, cfg *config.Config) AuthService {
	return &authService{repo: repo, subscriptions: subscriptions, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrBadCredentials
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrBadCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrBadCredentials
	}
	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return nil, ErrBadCredentials
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrBadCredentials
	}
	businessIDStr, ok := claims["business_id"].(string)
	if !ok {
		return nil, ErrBadCredentials
	}
	businessID, err := uuid.Parse(businessIDStr)
	if err != nil {
		return nil, ErrBadCredentials
	}

	user, err := s.repo.FindByID(ctx, businessID, userID)
	if err != nil || !user.Active {
		return nil, ErrBadCredentials
	}
	return s.issueTokens(user)
}

func (s *authService) CreateUser(ctx context.Context, businessID uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := s.subscriptions.EnsureCanAddStaff(ctx, businessID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		BusinessID:   businessID,
		Username:     req.Username,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	if req.LocationID != nil {
		locationID, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid location_id", apierror.ErrValidation)
		}
		user.LocationID = &locationID
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username %q already taken", apierror.ErrConflict, req.Username)
		}
		return nil, storageErr(err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("role", user.Role).
		Msg("staff account created")

	return userToResponse(user), nil
}

func (s *authService) ListUsers(ctx context.Context, businessID uuid.UUID) ([]dto.UserResponse, error) {
	users, err := s.repo.List(ctx, businessID)
	if err != nil {
		return nil, storageErr(err)
	}
	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = *userToResponse(&users[i])
	}
	return out, nil
}

func (s *authService) UpdateUser(ctx context.Context, businessID, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, storageErr(err)
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.LocationID != nil {
		locationID, err := uuid.Parse(*req.LocationID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid location_id", apierror.ErrValidation)
		}
		user.LocationID = &locationID
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, storageErr(err)
	}
	return userToResponse(user), nil
}

func (s *authService) DeactivateUser(ctx context.Context, businessID, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, businessID, id); err != nil {
		return storageErr(err)
	}
	return s.repo.SoftDelete(ctx, businessID, id)
}

func (s *authService) ReactivateUser(ctx context.Context, businessID, id uuid.UUID) error {
	if err := s.subscriptions.EnsureCanAddStaff(ctx, businessID); err != nil {
		return err
	}
	return s.repo.Reactivate(ctx, businessID, id)
}

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.generateToken(user, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(user, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         *userToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":     user.ID.String(),
		"business_id": user.BusinessID.String(),
		"username":    user.Username,
		"role":        user.Role,
		"exp":         time.Now().Add(duration).Unix(),
		"iat":         time.Now().Unix(),
	}
	if user.LocationID != nil {
		claims["location_id"] = user.LocationID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func userToResponse(u *model.User) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		Active:   u.Active,
	}
	if u.LocationID != nil {
		loc := u.LocationID.String()
		resp.LocationID = &loc
	}
	return resp
}
