package service_test

import (
	"context"
	"testing"

	"retailpos/internal/apierror"
	"retailpos/internal/config"
	"retailpos/internal/dto"
	"retailpos/internal/model"
	"retailpos/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc        service.AuthService
	users      *stubUserRepo
	businessID uuid.UUID
	cfg        *config.Config
}

func newAuthFixture(maxStaff int) *authFixture {
	f := &authFixture{
		users:      newStubUserRepo(),
		businessID: uuid.New(),
		cfg: &config.Config{
			JWTSecret:          "test-secret",
			JWTExpirationHours: 1,
			JWTRefreshHours:    24,
		},
	}
	subs := newStubSubscriptionRepo()
	subs.subs[f.businessID] = &model.Subscription{
		ID:         uuid.New(),
		BusinessID: f.businessID,
		Plan:       model.PlanFree,
		Status:     "active",
		MaxStaff:   maxStaff,
	}
	subscriptions := service.NewSubscriptionService(subs, newStubProductRepo(), newStubBusinessRepo(), f.users)
	f.svc = service.NewAuthService(f.users, subscriptions, f.cfg)
	return f
}

func (f *authFixture) seedUser(username, password, role string, active bool) *model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &model.User{
		ID:           uuid.New(),
		BusinessID:   f.businessID,
		Username:     username,
		Name:         username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       active,
	}
	f.users.users[u.ID] = u
	return u
}

func TestLoginIssuesTokens(t *testing.T) {
	f := newAuthFixture(3)
	f.seedUser("cashier1", "hunter22hunter", "cashier", true)

	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{
		Username: "cashier1",
		Password: "hunter22hunter",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "cashier1", resp.User.Username)

	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(f.cfg.JWTSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "cashier", claims["role"])
	assert.Equal(t, f.businessID.String(), claims["business_id"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(3)
	f.seedUser("manager1", "correct-password", "manager", true)

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{
		Username: "manager1", Password: "wrong-password",
	})
	assert.ErrorIs(t, err, service.ErrBadCredentials)

	_, err = f.svc.Login(context.Background(), dto.LoginRequest{
		Username: "nobody", Password: "whatever",
	})
	assert.ErrorIs(t, err, service.ErrBadCredentials)
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	f := newAuthFixture(3)
	f.seedUser("gone", "some-password1", "cashier", false)

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{
		Username: "gone", Password: "some-password1",
	})
	assert.ErrorIs(t, err, service.ErrBadCredentials)
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newAuthFixture(3)
	u := f.seedUser("admin1", "admin-password", "admin", true)

	login, err := f.svc.Login(context.Background(), dto.LoginRequest{
		Username: "admin1", Password: "admin-password",
	})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "admin1", refreshed.User.Username)

	// A deactivated account can no longer refresh.
	u.Active = false
	_, err = f.svc.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, service.ErrBadCredentials)

	_, err = f.svc.Refresh(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, service.ErrBadCredentials)
}

func TestCreateUserEnforcesStaffLimit(t *testing.T) {
	f := newAuthFixture(1)
	f.seedUser("admin1", "admin-password", "admin", true)

	_, err := f.svc.CreateUser(context.Background(), f.businessID, dto.CreateUserRequest{
		Username: "cashier2", Name: "Cashier Two",
		Password: "password123", Role: "cashier",
	})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	f := newAuthFixture(10)
	f.seedUser("taken", "whatever-pass", "cashier", true)

	_, err := f.svc.CreateUser(context.Background(), f.businessID, dto.CreateUserRequest{
		Username: "taken", Name: "Impostor",
		Password: "password123", Role: "cashier",
	})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestCreateUserPinsCashierLocation(t *testing.T) {
	f := newAuthFixture(10)
	locationID := uuid.NewString()

	resp, err := f.svc.CreateUser(context.Background(), f.businessID, dto.CreateUserRequest{
		Username: "cashier3", Name: "Cashier Three",
		Password: "password123", Role: "cashier",
		LocationID: &locationID,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.LocationID)
	assert.Equal(t, locationID, *resp.LocationID)
	assert.True(t, resp.Active)
}
