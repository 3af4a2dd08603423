package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stregsystem/internal/core/apperror"
)

type fakeUserRepo struct {
	users  map[string]*AdminUser
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*AdminUser), nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *AdminUser) error {
	user.ID = f.nextID
	f.nextID++
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*AdminUser, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("admin user", id)
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*AdminUser, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, apperror.NewNotFound("admin user", username)
}

func (f *fakeUserRepo) Update(_ context.Context, user *AdminUser) error {
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserRepo) Exists(_ context.Context, username string) (bool, error) {
	_, ok := f.users[username]
	return ok, nil
}

func (f *fakeUserRepo) SetCapabilities(_ context.Context, userID int64, caps []Capability) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.Capabilities = caps
			return nil
		}
	}
	return apperror.NewNotFound("admin user", userID)
}

type fakeTokenRepo struct {
	tokens map[string]*RefreshToken
	nextID int64
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*RefreshToken), nextID: 1}
}

func (f *fakeTokenRepo) SaveRefreshToken(_ context.Context, token *RefreshToken) error {
	token.ID = f.nextID
	f.nextID++
	f.tokens[token.TokenHash] = token
	return nil
}

func (f *fakeTokenRepo) GetRefreshToken(_ context.Context, tokenHash string) (*RefreshToken, error) {
	if t, ok := f.tokens[tokenHash]; ok {
		return t, nil
	}
	return nil, apperror.NewNotFound("refresh token", tokenHash)
}

func (f *fakeTokenRepo) RevokeRefreshToken(_ context.Context, id int64, reason string) error {
	for _, t := range f.tokens {
		if t.ID == id {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (f *fakeTokenRepo) RevokeAllUserTokens(_ context.Context, userID int64, reason string) error {
	for _, t := range f.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type passTxManager struct{}

func (passTxManager) RunInTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	cfg := DefaultServiceConfig()
	cfg.PasswordMinLength = 4 // keep test passwords short
	svc := NewService(users, tokens, passTxManager{}, NewJWTService(DefaultJWTConfig("test-secret")), cfg)
	return svc, users, tokens
}

func seedUser(t *testing.T, users *fakeUserRepo, username, password string, caps ...Capability) *AdminUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &AdminUser{
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
		Capabilities: caps,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "treo", "hunter22", CapabilityStaff, CapabilityMobilePayTool)

	pair, user, err := svc.Login(context.Background(), Credentials{Username: "treo", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotNil(t, user.LastLoginAt)

	op, err := svc.jwtService.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "treo", op.Username)
	assert.True(t, op.Has(CapabilityMobilePayTool))
	assert.False(t, op.Has(CapabilityHostRazzia))
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "treo", "hunter22")

	_, _, err := svc.Login(context.Background(), Credentials{Username: "treo", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
	assert.Equal(t, 1, users.users["treo"].FailedLoginAttempts)
}

func TestLoginLocksAfterMaxAttempts(t *testing.T) {
	svc, users, _ := newTestService(t)
	seedUser(t, users, "treo", "hunter22")

	for i := 0; i < svc.config.MaxLoginAttempts; i++ {
		_, _, err := svc.Login(context.Background(), Credentials{Username: "treo", Password: "wrong"})
		require.Error(t, err)
	}

	// Even the right password is rejected while locked.
	_, _, err := svc.Login(context.Background(), Credentials{Username: "treo", Password: "hunter22"})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, users, tokens := newTestService(t)
	seedUser(t, users, "treo", "hunter22", CapabilityStaff)

	pair, _, err := svc.Login(context.Background(), Credentials{Username: "treo", Password: "hunter22"})
	require.NoError(t, err)

	fresh, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)

	// The redeemed token is single-use.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	old, err := tokens.GetRefreshToken(context.Background(), hashToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.Equal(t, "refreshed", old.RevokedReason)
}

func TestLogoutRevokesAllTokens(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "treo", "hunter22")

	pair, _, err := svc.Login(context.Background(), Credentials{Username: "treo", Password: "hunter22"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), user.ID))

	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "treo", "hunter22")

	require.NoError(t, svc.ChangePassword(context.Background(), user.ID, "hunter22", "hunter23"))

	_, _, err := svc.Login(context.Background(), Credentials{Username: "treo", Password: "hunter22"})
	require.Error(t, err)
	// One failure recorded above; reset by the successful login below.
	_, _, err = svc.Login(context.Background(), Credentials{Username: "treo", Password: "hunter23"})
	require.NoError(t, err)
	assert.Equal(t, 0, users.users["treo"].FailedLoginAttempts)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, users, _ := newTestService(t)
	user := seedUser(t, users, "treo", "hunter22")

	err := svc.ChangePassword(context.Background(), user.ID, "wrong", "hunter23")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))
}

func TestCreateUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, err := svc.CreateUser(context.Background(), "kass", "hunter22", []Capability{CapabilityHostRazzia})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.Has(CapabilityHostRazzia))
	assert.False(t, user.Has(CapabilitySalesReports))

	_, err = svc.CreateUser(context.Background(), "kass", "hunter22", nil)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

	_, err = svc.CreateUser(context.Background(), "shrt", "abc", nil)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	user := &AdminUser{ID: 7, Username: "treo", IsActive: true}

	issued, _, err := NewJWTService(DefaultJWTConfig("secret-a")).GenerateAccessToken(user)
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret-b")).ValidateToken(issued)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := DefaultJWTConfig("secret")
	cfg.AccessTokenTTL = -time.Minute
	issued, _, err := NewJWTService(cfg).GenerateAccessToken(&AdminUser{ID: 7, Username: "treo"})
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("secret")).ValidateToken(issued)
	assert.Error(t, err)
}

func TestRequireCapability(t *testing.T) {
	ctx := context.Background()

	_, err := RequireCapability(ctx, CapabilityStaff)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	ctx = WithOperator(ctx, &Operator{UserID: 1, Username: "treo", Capabilities: []Capability{CapabilityStaff}})
	op, err := RequireCapability(ctx, CapabilityStaff)
	require.NoError(t, err)
	assert.Equal(t, "treo", op.Username)

	_, err = RequireCapability(ctx, CapabilityHostRazzia)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	super := WithOperator(context.Background(), &Operator{UserID: 2, Username: "root", Superuser: true})
	_, err = RequireCapability(super, CapabilityMobilePayTool)
	assert.NoError(t, err)
}
