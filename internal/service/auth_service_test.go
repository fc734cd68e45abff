package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskflow-be/internal/apperrors"
	"taskflow-be/internal/hasher"
	"taskflow-be/internal/jwt"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/models"
)

func register(t *testing.T, f *authFixture, name, email, password string) {
	t.Helper()
	_, err := f.svc.Register(context.Background(), &models.RegisterRequest{Name: name, Email: email, Password: password})
	require.NoError(t, err)
}

func TestRegister_DistinctEmailsSucceed(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < 5; i++ {
		email := fmt.Sprintf("user%d@x.com", i)
		resp, err := f.svc.Register(context.Background(), &models.RegisterRequest{Name: "U", Email: email, Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, email, resp.User.Email)
		assert.True(t, resp.User.CreatedAt.Equal(*f.clock))
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	f := newAuthFixture(t)
	register(t, f, "A", "a@x.com", "secret1")

	_, err := f.svc.Register(context.Background(), &models.RegisterRequest{Name: "B", Email: "a@x.com", Password: "other12"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	user, err := f.users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "A", user.Name)
}

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	f := newAuthFixture(t)
	register(t, f, "A", "a@x.com", "secret1")

	user, err := f.users.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret1")))
}

func TestRegister_Validation(t *testing.T) {
	f := newAuthFixture(t)

	cases := []models.RegisterRequest{
		{Name: "", Email: "a@x.com", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "Alice <a@x.com>", Password: "secret1"},
		{Name: "A", Email: "a@x.com", Password: "12345"},
	}
	for _, req := range cases {
		_, err := f.svc.Register(context.Background(), &req)
		assert.True(t, apperrors.Is(err, apperrors.KindValidation), "%+v", req)
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	svc := NewAuthService(failingUserRepo{}, jwt.NewJWTService("k", time.Hour, time.Hour),
		hasher.NewBcryptHasher(bcrypt.MinCost), &fakeNotifier{}, logging.Discard(), "")

	_, err := svc.Register(context.Background(), &models.RegisterRequest{Name: "A", Email: "a@x.com", Password: "secret1"})
	assert.True(t, apperrors.Is(err, apperrors.KindDependency))
	assert.ErrorIs(t, err, errBoom)
}

func TestLogin_CorrectPassword(t *testing.T) {
	f := newAuthFixture(t)
	register(t, f, "Alice", "a@x.com", "secret1")

	resp, err := f.svc.Login(context.Background(), &models.LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.UserSummary{Name: "Alice", Email: "a@x.com"}, resp.User)

	email, err := f.tokens.VerifySession(resp.Token, f.clock.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
}

func TestLogin_Failures(t *testing.T) {
	f := newAuthFixture(t)
	register(t, f, "Alice", "a@x.com", "secret1")

	for _, req := range []models.LoginRequest{
		{Email: "a@x.com", Password: "secret2"},
		{Email: "a@x.com", Password: ""},
		{Email: "a@x.com", Password: "SECRET1"},
		{Email: "A@x.com", Password: "secret1"},
		{Email: "nobody@x.com", Password: "secret1"},
	} {
		_, err := f.svc.Login(context.Background(), &req)
		require.Error(t, err)
		assert.Equal(t, 401, apperrors.HTTPStatus(err), "%+v", req)
		assert.Equal(t, "Invalid email or password", apperrors.PublicMessage(err))
	}
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "ghost@x.com")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	assert.Empty(t, f.notifier.sent)
}

func TestRequestPasswordReset_MissingEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "  ")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.Empty(t, f.notifier.sent)
}

func TestRequestPasswordReset_NotifierFailure(t *testing.T) {
	f := newAuthFixture(t)
	register(t, f, "Alice", "a@x.com", "secret1")
	f.notifier.err = errBoom

	err := f.svc.RequestPasswordReset(context.Background(), "a@x.com")
	assert.True(t, apperrors.Is(err, apperrors.KindDependency))
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
	assert.Equal(t, "Failed to send email", apperrors.PublicMessage(err))
}

func resetTokenFromMail(t *testing.T, f *authFixture) string {
	t.Helper()
	require.NotEmpty(t, f.notifier.sent)
	body := f.notifier.sent[len(f.notifier.sent)-1].Body

	const marker = "http://localhost:5173/reset-password/"
	idx := strings.Index(body, marker)
	require.GreaterOrEqual(t, idx, 0, body)
	return body[idx+len(marker):]
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	register(t, f, "Alice", "a@x.com", "secret1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "a@x.com", f.notifier.sent[0].To)
	assert.Equal(t, "TaskFlow Pro Password Reset", f.notifier.sent[0].Subject)

	token := resetTokenFromMail(t, f)

	err := f.svc.ResetPassword(ctx, token, "12345")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	require.NoError(t, f.svc.ResetPassword(ctx, token, "newpass1"))

	_, err = f.svc.Login(ctx, &models.LoginRequest{Email: "a@x.com", Password: "secret1"})
	assert.Error(t, err)
	_, err = f.svc.Login(ctx, &models.LoginRequest{Email: "a@x.com", Password: "newpass1"})
	assert.NoError(t, err)

	// The token was bound to the old password and cannot be replayed.
	err = f.svc.ResetPassword(ctx, token, "another1")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.Equal(t, "Invalid token", apperrors.PublicMessage(err))
}

func TestResetPassword_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	register(t, f, "Alice", "a@x.com", "secret1")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	token := resetTokenFromMail(t, f)

	// Both redemptions read the user before either writes.
	barrier := &barrierUserRepo{UserRepository: f.users}
	barrier.arrived.Add(2)
	f.svc.userRepo = barrier

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, password := range []string{"newpass1", "newpass2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.svc.ResetPassword(ctx, token, password)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, "Invalid token", apperrors.PublicMessage(err))
	}
	assert.Equal(t, 1, succeeded, "errors: %v", errs)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	register(t, f, "Alice", "a@x.com", "secret1")
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	token := resetTokenFromMail(t, f)

	*f.clock = f.clock.Add(2 * time.Hour)

	err := f.svc.ResetPassword(ctx, token, "newpass1")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.Equal(t, "Reset token expired", apperrors.PublicMessage(err))
}

func TestResetPassword_InvalidToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	register(t, f, "Alice", "a@x.com", "secret1")

	session, err := f.tokens.IssueSession("a@x.com", *f.clock)
	require.NoError(t, err)

	for _, tok := range []string{"garbage", session} {
		err := f.svc.ResetPassword(ctx, tok, "newpass1")
		assert.Equal(t, "Invalid token", apperrors.PublicMessage(err))
		assert.Equal(t, 400, apperrors.HTTPStatus(err))
	}
}

func TestResetPassword_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	token, err := f.tokens.IssueReset("ghost@x.com", "fp", *f.clock)
	require.NoError(t, err)

	err = f.svc.ResetPassword(context.Background(), token, "newpass1")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestUpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	register(t, f, "Alice", "a@x.com", "secret1")
	user, err := f.users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)

	profile, err := f.svc.UpdateProfile(ctx, user, &models.UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)

	name := "  Alicia "
	profile, err = f.svc.UpdateProfile(ctx, user, &models.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", profile.Name)
	assert.Equal(t, "a@x.com", profile.Email)
	assert.True(t, profile.CreatedAt.Equal(user.CreatedAt))

	blank := "   "
	_, err = f.svc.UpdateProfile(ctx, user, &models.UpdateProfileRequest{Name: &blank})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}
