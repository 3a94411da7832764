package user_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/user"
	emailsvc "github.com/mavuno/sokoni/services/email"
	dummydb "github.com/mavuno/sokoni/storage/database/dummy"
)

func TestMain(m *testing.M) {
	core.Conf = &core.Config{
		TestMode:                  true,
		AppName:                   "Sokoni",
		SecretKey:                 "sekrit",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          "noreply@test.cd",
		SessionTTL:                1 * time.Hour,
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	os.Exit(m.Run())
}

func newService(t *testing.T) (*user.Service, *notification.Service) {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	emailsvc.ClearSentMessages()
	notifSvc := notification.NewService(dummydb.NewNotificationRepository(db))
	return user.NewService(dummydb.NewUserRepository(db), notifSvc, emailsvc.NewConsoleServiceMock()), notifSvc
}

func TestService_Create(t *testing.T) {
	svc, notifSvc := newService(t)
	ctx := context.Background()

	admin, err := svc.Create(ctx, user.NewUser{
		Name: "Admin", Email: "admin@test.cd",
		Password: "s3cret", PasswordConfirm: "s3cret", Role: user.RoleAdmin,
	})
	require.NoError(t, err)

	emailsvc.ClearSentMessages()
	usr, err := svc.Create(ctx, user.NewUser{
		Name: "Awe", Email: "awe@test.cd",
		Password: "s3cret", PasswordConfirm: "s3cret",
	})
	require.NoError(t, err)

	assert.Equal(t, user.RoleCustomer, usr.Role) // default role
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword("s3cret"))

	// exactly one user got persisted
	users, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	// one welcome email to the new account
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Equal(t, "awe@test.cd", emailsvc.SentMessages[0].To[0].Address)

	// a welcome notification for the user, a signup alert per admin
	usrNotifs, err := notifSvc.QueryByUser(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, usrNotifs, 1)
	assert.Equal(t, notification.TypeWelcome, usrNotifs[0].Type)

	adminNotifs, err := notifSvc.QueryByUser(ctx, admin.ID)
	require.NoError(t, err)
	var alerted bool
	for _, n := range adminNotifs {
		if n.Type == notification.TypeNewSignup && strings.Contains(n.Message, "awe@test.cd") {
			alerted = true
		}
	}
	assert.True(t, alerted)
}

func TestService_CheckUniqueness(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{Name: "Awe", Email: "awe@test.cd", Password: "s3cret", PasswordConfirm: "s3cret"})
	require.NoError(t, err)

	assert.Error(t, svc.CheckUniqueness("awe@test.cd"))
	assert.NoError(t, svc.CheckUniqueness("other@test.cd"))
	assert.NoError(t, svc.CheckUniqueness("awe@test.cd", usr)) // excluded on self-update
}

func TestService_LoginAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{Name: "Awe", Email: "awe@test.cd", Password: "s3cret", PasswordConfirm: "s3cret"})
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, user.LoginUser{Email: "awe@test.cd", Password: "nope"})
		assert.Error(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, user.LoginUser{Email: "lol@test.cd", Password: "s3cret"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("ok", func(t *testing.T) {
		got, sess, err := svc.Login(ctx, user.LoginUser{Email: "awe@test.cd", Password: "s3cret"})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
		assert.NotEmpty(t, sess.Token)
		assert.False(t, got.LastLogin.IsZero())

		authed, err := svc.Authenticate(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, authed.ID)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "lol")
		assert.Equal(t, user.ErrSessionNotFound, err)
	})

	t.Run("expired session", func(t *testing.T) {
		_, sess, err := svc.Login(ctx, user.LoginUser{Email: "awe@test.cd", Password: "s3cret"})
		require.NoError(t, err)

		user.NowFunc = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { user.NowFunc = time.Now }()

		_, err = svc.Authenticate(ctx, sess.Token)
		assert.Equal(t, user.ErrSessionExpired, err)

		// expired sessions are revoked on sight
		user.NowFunc = time.Now
		_, err = svc.Authenticate(ctx, sess.Token)
		assert.Equal(t, user.ErrSessionNotFound, err)
	})

	t.Run("logout", func(t *testing.T) {
		_, sess, err := svc.Login(ctx, user.LoginUser{Email: "awe@test.cd", Password: "s3cret"})
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, sess.Token))
		_, err = svc.Authenticate(ctx, sess.Token)
		assert.Equal(t, user.ErrSessionNotFound, err)
	})
}

func TestService_PasswordReset(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{Name: "Awe", Email: "awe@test.cd", Password: "s3cret", PasswordConfirm: "s3cret"})
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		err := svc.RequestPasswordReset(ctx, "lol@test.cd")
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("roundtrip", func(t *testing.T) {
		// a live session that must be revoked by the reset
		_, sess, err := svc.Login(ctx, user.LoginUser{Email: "awe@test.cd", Password: "s3cret"})
		require.NoError(t, err)

		emailsvc.ClearSentMessages()
		require.NoError(t, svc.RequestPasswordReset(ctx, "awe@test.cd"))
		require.Len(t, emailsvc.SentMessages, 1)

		// the token is bound to the user's current state
		fresh, err := svc.GetByID(ctx, usr.ID)
		require.NoError(t, err)
		token, err := user.MakeToken(fresh)
		require.NoError(t, err)

		got, err := svc.ConfirmPasswordReset(ctx, user.ResetUserPassword{
			Token:           token,
			UID:             user.EncodeUID(fresh),
			Password:        "n3wpass",
			PasswordConfirm: "n3wpass",
		})
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword("n3wpass"))

		// all sessions are gone
		_, err = svc.Authenticate(ctx, sess.Token)
		assert.Equal(t, user.ErrSessionNotFound, err)

		// the token is single-use: the password change invalidates it
		_, err = svc.ConfirmPasswordReset(ctx, user.ResetUserPassword{
			Token:           token,
			UID:             user.EncodeUID(fresh),
			Password:        "an0ther",
			PasswordConfirm: "an0ther",
		})
		assert.Error(t, err)
	})
}
