package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/notification"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User, isActive *bool) (User, error)
		SetUserLastLogin(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
		QueryAdminIDs(ctx context.Context) ([]string, error)

		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByToken(ctx context.Context, token string) (Session, error)
		DeleteSessionByToken(ctx context.Context, token string) error
		DeleteUserSessions(ctx context.Context, userID string) error
	}

	Service struct {
		repo     Repository
		notifSvc *notification.Service
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, notifSvc *notification.Service, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, notifSvc: notifSvc, mailSvc: mailSvc}
}

func (svc *Service) CheckUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create inserts a new User, then fans out: a welcome notification for the
// new user, one signup notification per admin, and a welcome email.
// The fan-out is best effort; it never fails the signup.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := NowFunc().UTC()
	role := nu.Role
	if role == "" {
		role = RoleCustomer
	}
	usr := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}

	// best effort
	_, _ = svc.notifSvc.Notify(ctx, usr.ID,
		notification.TypeWelcome, "Welcome to Sokoni",
		fmt.Sprintf("Hi %s, your account is ready.", usr.Name), "/account")
	if adminIDs, err := svc.repo.QueryAdminIDs(ctx); err == nil {
		_ = svc.notifSvc.Broadcast(ctx, adminIDs,
			notification.TypeNewSignup, "New signup",
			fmt.Sprintf("%s (%s) just signed up.", usr.Name, usr.Email), "/admin/customers")
	}
	svc.sendWelcomeEmail(usr)

	return usr, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr, uu.IsActive)
}

// Delete removes users unconditionally. There is no soft delete and no
// cascade; rows referencing the user keep their dangling user id.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// Login verifies credentials and issues a new session token.
func (svc *Service) Login(ctx context.Context, lu LoginUser) (User, Session, error) {
	usr, err := svc.GetByEmail(ctx, lu.Email)
	if err != nil {
		return User{}, Session{}, err
	}
	if err = usr.CheckPassword(lu.Password); err != nil {
		return User{}, Session{}, err
	}
	usr, err = svc.repo.SetUserLastLogin(ctx, usr)
	if err != nil {
		return User{}, Session{}, err
	}

	token, err := generateSessionToken()
	if err != nil {
		return User{}, Session{}, err
	}
	now := NowFunc().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    usr.ID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(core.Conf.SessionTTL),
	}
	sess, err = svc.repo.CreateSession(ctx, sess)
	if err != nil {
		return User{}, Session{}, err
	}
	return usr, sess, nil
}

// Authenticate resolves a session token to its active User.
// Expired sessions are deleted on sight.
func (svc *Service) Authenticate(ctx context.Context, token string) (User, error) {
	sess, err := svc.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return User{}, err
	}
	if sess.Expired() {
		_ = svc.repo.DeleteSessionByToken(ctx, token)
		return User{}, ErrSessionExpired
	}
	return svc.repo.GetUserByID(ctx, sess.UserID)
}

func (svc *Service) Logout(ctx context.Context, token string) error {
	return svc.repo.DeleteSessionByToken(ctx, token)
}

// RequestPasswordReset emails a reset link to the user owning the given email.
// An unknown email is reported back as a validation error.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}

	token, err := MakeToken(usr)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct {
			User  User
			Token string
			UID   string
		}{usr, token, EncodeUID(usr)},
	})
	return nil
}

// ConfirmPasswordReset sets the new password and revokes all of the user's sessions.
func (svc *Service) ConfirmPasswordReset(ctx context.Context, rp ResetUserPassword) (User, error) {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, errInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, uid)
	if err != nil {
		return User{}, err
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = NowFunc().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr, nil)
	if err != nil {
		return User{}, err
	}
	if err = svc.repo.DeleteUserSessions(ctx, usr.ID); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) sendWelcomeEmail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to " + core.Conf.AppName,
		TemplateName: "welcome",
		TemplateData: struct{ User User }{usr},
	})
}

// generateSessionToken returns a 32-byte random token, hex encoded.
func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
