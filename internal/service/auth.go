package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"askstory/auth/internal/auth"
	"askstory/auth/internal/cache"
	"askstory/auth/internal/crypto"
	"askstory/auth/internal/mail"
	"askstory/auth/internal/model"
	"askstory/auth/internal/repository"
	"askstory/auth/internal/session"
)

// Store is the credential store surface the service needs. The pgx-backed
// repository implements it; tests inject fakes.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByEmailAndName(ctx context.Context, email, name string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) error
	UpdateTokens(ctx context.Context, email, accessToken, refreshToken string) error
	UpdateAccessToken(ctx context.Context, refreshToken, accessToken string) error
	ClearRefreshToken(ctx context.Context, refreshToken string) error
	EmailExists(ctx context.Context, email string) (bool, error)
	EmployeeNoExists(ctx context.Context, employeeNo string) (bool, error)
	UpdatePassword(ctx context.Context, email, passwordHash string, mustChange bool) error
	ListActiveDepartments(ctx context.Context) ([]model.Department, error)
}

type DuplicateField string

const (
	FieldEmail      DuplicateField = "email"
	FieldEmployeeNo DuplicateField = "employeeNumber"
)

type Auth struct {
	store       Store
	sessions    session.Registry
	mailer      mail.Mailer
	departments *cache.Departments
	jwtSecret   string
	jwtIssuer   string
	accessTTL   time.Duration
}

func NewAuth(store Store, sessions session.Registry, mailer mail.Mailer, departments *cache.Departments, jwtSecret, jwtIssuer string, accessTTL time.Duration) *Auth {
	return &Auth{
		store:       store,
		sessions:    sessions,
		mailer:      mailer,
		departments: departments,
		jwtSecret:   jwtSecret,
		jwtIssuer:   jwtIssuer,
		accessTTL:   accessTTL,
	}
}

type RegisterInput struct {
	Name         string
	Email        string
	EmployeeNo   string
	Password     string
	Phone        string
	DepartmentID int64
	Grade        string
	Duty         string
}

// Register creates the user row. Optional empty-string fields are stored as
// NULL. A unique violation on email or employee number becomes
// ErrDuplicateKey.
func (s *Auth) Register(ctx context.Context, input RegisterInput) (model.User, error) {
	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{
		Name:         input.Name,
		Email:        input.Email,
		EmployeeNo:   input.EmployeeNo,
		PasswordHash: hash,
		DepartmentID: input.DepartmentID,
		Grade:        input.Grade,
		RegDate:      time.Now().UTC(),
	}
	if input.Phone != "" {
		phone := input.Phone
		user.Phone = &phone
	}
	if input.Duty != "" {
		duty := input.Duty
		user.Position = &duty
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, ErrDuplicateKey
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// Login verifies credentials, registers a session, and persists a fresh
// token pair on the user row.
func (s *Auth) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user model.User, err error) {
	user, err = s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", model.User{}, ErrInvalidCredentials
		}
		return "", "", model.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		return "", "", model.User{}, ErrInvalidCredentials
	}

	accessToken, err = auth.NewAccessToken(s.jwtSecret, s.jwtIssuer, s.accessTTL, auth.Claims{Email: user.Email})
	if err != nil {
		return "", "", model.User{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err = crypto.NewRefreshToken()
	if err != nil {
		return "", "", model.User{}, fmt.Errorf("generate refresh token: %w", err)
	}

	s.sessions.Add(user.Email, refreshToken)

	if err := s.store.UpdateTokens(ctx, user.Email, accessToken, refreshToken); err != nil {
		return "", "", model.User{}, fmt.Errorf("persist tokens: %w", err)
	}

	user.PasswordHash = ""
	return accessToken, refreshToken, user, nil
}

// Refresh issues a new access token for a live session. The refresh token is
// not rotated.
func (s *Auth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	record, ok := s.sessions.Find(refreshToken)
	if !ok {
		return "", ErrInvalidToken
	}

	accessToken, err := auth.NewAccessToken(s.jwtSecret, s.jwtIssuer, s.accessTTL, auth.Claims{Email: record.Email})
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	if err := s.store.UpdateAccessToken(ctx, refreshToken, accessToken); err != nil {
		return "", fmt.Errorf("persist access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes the refresh token in the store and invalidates the session
// record.
func (s *Auth) Logout(ctx context.Context, refreshToken string) error {
	if _, ok := s.sessions.Find(refreshToken); !ok {
		return ErrInvalidToken
	}

	if err := s.store.ClearRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.sessions.Invalidate(refreshToken)
	return nil
}

// CheckDuplicate reports whether value is already taken for the given field.
func (s *Auth) CheckDuplicate(ctx context.Context, field DuplicateField, value string) (bool, error) {
	switch field {
	case FieldEmail:
		return s.store.EmailExists(ctx, value)
	case FieldEmployeeNo:
		return s.store.EmployeeNoExists(ctx, value)
	default:
		return false, fmt.Errorf("unknown duplicate field %q", field)
	}
}

// ResetPassword replaces the password with a random 8-digit temporary one and
// mails it to the user. The mail is dispatched after the new hash is
// committed and the response never waits on delivery; a failed send leaves
// the new password in place and is only logged.
func (s *Auth) ResetPassword(ctx context.Context, email, name string) error {
	user, err := s.store.GetUserByEmailAndName(ctx, email, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotMatch
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	tempPassword, err := crypto.NewTempPassword()
	if err != nil {
		return fmt.Errorf("generate password: %w", err)
	}
	hash, err := crypto.HashPassword(tempPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.UpdatePassword(ctx, user.Email, hash, true); err != nil {
		return fmt.Errorf("persist password: %w", err)
	}

	msg := mail.Message{
		To:      user.Email,
		Subject: "임시 비밀 번호 발급",
		Text:    fmt.Sprintf("임시 비밀 번호 : %s", tempPassword),
		HTML:    fmt.Sprintf("<strong>임시 비밀 번호 : %s</strong>", tempPassword),
	}
	go func() {
		// Detached from the request context on purpose: delivery must not be
		// cancelled by the client closing the connection.
		if err := s.mailer.Send(context.Background(), msg); err != nil {
			log.Printf("reset-password mail to %s failed: %v", user.Email, err)
		}
	}()

	return nil
}

// ListDepartments returns the active departments, served from the redis
// cache when warm.
func (s *Auth) ListDepartments(ctx context.Context) ([]model.Department, error) {
	if departments, ok := s.departments.Get(ctx); ok {
		return departments, nil
	}

	departments, err := s.store.ListActiveDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	s.departments.Set(ctx, departments)
	return departments, nil
}
