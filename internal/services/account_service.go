package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// ProfileUpdate holds optional profile changes. Nil fields are unchanged.
type ProfileUpdate struct {
	Name           *string
	Email          *string
	Password       *string
	ProfilePicture *string
}

// Session is a signed-in user and their token.
type Session struct {
	User      core.User
	Token     string
	ExpiresAt time.Time
}

type AccountService struct {
	users     storage.UserStore
	issuer    *auth.Issuer
	hasher    auth.Hasher
	summaries *SummaryService
	logger    *log.Logger
	now       func() time.Time
}

func NewAccountService(users storage.UserStore, issuer *auth.Issuer, hasher auth.Hasher, summaries *SummaryService, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.Default()
	}
	return &AccountService{
		users:     users,
		issuer:    issuer,
		hasher:    hasher,
		summaries: summaries,
		logger:    logger.WithComponent(log.ComponentAccount),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	u := core.User{
		Name:      strings.TrimSpace(in.Name),
		Email:     core.NormalizeEmail(in.Email),
		CreatedAt: s.now(),
	}
	switch {
	case u.Name == "":
		return Session{}, core.NewValidationError("name", core.ErrRequired)
	case u.Email == "":
		return Session{}, core.NewValidationError("email", core.ErrRequired)
	case in.Password == "":
		return Session{}, core.NewValidationError("password", core.ErrRequired)
	}
	if err := u.Validate(); err != nil {
		return Session{}, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	u.PasswordHash = hash

	created, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return Session{}, fmt.Errorf("register: %w", err)
	}
	s.logger.Fields(ctx, slog.LevelInfo, "User registered", log.NewFields().
		WithOperation(log.OpCreate).
		WithUser(created.ID))
	return s.session(created)
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, auth.ErrInvalidCredentials
	}
	u, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		s.logger.WarnContext(ctx, "Failed login attempt", log.FieldUserID, u.ID)
		return Session{}, err
	}
	return s.session(u)
}

func (s *AccountService) Me(ctx context.Context, userID int64) (core.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (core.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", userID, err)
	}

	if upd.Name != nil {
		u.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		u.Email = core.NormalizeEmail(*upd.Email)
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = strings.TrimSpace(*upd.ProfilePicture)
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if upd.Password != nil {
		hash, err := s.hashPassword(*upd.Password)
		if err != nil {
			return core.User{}, err
		}
		u.PasswordHash = hash
	}

	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", userID, err)
	}
	s.logger.Fields(ctx, slog.LevelInfo, "Profile updated", log.NewFields().
		WithOperation(log.OpUpdate).
		WithUser(userID))
	return updated, nil
}

// DeleteAccount removes the user and, with them, every transaction they own.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	s.summaries.Invalidate(userID)
	s.logger.Fields(ctx, slog.LevelInfo, "Account deleted", log.NewFields().
		WithOperation(log.OpDelete).
		WithUser(userID))
	return nil
}

func (s *AccountService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return "", core.NewValidationError("password", err)
	}
	return hash, err
}

func (s *AccountService) session(u core.User) (Session, error) {
	token, exp, err := s.issuer.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}
