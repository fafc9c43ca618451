package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopfront/apiserver/internal/apperr"
	"github.com/shopfront/apiserver/internal/store"
	"github.com/shopfront/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidCredentials = "invalid email or password"
	msgUserExists         = "user already exists"
	msgEmailInUse         = "email already in use"
	msgUserNotFound       = "user not found"
	msgAdminRequired      = "not authorized as an admin"
	msgUserRemoved        = "User removed"
	msgPasswordTooLong    = "password is too long"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
}

// TokenIssuer signs credentials for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// UserCache is a read-through cache of user records keyed by id.
type UserCache interface {
	Get(ctx context.Context, id string) (types.User, bool)
	Set(ctx context.Context, user types.User)
	Delete(ctx context.Context, id string)
}

// EventPublisher announces account changes.
type EventPublisher interface {
	Publish(ctx context.Context, event types.AccountEvent) error
}

// UserArchiver keeps a copy of an account before it is deleted.
type UserArchiver interface {
	Archive(ctx context.Context, user types.User) error
}

// Caller is the authenticated identity a request acts as.
type Caller struct {
	ID      string
	IsAdmin bool
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate holds the fields a user may change on their own account.
// Nil or empty fields keep their current value.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// AdminUserUpdate holds the fields an admin may change on any account.
// Nil or empty name and email keep their current value; IsAdmin is always applied.
type AdminUserUpdate struct {
	Name    *string
	Email   *string
	IsAdmin bool
}

// DeleteResult confirms a deletion.
type DeleteResult struct {
	Message string `json:"message"`
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo         UserRepository
	tokens       TokenIssuer
	cache        UserCache
	events       EventPublisher
	archive      UserArchiver
	logger       *zap.Logger
	validate     *validator.Validate
	passwordCost int
	newID        func() string
	now          func() time.Time
}

type UserServiceOption func(*UserService)

func WithCache(cache UserCache) UserServiceOption {
	return func(s *UserService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func WithEvents(events EventPublisher) UserServiceOption {
	return func(s *UserService) {
		if events != nil {
			s.events = events
		}
	}
}

func WithArchive(archive UserArchiver) UserServiceOption {
	return func(s *UserService) {
		if archive != nil {
			s.archive = archive
		}
	}
}

func WithLogger(logger *zap.Logger) UserServiceOption {
	return func(s *UserService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPasswordCost sets the bcrypt cost used when hashing passwords.
func WithPasswordCost(cost int) UserServiceOption {
	return func(s *UserService) {
		s.passwordCost = cost
	}
}

func NewUserService(repo UserRepository, tokens TokenIssuer, opts ...UserServiceOption) *UserService {
	s := &UserService{
		repo:     repo,
		tokens:   tokens,
		cache:    noopCache{},
		events:   noopEvents{},
		archive:  noopArchive{},
		logger:   zap.NewNop(),
		validate: validator.New(),
		newID:    func() string { return uuid.NewString() },
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the email/password pair and issues a token.
func (s *UserService) Login(ctx context.Context, in LoginInput) (types.UserSummary, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.UserSummary{}, apperr.Unauthorized(msgInvalidCredentials)
		}
		return types.UserSummary{}, s.internal("login lookup failed", err)
	}
	if !user.MatchPassword(in.Password) {
		return types.UserSummary{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	return s.summaryWithToken(user)
}

// Register creates a non-admin account and issues a token for it.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.UserSummary, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validateInput(in); err != nil {
		return types.UserSummary{}, err
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return types.UserSummary{}, apperr.BadRequest(msgUserExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.UserSummary{}, s.internal("register lookup failed", err)
	}

	user := types.User{
		ID:    s.newID(),
		Name:  in.Name,
		Email: in.Email,
	}
	if err := s.setPassword(&user, in.Password); err != nil {
		return types.UserSummary{}, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.UserSummary{}, apperr.BadRequest(msgUserExists)
		}
		return types.UserSummary{}, s.internal("create user failed", err)
	}

	s.publish(ctx, types.EventUserRegistered, created)
	return s.summaryWithToken(created)
}

// GetProfile returns the caller's own account.
func (s *UserService) GetProfile(ctx context.Context, caller Caller) (types.UserSummary, error) {
	user, err := s.lookup(ctx, caller.ID)
	if err != nil {
		return types.UserSummary{}, err
	}
	return user.Summary(), nil
}

// UpdateProfile applies the supplied fields to the caller's account and
// issues a fresh token.
func (s *UserService) UpdateProfile(ctx context.Context, caller Caller, in ProfileUpdate) (types.UserSummary, error) {
	user, err := s.lookup(ctx, caller.ID)
	if err != nil {
		return types.UserSummary{}, err
	}

	applyText(&user.Name, in.Name)
	applyText(&user.Email, in.Email)
	if in.Password != nil && *in.Password != "" {
		if err := s.setPassword(&user, *in.Password); err != nil {
			return types.UserSummary{}, err
		}
	}

	updated, err := s.save(ctx, user)
	if err != nil {
		return types.UserSummary{}, err
	}
	return s.summaryWithToken(updated)
}

// ListUsers returns every account. Admin only.
func (s *UserService) ListUsers(ctx context.Context, caller Caller) ([]types.User, error) {
	if !caller.IsAdmin {
		return nil, apperr.Forbidden(msgAdminRequired)
	}
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.internal("list users failed", err)
	}
	if users == nil {
		users = []types.User{}
	}
	return users, nil
}

// DeleteUser archives and then removes the account. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, caller Caller, id string) (DeleteResult, error) {
	if !caller.IsAdmin {
		return DeleteResult{}, apperr.Forbidden(msgAdminRequired)
	}
	user, err := s.lookup(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}

	if err := s.archive.Archive(ctx, user); err != nil {
		return DeleteResult{}, s.internal("archive user failed", err)
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.cache.Delete(ctx, user.ID)
			return DeleteResult{}, apperr.NotFound(msgUserNotFound)
		}
		return DeleteResult{}, s.internal("delete user failed", err)
	}
	s.cache.Delete(ctx, user.ID)

	s.publish(ctx, types.EventUserDeleted, user)
	return DeleteResult{Message: msgUserRemoved}, nil
}

// GetUserByID returns any account. Admin only.
func (s *UserService) GetUserByID(ctx context.Context, caller Caller, id string) (types.User, error) {
	if !caller.IsAdmin {
		return types.User{}, apperr.Forbidden(msgAdminRequired)
	}
	return s.lookup(ctx, id)
}

// UpdateUser applies an admin edit to any account. No token is issued.
func (s *UserService) UpdateUser(ctx context.Context, caller Caller, id string, in AdminUserUpdate) (types.UserSummary, error) {
	if !caller.IsAdmin {
		return types.UserSummary{}, apperr.Forbidden(msgAdminRequired)
	}
	user, err := s.lookup(ctx, id)
	if err != nil {
		return types.UserSummary{}, err
	}

	applyText(&user.Name, in.Name)
	applyText(&user.Email, in.Email)
	user.IsAdmin = in.IsAdmin

	updated, err := s.save(ctx, user)
	if err != nil {
		return types.UserSummary{}, err
	}
	return updated.Summary(), nil
}

// Authorize resolves the caller for an authenticated user id, loading the
// admin flag from the current record.
func (s *UserService) Authorize(ctx context.Context, userID string) (Caller, error) {
	user, err := s.lookup(ctx, userID)
	if err != nil {
		return Caller{}, err
	}
	return Caller{ID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// SetAdmin grants or revokes the admin flag on the account registered under
// email. It serves operator tooling and performs no caller check.
func (s *UserService) SetAdmin(ctx context.Context, email string, isAdmin bool) (types.UserSummary, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.UserSummary{}, apperr.NotFound(msgUserNotFound)
		}
		return types.UserSummary{}, s.internal("set admin lookup failed", err)
	}
	user.IsAdmin = isAdmin

	updated, err := s.save(ctx, user)
	if err != nil {
		return types.UserSummary{}, err
	}
	return updated.Summary(), nil
}

func (s *UserService) lookup(ctx context.Context, id string) (types.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return types.User{}, apperr.NotFound(msgUserNotFound)
	}
	id = parsed.String()
	if user, ok := s.cache.Get(ctx, id); ok {
		return user, nil
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, apperr.NotFound(msgUserNotFound)
		}
		return types.User{}, s.internal("load user failed", err)
	}
	s.cache.Set(ctx, user)
	return user, nil
}

func (s *UserService) save(ctx context.Context, user types.User) (types.User, error) {
	updated, err := s.repo.Update(ctx, user)
	s.cache.Delete(ctx, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return types.User{}, apperr.NotFound(msgUserNotFound)
		case errors.Is(err, store.ErrConflict):
			return types.User{}, apperr.BadRequest(msgEmailInUse)
		default:
			return types.User{}, s.internal("update user failed", err)
		}
	}
	s.publish(ctx, types.EventUserUpdated, updated)
	return updated, nil
}

// setPassword hashes plain into user. Passwords bcrypt cannot hash are
// rejected as bad input.
func (s *UserService) setPassword(user *types.User, plain string) error {
	if err := user.SetPassword(plain, s.passwordCost); err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return apperr.BadRequest(msgPasswordTooLong)
		}
		return s.internal("hash password failed", err)
	}
	return nil
}

func (s *UserService) summaryWithToken(user types.User) (types.UserSummary, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return types.UserSummary{}, s.internal("issue token failed", err)
	}
	summary := user.Summary()
	summary.Token = token
	return summary, nil
}

func (s *UserService) publish(ctx context.Context, eventType types.AccountEventType, user types.User) {
	event := types.AccountEvent{
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish account event failed",
			zap.String("type", string(eventType)),
			zap.String("user_id", user.ID),
			zap.Error(err))
	}
}

func (s *UserService) validateInput(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return apperr.BadRequest(fmt.Sprintf("%s is required", fe.Field()))
		}
		return apperr.BadRequest(fmt.Sprintf("%s is invalid", fe.Field()))
	}
	return s.internal("validate input failed", err)
}

func (s *UserService) internal(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return apperr.Internal(err)
}

// applyText overwrites dst with the trimmed value when one is supplied.
func applyText(dst *string, value *string) {
	if value == nil {
		return
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		*dst = trimmed
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (types.User, bool) { return types.User{}, false }
func (noopCache) Set(context.Context, types.User)                {}
func (noopCache) Delete(context.Context, string)                 {}

type noopEvents struct{}

func (noopEvents) Publish(context.Context, types.AccountEvent) error { return nil }

type noopArchive struct{}

func (noopArchive) Archive(context.Context, types.User) error { return nil }
