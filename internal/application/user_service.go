package application

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
	repo "github.com/oksasatya/go-user-service/internal/domain/repository"
	"github.com/oksasatya/go-user-service/pkg/helpers"
	"github.com/oksasatya/go-user-service/pkg/response"
)

var (
	// ErrUserNotFound is the hard not-found of the password-reset path.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidPage rejects page numbers below 1, sizes outside 1..MaxPageSize
	// and pages whose offset does not fit in an int.
	ErrInvalidPage = errors.New("page number must be at least 1 and page size between 1 and 100")
)

// MaxPageSize caps ListPaged so one request cannot pull the whole table.
const MaxPageSize = 100

const (
	MsgUsersFetched   = "Users fetched successfully"
	MsgRecordsFetched = "Records fetched successfully"
	MsgRecordFetched  = "Record fetched successfully"
	MsgUserCreated    = "User created successfully"
	MsgUserUpdated    = "User updated successfully"
	MsgUserDeleted    = "User deleted successfully"
	MsgUserNotFound   = "User not found"
	MsgResetInitiated = "Password reset initiated."
)

// Outcome tags a Result so the transport layer can map it to a status uniformly.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Result is a soft outcome plus the envelope handed to the caller.
// Hard failures (store, publish, hard not-found) travel as the error instead.
type Result[T any] struct {
	Outcome  Outcome
	Envelope response.Envelope[T]
}

func succeed[T any](message string, data T) Result[T] {
	return Result[T]{Outcome: OutcomeSuccess, Envelope: response.Success(message, data)}
}

func userNotFound() Result[bool] {
	return Result[bool]{
		Outcome:  OutcomeNotFound,
		Envelope: response.Failure(http.StatusNoContent, MsgUserNotFound, false),
	}
}

// UserInput is the mapped create/update payload.
type UserInput struct {
	UserName    string
	Password    string
	Email       string
	Phone       string
	Role        string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	IsActive    bool
}

// PasswordHasher transforms a plain password into its stored form.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// UserIndexer keeps a search projection of users. Failures never fail the caller.
type UserIndexer interface {
	Index(ctx context.Context, u entity.User) error
	Remove(ctx context.Context, id string) error
}

// Channels names the destinations of the domain events.
type Channels struct {
	Signup        string
	PasswordReset string
}

// DefaultChannels are the channel names consumed by the email worker.
var DefaultChannels = Channels{Signup: "email.signup", PasswordReset: "email.passwordreset"}

type Service struct {
	Store    repo.UserStore
	Hasher   PasswordHasher
	Indexer  UserIndexer
	Channels Channels
	NewToken func() (string, error)
	Now      func() time.Time
}

func NewService(store repo.UserStore, hasher PasswordHasher, indexer UserIndexer, channels Channels) *Service {
	if channels.Signup == "" {
		channels.Signup = DefaultChannels.Signup
	}
	if channels.PasswordReset == "" {
		channels.PasswordReset = DefaultChannels.PasswordReset
	}
	return &Service{
		Store:    store,
		Hasher:   hasher,
		Indexer:  indexer,
		Channels: channels,
		NewToken: helpers.GenerateResetToken,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListPaged returns one page of non-deleted users ordered by creation time.
// Count and page are read separately and may disagree under concurrent writes.
func (s *Service) ListPaged(ctx context.Context, pageNumber, pageSize int) (Result[entity.PagedResult[entity.User]], error) {
	helpers.LoggerFrom(ctx).WithFields(logrus.Fields{"page": pageNumber, "size": pageSize}).Info("fetching paginated users")
	if pageNumber < 1 || pageSize < 1 || pageSize > MaxPageSize || pageNumber-1 > math.MaxInt/pageSize {
		return Result[entity.PagedResult[entity.User]]{}, ErrInvalidPage
	}

	r := s.Store.Session()
	total, err := r.Count(ctx)
	if err != nil {
		return Result[entity.PagedResult[entity.User]]{}, fmt.Errorf("count users: %w", err)
	}
	users, err := r.GetPaged(ctx, pageNumber, pageSize)
	if err != nil {
		return Result[entity.PagedResult[entity.User]]{}, fmt.Errorf("page users: %w", err)
	}

	page := entity.PagedResult[entity.User]{
		Items:      users,
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}
	return succeed(MsgUsersFetched, page), nil
}

// ListAll returns every record, soft-deleted ones included.
func (s *Service) ListAll(ctx context.Context) (Result[[]entity.User], error) {
	helpers.LoggerFrom(ctx).Info("fetching all user records")
	users, err := s.Store.Session().GetAll(ctx)
	if err != nil {
		return Result[[]entity.User]{}, fmt.Errorf("list users: %w", err)
	}
	return succeed(MsgRecordsFetched, users), nil
}

// Get succeeds whether or not the user exists; absence is a nil payload.
// Soft-deleted users are returned as stored.
func (s *Service) Get(ctx context.Context, id string) (Result[*entity.User], error) {
	helpers.LoggerFrom(ctx).WithField("user_id", id).Info("fetching user record")
	u, err := s.Store.Session().GetByID(ctx, id)
	if err != nil {
		return Result[*entity.User]{}, fmt.Errorf("get user: %w", err)
	}
	return succeed(MsgRecordFetched, u), nil
}

// Create persists a new user. The stored email is always the submitted user name.
func (s *Service) Create(ctx context.Context, in UserInput) (Result[*entity.User], error) {
	return s.create(ctx, in, false)
}

// Signup creates the user and stages a UserSignupEvent in the same commit, so the
// event exists if and only if the user does.
func (s *Service) Signup(ctx context.Context, in UserInput) (Result[*entity.User], error) {
	return s.create(ctx, in, true)
}

func (s *Service) create(ctx context.Context, in UserInput, notify bool) (Result[*entity.User], error) {
	log := helpers.LoggerFrom(ctx)
	log.WithField("signup", notify).Info("creating a new user record")

	u := &entity.User{}
	if err := s.apply(u, in); err != nil {
		return Result[*entity.User]{}, err
	}
	u.ID = uuid.NewString()
	u.Email = in.UserName
	u.CreatedDate = s.Now()
	u.IsDeleted = false

	r := s.Store.Session()
	if err := r.Add(ctx, u); err != nil {
		return Result[*entity.User]{}, fmt.Errorf("add user: %w", err)
	}
	if notify {
		msg, err := entity.NewOutboxMessage(s.Channels.Signup, entity.UserSignupEvent{
			UserID:   u.ID,
			Email:    u.Email,
			Username: u.UserName,
		})
		if err != nil {
			return Result[*entity.User]{}, fmt.Errorf("encode signup event: %w", err)
		}
		if err := r.Enqueue(ctx, msg); err != nil {
			return Result[*entity.User]{}, fmt.Errorf("stage signup event: %w", err)
		}
	}
	if err := r.SaveChanges(ctx); err != nil {
		return Result[*entity.User]{}, fmt.Errorf("save user: %w", err)
	}

	log.WithField("user_id", u.ID).Info("user created")
	s.project(ctx, u)
	return succeed(MsgUserCreated, u), nil
}

// Update overwrites every mapped field of an existing user.
func (s *Service) Update(ctx context.Context, id string, in UserInput) (Result[bool], error) {
	log := helpers.LoggerFrom(ctx).WithField("user_id", id)
	log.Info("updating user record")

	r := s.Store.Session()
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return Result[bool]{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return userNotFound(), nil
	}

	if err := s.apply(u, in); err != nil {
		return Result[bool]{}, err
	}
	u.Touch(s.Now())
	if err := r.Update(ctx, u); err != nil {
		return Result[bool]{}, fmt.Errorf("update user: %w", err)
	}
	if err := r.SaveChanges(ctx); err != nil {
		return Result[bool]{}, fmt.Errorf("save user: %w", err)
	}

	s.project(ctx, u)
	return succeed(MsgUserUpdated, true), nil
}

// Delete soft-deletes a user. Deleting an already deleted user succeeds again.
func (s *Service) Delete(ctx context.Context, id string) (Result[bool], error) {
	log := helpers.LoggerFrom(ctx).WithField("user_id", id)
	log.Info("deleting user record")

	r := s.Store.Session()
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return Result[bool]{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return userNotFound(), nil
	}

	u.IsDeleted = true
	u.Touch(s.Now())
	if err := r.Update(ctx, u); err != nil {
		return Result[bool]{}, fmt.Errorf("update user: %w", err)
	}
	if err := r.SaveChanges(ctx); err != nil {
		return Result[bool]{}, fmt.Errorf("save user: %w", err)
	}

	s.project(ctx, u)
	return succeed(MsgUserDeleted, true), nil
}

// GeneratePasswordResetToken issues a fresh opaque token for an existing user.
// The token is neither stored nor given an expiry.
func (s *Service) GeneratePasswordResetToken(ctx context.Context, userID string) (string, error) {
	u, err := s.Store.Session().GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	token, err := s.NewToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return token, nil
}

// RequestPasswordReset issues a token and stages a PasswordResetEvent for delivery.
// The user is looked up again to build the event; a miss there fails the flow.
func (s *Service) RequestPasswordReset(ctx context.Context, userID string) (Result[bool], error) {
	log := helpers.LoggerFrom(ctx).WithField("user_id", userID)
	token, err := s.GeneratePasswordResetToken(ctx, userID)
	if err != nil {
		return Result[bool]{}, err
	}

	r := s.Store.Session()
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return Result[bool]{}, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return Result[bool]{}, ErrUserNotFound
	}

	msg, err := entity.NewOutboxMessage(s.Channels.PasswordReset, entity.PasswordResetEvent{
		UserID:     u.ID,
		Email:      u.Email,
		ResetToken: token,
	})
	if err != nil {
		return Result[bool]{}, fmt.Errorf("encode password reset event: %w", err)
	}
	if err := r.Enqueue(ctx, msg); err != nil {
		return Result[bool]{}, fmt.Errorf("stage password reset event: %w", err)
	}
	if err := r.SaveChanges(ctx); err != nil {
		return Result[bool]{}, fmt.Errorf("save password reset event: %w", err)
	}

	log.Info("password reset initiated")
	return succeed(MsgResetInitiated, true), nil
}

// apply copies the mapped fields of in onto u.
func (s *Service) apply(u *entity.User, in UserInput) error {
	pwd := in.Password
	if s.Hasher != nil {
		h, err := s.Hasher.Hash(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		pwd = h
	}
	u.UserName = in.UserName
	u.Password = pwd
	u.Email = in.Email
	u.Phone = in.Phone
	u.Role = in.Role
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	u.DateOfBirth = in.DateOfBirth
	u.IsActive = in.IsActive
	return nil
}

// project refreshes the search projection after a commit.
func (s *Service) project(ctx context.Context, u *entity.User) {
	if s.Indexer == nil {
		return
	}
	var err error
	if u.IsDeleted {
		err = s.Indexer.Remove(ctx, u.ID)
	} else {
		err = s.Indexer.Index(ctx, *u)
	}
	if err != nil {
		helpers.LoggerFrom(ctx).WithError(err).WithField("user_id", u.ID).Warn("search projection failed")
	}
}
