package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/gym-management/internal/model"
	"github.com/iliyamo/gym-management/internal/queue"
	"github.com/iliyamo/gym-management/internal/repository"
	"github.com/iliyamo/gym-management/internal/utils"
)

// AccountStore is the auth provider.  It does not share transactions
// with the application store.
type AccountStore interface {
	Create(ctx context.Context, email, password string) (string, error)
	GetByID(ctx context.Context, id string) (model.Account, error)
	Delete(ctx context.Context, id string) error
}

// ProfileStore persists profiles.
type ProfileStore interface {
	Create(ctx context.Context, p model.Profile) error
	GetByID(ctx context.Context, id string) (model.Profile, error)
	List(ctx context.Context, role model.Role, search string) ([]model.Profile, error)
	Lock(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// RoleStore persists the one role row each user holds.
type RoleStore interface {
	Get(ctx context.Context, userID string) (model.Role, error)
	Insert(ctx context.Context, userID string, role model.Role) error
	Delete(ctx context.Context, userID string) error
}

// TrainerStore persists the trainer extension row.
type TrainerStore interface {
	Create(ctx context.Context, t model.Trainer) (string, error)
	GetByUser(ctx context.Context, userID string) (model.Trainer, error)
	DeleteByUser(ctx context.Context, userID string) error
}

// AvatarStore keeps uploaded profile photos.
type AvatarStore interface {
	Save(ctx context.Context, userID, base64Image string) (string, error)
	Delete(ctx context.Context, userID string) error
}

// SessionStore drops a user's refresh tokens.
type SessionStore interface {
	DeleteForUser(ctx context.Context, userID string) error
}

// UserService creates and deletes users across the auth provider and the
// application store.
type UserService struct {
	tx       Transactor
	accounts AccountStore
	profiles ProfileStore
	roles    RoleStore
	trainers TrainerStore
	avatars  AvatarStore
	sessions SessionStore
	events   EventPublisher
	log      *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(tx Transactor, a AccountStore, p ProfileStore, r RoleStore, t TrainerStore,
	av AvatarStore, s SessionStore, ev EventPublisher, log *zap.Logger) *UserService {
	return &UserService{tx: tx, accounts: a, profiles: p, roles: r, trainers: t, avatars: av, sessions: s, events: ev, log: log}
}

// CreateUserInput is the admin-create-user request.
type CreateUserInput struct {
	UserType         model.Role
	Email            string
	Password         string
	FullName         string
	Phone            *string
	DateOfBirth      *time.Time
	Gender           *string
	Address          *string
	EmergencyContact *string
	Specialization   *string
	ExperienceYears  int
	PhotoBase64      string
}

// CreateUserResult is returned on success.  AvatarURL is nil when no
// photo was sent or its upload failed.
type CreateUserResult struct {
	UserID    string     `json:"user_id"`
	AvatarURL *string    `json:"avatar_url"`
	Role      model.Role `json:"role"`
}

func (in *CreateUserInput) normalize() error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	if !in.UserType.Valid() {
		return invalid("userType must be one of admin, staff, trainer, member")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		return invalid("a valid email is required")
	}
	if len(in.Password) < utils.MinPasswordLen {
		return invalid("password must be at least %d characters", utils.MinPasswordLen)
	}
	if in.FullName == "" {
		return invalid("fullName is required")
	}
	if in.ExperienceYears < 0 {
		return invalid("experienceYears cannot be negative")
	}
	return nil
}

// CreateUser provisions an auth account, an optional avatar, and the
// profile, role and trainer rows.  The store rows are written in one
// transaction; if it fails the auth account (and avatar) are removed so
// no orphaned login survives.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (CreateUserResult, error) {
	if err := in.normalize(); err != nil {
		return CreateUserResult{}, err
	}

	userID, err := s.accounts.Create(ctx, in.Email, in.Password)
	if err != nil {
		return CreateUserResult{}, fmt.Errorf("create auth account: %w", err)
	}

	var avatarURL *string
	if in.PhotoBase64 != "" {
		url, err := s.avatars.Save(ctx, userID, in.PhotoBase64)
		if err != nil {
			s.log.Warn("avatar upload failed, continuing without avatar", zap.String("user_id", userID), zap.Error(err))
		} else {
			avatarURL = &url
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Create(ctx, model.Profile{
			ID:               userID,
			FullName:         in.FullName,
			Email:            in.Email,
			Phone:            in.Phone,
			DateOfBirth:      in.DateOfBirth,
			Gender:           in.Gender,
			Address:          in.Address,
			EmergencyContact: in.EmergencyContact,
			AvatarURL:        avatarURL,
		}); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		if err := s.roles.Insert(ctx, userID, in.UserType); err != nil {
			return fmt.Errorf("insert role: %w", err)
		}
		if in.UserType == model.RoleTrainer {
			if _, err := s.trainers.Create(ctx, model.Trainer{
				UserID:          userID,
				Specialization:  in.Specialization,
				ExperienceYears: in.ExperienceYears,
			}); err != nil {
				return fmt.Errorf("insert trainer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.compensateCreate(ctx, userID, avatarURL != nil)
		return CreateUserResult{}, err
	}

	publish(ctx, s.events, s.log, queue.Event{
		Type:    queue.MemberCreated,
		UserID:  userID,
		Title:   "Welcome to the gym",
		Message: fmt.Sprintf("Hi %s, your %s account is ready.", in.FullName, in.UserType),
	})
	return CreateUserResult{UserID: userID, AvatarURL: avatarURL, Role: in.UserType}, nil
}

func (s *UserService) compensateCreate(ctx context.Context, userID string, hadAvatar bool) {
	ctx = context.WithoutCancel(ctx)
	if err := s.accounts.Delete(ctx, userID); err != nil {
		s.log.Error("compensation failed: auth account left behind", zap.String("user_id", userID), zap.Error(err))
	} else {
		s.log.Warn("auth account removed after failed user creation", zap.String("user_id", userID))
	}
	if hadAvatar {
		if err := s.avatars.Delete(ctx, userID); err != nil {
			s.log.Warn("avatar cleanup failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// DeleteUser removes a user.  When expectedRole is set the target must
// currently hold it.  The auth account goes first so the login is gone
// even if the store cleanup fails; repeating the call finishes the job.
func (s *UserService) DeleteUser(ctx context.Context, callerID, userID string, expectedRole model.Role) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return invalid("userId is required")
	}
	if expectedRole != "" && !expectedRole.Valid() {
		return invalid("unknown expectedRole")
	}
	if userID == callerID {
		return ErrSelfDelete
	}
	if expectedRole != "" {
		role, err := s.roles.Get(ctx, userID)
		if err != nil {
			return err
		}
		if role != expectedRole {
			return ErrRoleMismatch
		}
	} else if err := s.exists(ctx, userID); err != nil {
		return err
	}

	if err := s.accounts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete auth account: %w", err)
	}
	if err := s.sessions.DeleteForUser(ctx, userID); err != nil {
		s.log.Warn("session cleanup failed", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.roles.Delete(ctx, userID); err != nil {
			return err
		}
		return s.profiles.Delete(ctx, userID)
	}); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := s.avatars.Delete(ctx, userID); err != nil {
		s.log.Warn("avatar cleanup failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// exists reports ErrNotFound only when neither the auth account nor the
// profile is left.  Either half alone is a partial delete or a failed
// create and still has to be removable.
func (s *UserService) exists(ctx context.Context, userID string) error {
	_, err := s.accounts.GetByID(ctx, userID)
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	_, err = s.profiles.GetByID(ctx, userID)
	return err
}

// ChangeRole replaces the user's role row (delete then insert) in one
// transaction.  Promoting to trainer creates the trainer row and any other
// role drops it.
func (s *UserService) ChangeRole(ctx context.Context, userID string, role model.Role) error {
	if !role.Valid() {
		return invalid("unknown role %q", role)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Lock(ctx, userID); err != nil {
			return err
		}
		if err := s.roles.Delete(ctx, userID); err != nil {
			return err
		}
		if err := s.roles.Insert(ctx, userID, role); err != nil {
			return err
		}
		if role != model.RoleTrainer {
			return s.trainers.DeleteByUser(ctx, userID)
		}
		_, err := s.trainers.GetByUser(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			_, err = s.trainers.Create(ctx, model.Trainer{UserID: userID})
		}
		return err
	})
}

// ListUsers returns profiles with their roles.
func (s *UserService) ListUsers(ctx context.Context, role model.Role, search string) ([]model.Profile, error) {
	if role != "" && !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	return s.profiles.List(ctx, role, search)
}

// Profile returns one user's profile.
func (s *UserService) Profile(ctx context.Context, userID string) (model.Profile, error) {
	return s.profiles.GetByID(ctx, userID)
}
