package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/webshop/backend/internal/apperr"
)

const minPasswordLen = 8

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, phone string) (*User, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	fields := map[string]string{}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "a valid email is required"
	}
	if len(input.Password) < minPasswordLen {
		fields["password"] = fmt.Sprintf("password must be at least %d characters", minPasswordLen)
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid registration", fields)
	}

	// The unique index still backstops concurrent registrations; this check
	// just answers the common case without burning a bcrypt hash.
	switch _, err := s.repo.GetByEmail(ctx, email); {
	case err == nil:
		return nil, apperr.Conflict("email already registered")
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("service: failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate user id: %w", err)
	}
	u := &User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("service: failed to register user: %w", err)
	}
	log.Info().Stringer("user_id", u.ID).Msg("service: user registered")
	return u, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("service: failed to fetch user: %w", err)
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, phone string) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.FirstName = firstName
	u.LastName = lastName
	u.Phone = phone
	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, fmt.Errorf("service: failed to update user: %w", err)
	}
	return u, nil
}
