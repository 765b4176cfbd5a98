package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// Directory is what the identity handlers need from the user store.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (User, error)
	CreateSession(ctx context.Context, u User) (Session, error)
	CreateUser(ctx context.Context, in RegisterInput) (User, error)
}

var validate = validator.New()

type Service struct {
	repo     Repository
	sessions *Sessions
}

func NewService(repo Repository, sessions *Sessions) *Service {
	return &Service{repo: repo, sessions: sessions}
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) CreateSession(ctx context.Context, u User) (Session, error) {
	if u.ID <= 0 {
		return Session{}, ErrNotFound
	}
	return s.sessions.Issue(u)
}

func (s *Service) CreateUser(ctx context.Context, in RegisterInput) (User, error) {
	if err := validate.Struct(in); err != nil {
		var validationErr validator.ValidationErrors
		if errors.As(err, &validationErr) {
			switch validationErr[0].Field() {
			case "Username":
				return User{}, fmt.Errorf("%w: username must be 3-150 characters", ErrInvalidInput)
			case "Email":
				return User{}, fmt.Errorf("%w: invalid email format", ErrInvalidInput)
			case "Password1":
				return User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
			case "Password2":
				return User{}, fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
			}
		}
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password1), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashed),
	})
}
