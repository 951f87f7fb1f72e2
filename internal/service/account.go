package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockwatch/internal/auth"
	"stockwatch/internal/models"
	"stockwatch/internal/repository"
)

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AccountService handles PIN registration and login.
type AccountService struct {
	Repo   repository.Repository
	Hasher auth.PINHasher
	Tokens auth.JWT
	Logger *zap.Logger
}

func (s *AccountService) Register(ctx context.Context, email, pin string) (*Session, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrUnauthorized
	}
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, invalidf("email %q is not valid", email)
	}
	if !auth.ValidPIN(pin) {
		return nil, invalidf("PIN must be 4 letters followed by 2 digits")
	}
	hash := s.Hasher.Hash(pin)
	existing, err := s.Repo.GetUserByPINHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflictf("PIN already in use, choose another")
	}
	user := &models.User{Email: email, PINHash: hash}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("PIN already in use, choose another")
		}
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", zap.Uint64("user_id", user.ID))
	}
	return s.issue(user)
}

func (s *AccountService) Login(ctx context.Context, pin string) (*Session, error) {
	if s == nil || s.Repo == nil || !auth.ValidPIN(pin) {
		return nil, ErrUnauthorized
	}
	user, err := s.Repo.GetUserByPINHash(ctx, s.Hasher.Hash(pin))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	return s.issue(user)
}

func (s *AccountService) Me(ctx context.Context, userID uint64) (*models.User, error) {
	if s == nil || s.Repo == nil {
		return nil, ErrUnauthorized
	}
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFoundf("user %d", userID)
	}
	return user, nil
}

func (s *AccountService) issue(user *models.User) (*Session, error) {
	token, exp, err := s.Tokens.Sign(auth.Claims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}
