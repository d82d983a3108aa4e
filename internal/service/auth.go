package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/fintrack-server/internal/logger"
	"github.com/dtroode/fintrack-server/internal/model"
)

// Session is what clients receive after registering or logging in.
type Session struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

type Auth struct {
	userStore    model.UserStore
	tokenManager model.TokenManager
	logger       *logger.Logger
	hashCost     int
}

func NewAuth(
	userStore model.UserStore,
	tokenManager model.TokenManager,
	logger *logger.Logger,
	hashCost int,
) *Auth {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &Auth{
		userStore:    userStore,
		tokenManager: tokenManager,
		logger:       logger,
		hashCost:     hashCost,
	}
}

// Register creates an account and signs a token for it. An email that is
// already registered yields model.ErrConflict.
func (a *Auth) Register(ctx context.Context, name, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateRegistration(name, email, password); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.hashCost)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.userStore.Create(ctx, model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, model.ErrConflict) {
		a.logger.Info("Auth service: email already registered", "email", email)
		return Session{}, err
	}
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return Session{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered", "user_id", user.ID)
	return a.session(user)
}

// Login checks the credentials and signs a token. Any mismatch yields
// model.ErrInvalidCredentials.
func (a *Auth) Login(ctx context.Context, email, password string) (Session, error) {
	if email == "" || password == "" {
		return Session{}, model.ErrInvalidCredentials
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return Session{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		a.logger.Info("Auth service: password mismatch", "user_id", user.ID)
		return Session{}, model.ErrInvalidCredentials
	}

	return a.session(user)
}

// Me returns the public profile of the authenticated caller.
func (a *Auth) Me(ctx context.Context, id string) (model.PublicUser, error) {
	user, err := a.userStore.GetByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user.Public(), nil
}

func (a *Auth) session(user model.User) (Session, error) {
	token, err := a.tokenManager.Issue(model.Identity{ID: user.ID, Email: user.Email, Name: user.Name})
	if err != nil {
		a.logger.Error("Auth service: failed to issue token",
			"user_id", user.ID,
			"error", err.Error())
		return Session{}, fmt.Errorf("failed to issue token: %w", err)
	}
	return Session{User: user.Public(), Token: token}, nil
}
