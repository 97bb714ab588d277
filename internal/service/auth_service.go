package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"parcelbox/internal/models"
	"parcelbox/internal/security"
	"parcelbox/internal/session"
	"parcelbox/internal/store"
)

const usersCollection = "users"

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	db       store.Store
	tokens   *security.TokenIssuer
	sessions *session.Store
	log      zerolog.Logger
}

func NewAuthService(db store.Store, tokens *security.TokenIssuer, sessions *session.Store, log zerolog.Logger) *AuthService {
	return &AuthService{
		db:       db,
		tokens:   tokens,
		sessions: sessions,
		log:      log,
	}
}

func (s *AuthService) loadUsers(ctx context.Context) ([]models.User, error) {
	doc, err := s.db.Get(ctx, usersCollection)
	if err != nil {
		if errors.Is(err, store.ErrCollectionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var users []models.User
	if err := json.Unmarshal(doc, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

type LoginResult struct {
	Token   string
	Session models.Session
}

func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return LoginResult{}, err
	}

	var user *models.User
	for i := range users {
		if users[i].Username == username {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.IssueUserToken(username)
	if err != nil {
		return LoginResult{}, err
	}

	sess, err := s.sessions.Create(ctx, username, token)
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info().Str("username", username).Msg("user logged in")
	return LoginResult{Token: token, Session: sess}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if _, err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	return nil
}

// IssueDeviceToken mints a long-lived credential for a physical device.
// Operator-only; devices never mint their own.
func (s *AuthService) IssueDeviceToken(deviceID string) (string, error) {
	return s.tokens.IssueDeviceToken(deviceID)
}

// EnsureAdmin bootstraps the operator account on first start. Nothing
// happens when users already exist or no admin password is configured.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		return nil
	}

	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}

	doc, err := json.Marshal([]models.User{{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}})
	if err != nil {
		return err
	}
	if err := s.db.Put(ctx, usersCollection, doc); err != nil {
		return err
	}

	s.log.Info().Str("username", username).Msg("admin account bootstrapped")
	return nil
}
