// Package auth implements credential registration and login with salted
// one-way hashes. Plaintext passwords are never stored or compared directly.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"slotboard/internal/models"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

var (
	ErrUsernameTaken  = errors.New("username already taken")
	ErrBadCredentials = errors.New("unknown username or wrong password")
)

// CredentialStore persists login records.
type CredentialStore interface {
	// GetCredential returns nil, nil when the username is unknown.
	GetCredential(ctx context.Context, username string) (*models.Credential, error)
	CreateCredential(ctx context.Context, c *models.Credential) error
}

// Service registers and verifies user credentials.
type Service struct {
	store  CredentialStore
	cost   int
	logger zerolog.Logger
}

// NewService creates an auth service. cost <= 0 selects the bcrypt default.
func NewService(store CredentialStore, cost int, logger zerolog.Logger) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		store:  store,
		cost:   cost,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Register creates a credential for a new username. The username is
// normalized to lower case before storage.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = models.NormalizeIdentity(username)
	if utf8.RuneCountInString(username) < minUsernameLen {
		return fmt.Errorf("username must be at least %d characters", minUsernameLen)
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	existing, err := s.store.GetCredential(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup credential: %w", err)
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	cred := &models.Credential{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	s.logger.Info().Str("username", username).Msg("user registered")
	return nil
}

// dummyHash keeps the unknown-username path doing a real bcrypt comparison,
// so lookups and failed logins take comparable time.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("slotboard-dummy"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}()

// Login verifies username and password. The bcrypt comparison is
// constant-time by construction.
func (s *Service) Login(ctx context.Context, username, password string) error {
	username = models.NormalizeIdentity(username)

	cred, err := s.store.GetCredential(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup credential: %w", err)
	}
	if cred == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}
