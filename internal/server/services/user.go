// Package services contains server-side business logic for the security
// pipeline: credential registration/authentication and upload processing.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/dmitrijs2005/blogapi/internal/common"
	"github.com/dmitrijs2005/blogapi/internal/logging"
	"github.com/dmitrijs2005/blogapi/internal/server/models"
	"github.com/dmitrijs2005/blogapi/internal/server/repositories/repomanager"
)

const (
	// DefaultBcryptCost is deliberately expensive; lowering it trades the
	// whole point of a slow hash for latency.
	DefaultBcryptCost = 12

	// defaultLookupTimeout bounds the credential lookup. A timed-out
	// authentication attempt fails; it is never retried, because retries
	// reintroduce the timing signal the dummy hash exists to remove.
	defaultLookupTimeout = 5 * time.Second
)

// CredentialService handles registration and authentication. All bcrypt work
// runs on the shared bounded pool so a burst of signups cannot starve the
// rest of the pipeline.
type CredentialService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	logger        logging.Logger
	pool          *semaphore.Weighted
	cost          int
	lookupTimeout time.Duration

	// dummyHash is compared against when no record exists, so "unknown
	// email" costs the same wall-clock time as "wrong password".
	dummyHash []byte
}

type CredentialOption func(*CredentialService)

// WithBcryptCost overrides the hash cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) CredentialOption {
	return func(s *CredentialService) {
		s.cost = cost
	}
}

// WithLookupTimeout overrides the credential lookup timeout.
func WithLookupTimeout(d time.Duration) CredentialOption {
	return func(s *CredentialService) {
		s.lookupTimeout = d
	}
}

// NewCredentialService constructs a CredentialService using the repository
// manager and the shared worker pool.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, pool *semaphore.Weighted, opts ...CredentialOption) (*CredentialService, error) {
	s := &CredentialService{
		db:            db,
		repomanager:   m,
		logger:        logger,
		pool:          pool,
		cost:          DefaultBcryptCost,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, o := range opts {
		o(s)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), s.cost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}
	s.dummyHash = dummy

	return s, nil
}

// NormalizeEmail is the single place email case/space normalization happens;
// the unique index sees exactly this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register hashes the password and inserts the record directly, relying on
// the store's unique constraint for duplicate detection. The returned user
// never carries the hash.
func (s *CredentialService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || !strings.Contains(email, "@") || password == "" {
		return nil, common.ErrorValidation
	}

	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	dbCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	user, err := repo.Create(dbCtx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "creating user", "err", err)
		return nil, common.ErrorInternal
	}

	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies credentials. Whether or not a record exists, exactly
// one bcrypt comparison of equivalent cost runs before any return, and both
// "unknown email" and "wrong password" come back as the same
// common.ErrorUnauthorized.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)

	dbCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	user, err := repo.GetUserByEmail(dbCtx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn one comparison so response time does not reveal
			// whether the email exists
			_ = s.comparePassword(ctx, s.dummyHash, password)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "looking up user", "err", err)
		return nil, common.ErrorInternal
	}

	if err := s.comparePassword(ctx, []byte(user.PasswordHash), password); err != nil {
		return nil, common.ErrorUnauthorized
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *CredentialService) hashPassword(ctx context.Context, password string) (string, error) {
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return "", common.ErrorInternal
	}
	defer s.pool.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		s.logger.Error(ctx, "hashing password", "err", err)
		return "", common.ErrorInternal
	}
	return string(hash), nil
}

func (s *CredentialService) comparePassword(ctx context.Context, hash []byte, password string) error {
	if err := s.pool.Acquire(ctx, 1); err != nil {
		return common.ErrorInternal
	}
	defer s.pool.Release(1)

	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}
