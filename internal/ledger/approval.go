package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rcavanagh/orderdesk-backend/pkg/config"
	pkgerrors "github.com/rcavanagh/orderdesk-backend/pkg/errors"
	"github.com/rcavanagh/orderdesk-backend/pkg/security"
)

type approvalCodeCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ApprovalCodeKey(entryID string) string
}

// ApprovalCodeStore issues and consumes the one-time codes that let a
// non-elevated caller approve a manual payment. A code is bound to one
// entry, expires on its TTL, and is deleted the first time it matches.
type ApprovalCodeStore interface {
	Issue(ctx context.Context, entryID uuid.UUID) (string, error)
	Consume(ctx context.Context, entryID uuid.UUID, code string) error
}

type approvalCodeStore struct {
	cache approvalCodeCache
	cfg   config.ApprovalCodeConfig
}

// NewApprovalCodeStore builds the redis-backed code store.
func NewApprovalCodeStore(cache approvalCodeCache, cfg config.ApprovalCodeConfig) (ApprovalCodeStore, error) {
	if cache == nil {
		return nil, fmt.Errorf("approval code cache required")
	}
	return &approvalCodeStore{cache: cache, cfg: cfg}, nil
}

// Issue generates a fresh code and stores only its hash. Issuing again for
// the same entry replaces any outstanding code.
func (s *approvalCodeStore) Issue(ctx context.Context, entryID uuid.UUID) (string, error) {
	if entryID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}

	code, err := security.GenerateApprovalCode(s.cfg.Length)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate approval code")
	}
	hash, err := security.HashApprovalCode(code, s.cfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash approval code")
	}

	key := s.cache.ApprovalCodeKey(entryID.String())
	if err := s.cache.Set(ctx, key, hash, s.cfg.TTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store approval code")
	}
	return code, nil
}

// Consume checks the supplied code against the stored hash and burns it on
// a match. A wrong code does not burn the stored one.
func (s *approvalCodeStore) Consume(ctx context.Context, entryID uuid.UUID, code string) error {
	if entryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entry id required")
	}
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeForbidden, "approval code required")
	}

	key := s.cache.ApprovalCodeKey(entryID.String())
	hash, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "approval code invalid or expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load approval code")
	}

	ok, err := security.VerifyApprovalCode(code, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify approval code")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "approval code invalid or expired")
	}

	if err := s.cache.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "burn approval code")
	}
	return nil
}
