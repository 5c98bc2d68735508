package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frbb/loan-engine/internal/domain"
	customError "github.com/frbb/loan-engine/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedLoanRepository is a Redis cache in front of another LoanRepository.
// Only single-loan lookups are cached. Save evicts the key before writing to the
// underlying store and writes through once the store accepted the write;
// lookups only fill the cache when the key is absent, so a slow reader never
// overwrites a copy written by Save.
//
// When the write-through itself fails the key is left empty, and a reader that
// loaded the row before the write can still fill it with the older copy. That
// copy lives at most one TTL.
type CachedLoanRepository struct {
	next   LoanRepository
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.Logger
}

func NewCachedLoanRepository(next LoanRepository, client redis.Cmdable, ttl time.Duration, log *zap.Logger) *CachedLoanRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedLoanRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// LoanCacheKey returns the cache key of a loan.
func LoanCacheKey(id int64) string {
	return fmt.Sprintf("loan:%d", id)
}

func (r *CachedLoanRepository) Save(ctx context.Context, loan *domain.Loan) error {
	if loan.ID != 0 {
		if err := r.client.Del(ctx, LoanCacheKey(loan.ID)).Err(); err != nil {
			r.log.Warn("failed to evict cached loan before save", zap.Int64("loan_id", loan.ID), zap.Error(customError.WrapCacheError(err)))
		}
	}

	if err := r.next.Save(ctx, loan); err != nil {
		return err
	}

	key := LoanCacheKey(loan.ID)
	payload, err := json.Marshal(loan)
	if err == nil {
		err = r.client.Set(ctx, key, string(payload), r.ttl).Err()
	}
	if err != nil {
		r.log.Warn("failed to refresh cached loan", zap.Int64("loan_id", loan.ID), zap.Error(customError.WrapCacheError(err)))
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			r.log.Error("failed to evict stale cached loan", zap.Int64("loan_id", loan.ID), zap.Error(delErr))
		}
	}
	return nil
}

func (r *CachedLoanRepository) FindByID(ctx context.Context, id int64) (*domain.Loan, error) {
	key := LoanCacheKey(id)

	cached, err := r.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var loan domain.Loan
		jsonErr := json.Unmarshal([]byte(cached), &loan)
		if jsonErr == nil {
			return &loan, nil
		}
		r.log.Warn("discarding undecodable cached loan", zap.Int64("loan_id", id), zap.Error(jsonErr))
	case errors.Is(err, redis.Nil):
	default:
		r.log.Warn("loan cache lookup failed", zap.Int64("loan_id", id), zap.Error(customError.WrapCacheError(err)))
	}

	loan, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(loan)
	if err != nil {
		r.log.Warn("failed to encode loan for cache", zap.Int64("loan_id", id), zap.Error(err))
		return loan, nil
	}
	if err := r.client.SetNX(ctx, key, string(payload), r.ttl).Err(); err != nil {
		r.log.Warn("failed to cache loan", zap.Int64("loan_id", id), zap.Error(customError.WrapCacheError(err)))
	}

	return loan, nil
}

func (r *CachedLoanRepository) FindAllByCustomer(ctx context.Context, customerID int64) ([]*domain.Loan, error) {
	return r.next.FindAllByCustomer(ctx, customerID)
}

func (r *CachedLoanRepository) FindAll(ctx context.Context) ([]*domain.Loan, error) {
	return r.next.FindAll(ctx)
}
