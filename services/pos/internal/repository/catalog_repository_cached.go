package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/pos-engine/pkg/mylogger"
	"github.com/sakashimaa/pos-engine/pkg/utils"
	"github.com/sakashimaa/pos-engine/services/pos/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CatalogInvalidator evicts cached catalog entries after upstream changes.
type CatalogInvalidator interface {
	InvalidateProduct(ctx context.Context, productID int64) error
	InvalidateCombo(ctx context.Context, comboID int64) error
}

// CachedCatalog serves products and combos from redis for reads outside a
// transaction, which is what menu lookups do. A read with a non-nil q is part
// of a transaction and always goes to the store, so pricing never sees a stale
// price or active flag. Option groups and values are never cached.
type CachedCatalog interface {
	CatalogRepository
	CatalogInvalidator
}

type cachedCatalogRepo struct {
	next        CatalogRepository
	redisClient *redis.Client
	cacheTTL    time.Duration
	cb          *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

func NewCachedCatalogRepository(next CatalogRepository, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) CachedCatalog {
	return &cachedCatalogRepo{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    ttl,
		cb:          utils.NewBreaker("CatalogCache", logger),
		logger:      logger,
	}
}

func productKey(id int64) string { return fmt.Sprintf("pos:product:%d", id) }
func comboKey(id int64) string   { return fmt.Sprintf("pos:combo:%d", id) }
func membersKey(id int64) string { return fmt.Sprintf("pos:combo:%d:members", id) }

func (r *cachedCatalogRepo) GetProduct(ctx context.Context, q Querier, id int64) (*domain.Product, error) {
	if q != nil {
		return r.next.GetProduct(ctx, q, id)
	}

	var product domain.Product
	if r.load(ctx, productKey(id), &product) {
		return &product, nil
	}

	res, err := r.next.GetProduct(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, productKey(id), res)
	return res, nil
}

func (r *cachedCatalogRepo) ListActiveOptionGroups(ctx context.Context, q Querier, productID int64) ([]domain.OptionGroup, error) {
	return r.next.ListActiveOptionGroups(ctx, q, productID)
}

func (r *cachedCatalogRepo) ListActiveOptionValues(ctx context.Context, q Querier, groupIDs []int64) ([]domain.OptionValue, error) {
	return r.next.ListActiveOptionValues(ctx, q, groupIDs)
}

func (r *cachedCatalogRepo) GetCombo(ctx context.Context, q Querier, id int64) (*domain.Combo, error) {
	if q != nil {
		return r.next.GetCombo(ctx, q, id)
	}

	var combo domain.Combo
	if r.load(ctx, comboKey(id), &combo) {
		return &combo, nil
	}

	res, err := r.next.GetCombo(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	r.store(ctx, comboKey(id), res)
	return res, nil
}

func (r *cachedCatalogRepo) ListComboMembers(ctx context.Context, q Querier, comboID int64) ([]domain.ComboMember, error) {
	if q != nil {
		return r.next.ListComboMembers(ctx, q, comboID)
	}

	var members []domain.ComboMember
	if r.load(ctx, membersKey(comboID), &members) {
		return members, nil
	}

	res, err := r.next.ListComboMembers(ctx, nil, comboID)
	if err != nil {
		return nil, err
	}

	r.store(ctx, membersKey(comboID), res)
	return res, nil
}

func (r *cachedCatalogRepo) InvalidateProduct(ctx context.Context, productID int64) error {
	return r.redisClient.Del(ctx, productKey(productID)).Err()
}

func (r *cachedCatalogRepo) InvalidateCombo(ctx context.Context, comboID int64) error {
	return r.redisClient.Del(ctx, comboKey(comboID), membersKey(comboID)).Err()
}

// load reports whether key was found and decoded. Cache failures are logged and
// treated as misses.
func (r *cachedCatalogRepo) load(ctx context.Context, key string, dst any) bool {
	val, err := utils.ExecuteWithBreaker(r.cb, func() (string, error) {
		val, err := r.redisClient.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return val, err
	})
	if err != nil {
		mylogger.Warn(ctx, r.logger, "Catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}

	if val == "" {
		return false
	}

	if err := json.Unmarshal([]byte(val), dst); err != nil {
		mylogger.Warn(ctx, r.logger, "Catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}

	return true
}

func (r *cachedCatalogRepo) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		mylogger.Warn(ctx, r.logger, "Catalog cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	_, err = utils.ExecuteWithBreaker(r.cb, func() (string, error) {
		return r.redisClient.Set(ctx, key, data, r.cacheTTL).Result()
	})
	if err != nil {
		mylogger.Warn(ctx, r.logger, "Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
