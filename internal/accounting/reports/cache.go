package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-ledger/internal/shared"
)

// Cache stores built reports in redis under a per-tenant version. Bumping the
// version after a posting orphans every older key; TTL reclaims them.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the tenant's cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context, tenant shared.TenantID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := shared.ReportCacheVersionKey(tenant)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so a concurrent Bump is not overwritten.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the tenant's current version.
func (c *Cache) BuildKey(ctx context.Context, tenant shared.TenantID, parts ...string) (string, error) {
	base := strings.Join(append([]string{"ledger", "tenant", tenant.String(), "reports"}, parts...), ":")
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.Version(ctx, tenant)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d", base, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the tenant's reports and publishes the new version.
func (c *Cache) Bump(ctx context.Context, tenant shared.TenantID) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, shared.ReportCacheVersionKey(tenant)).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, shared.ReportCacheChannel, tenant.String()+":"+strconv.FormatInt(ver, 10)).Err()
}

// Subscribe calls fn for every bump published by any instance until ctx ends.
func (c *Cache) Subscribe(ctx context.Context, fn func(tenant shared.TenantID, version int64)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, shared.ReportCacheChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				tenant, ver, ok := parseBump(msg.Payload)
				if ok {
					fn(tenant, ver)
				}
			}
		}
	}()
	return nil
}

func parseBump(payload string) (shared.TenantID, int64, bool) {
	rawTenant, rawVer, ok := strings.Cut(payload, ":")
	if !ok {
		return 0, 0, false
	}
	tenant, err := shared.ParseTenantID(rawTenant)
	if err != nil {
		return 0, 0, false
	}
	ver, err := strconv.ParseInt(rawVer, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return tenant, ver, true
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
