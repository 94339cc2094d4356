package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// TemplateCache fronts the gateway's template endpoints with Redis. Misses
// and Redis outages fall through to the gateway; a template fetch is cheap
// enough that the cache is strictly an optimization.
type TemplateCache struct {
	client *Client
	redis  *redis.Client
	ttl    time.Duration
}

func NewTemplateCache(client *Client, rdb *redis.Client, ttl time.Duration) *TemplateCache {
	return &TemplateCache{client: client, redis: rdb, ttl: ttl}
}

func customerKey(environment, customerID string) string {
	return fmt.Sprintf("punchlab:tmpl:%s:customer:%s", environment, customerID)
}

func environmentKey(environment string) string {
	return fmt.Sprintf("punchlab:tmpl:%s:default", environment)
}

// notFoundMarker caches template misses so a missing customer template does
// not hit the gateway on every attempt.
const notFoundMarker = "\x00notfound"

func (tc *TemplateCache) CustomerTemplate(ctx context.Context, environment, customerID string) (string, error) {
	return tc.lookup(ctx, customerKey(environment, customerID), func() (string, error) {
		return tc.client.CustomerTemplate(ctx, environment, customerID)
	})
}

func (tc *TemplateCache) EnvironmentTemplate(ctx context.Context, environment string) (string, error) {
	return tc.lookup(ctx, environmentKey(environment), func() (string, error) {
		return tc.client.EnvironmentTemplate(ctx, environment)
	})
}

func (tc *TemplateCache) lookup(ctx context.Context, key string, fetch func() (string, error)) (string, error) {
	if tc.redis != nil {
		val, err := tc.redis.Get(ctx, key).Result()
		if err == nil {
			if val == notFoundMarker {
				return "", ErrTemplateNotFound
			}
			return val, nil
		}
		if err != redis.Nil {
			log.Printf("gateway: template cache get %s: %v", key, err)
		}
	}

	tmpl, err := fetch()
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			tc.put(ctx, key, notFoundMarker)
		}
		return "", err
	}
	tc.put(ctx, key, tmpl)
	return tmpl, nil
}

func (tc *TemplateCache) put(ctx context.Context, key, val string) {
	if tc.redis == nil {
		return
	}
	if err := tc.redis.Set(ctx, key, val, tc.ttl).Err(); err != nil {
		log.Printf("gateway: template cache set %s: %v", key, err)
	}
}

// Invalidate drops cached templates for one environment/customer pair.
func (tc *TemplateCache) Invalidate(ctx context.Context, environment, customerID string) {
	if tc.redis == nil {
		return
	}
	tc.redis.Del(ctx, customerKey(environment, customerID), environmentKey(environment))
}
