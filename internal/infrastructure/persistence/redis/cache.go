package redis

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"self-heal-api/internal/application/healing"
	"self-heal-api/internal/domain/entity"
	"self-heal-api/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

const routeKeyPrefix = "heal:route:"

// RouteCache 以 JSON 缓存路由决策，实现 healing.RouteCache
type RouteCache struct {
	client *Client
	ttl    time.Duration
}

var _ healing.RouteCache = (*RouteCache)(nil)

// NewRouteCache 创建路由缓存
func NewRouteCache(client *Client, ttl time.Duration) *RouteCache {
	return &RouteCache{client: client, ttl: ttl}
}

// GetRoute 未命中或读取失败都视为 miss
func (c *RouteCache) GetRoute(ctx context.Context, key string) (entity.RouteDecision, bool) {
	ctx, span := cacheTracer.Start(ctx, "cache.GetRoute",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	var d entity.RouteDecision
	val, err := c.client.rdb.Get(ctx, routeKeyPrefix+key).Bytes()
	if err != nil {
		if !IsNil(err) {
			span.RecordError(err)
			logger.Warn(ctx, "route cache get failed", "error", err.Error())
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return d, false
	}
	if err := json.Unmarshal(val, &d); err != nil {
		logger.Warn(ctx, "route cache entry corrupted", "error", err.Error())
		return d, false
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return d, true
}

// SetRoute 写入失败只记录日志
func (c *RouteCache) SetRoute(ctx context.Context, key string, d entity.RouteDecision) {
	ctx, span := cacheTracer.Start(ctx, "cache.SetRoute",
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.Int64("cache.ttl_ms", c.ttl.Milliseconds()),
		))
	defer span.End()

	b, err := json.Marshal(d)
	if err != nil {
		span.RecordError(err)
		return
	}
	if err := c.client.rdb.Set(ctx, routeKeyPrefix+key, b, c.ttl).Err(); err != nil {
		span.RecordError(err)
		logger.Warn(ctx, "route cache set failed", "error", err.Error())
	}
}
