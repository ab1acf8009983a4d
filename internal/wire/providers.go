package wire

import (
	"context"
	"fmt"
	"strings"

	"self-heal-api/internal/application/healing"
	"self-heal-api/internal/config"
	"self-heal-api/internal/infrastructure/inference"
	"self-heal-api/internal/infrastructure/llm"
	"self-heal-api/internal/infrastructure/persistence/chromem"
	"self-heal-api/internal/infrastructure/persistence/milvus"
	"self-heal-api/internal/infrastructure/persistence/redis"
	"self-heal-api/internal/interfaces/http/handler"
	"self-heal-api/internal/interfaces/http/middleware"
	"self-heal-api/internal/interfaces/http/router"
	"self-heal-api/pkg/logger"
	"self-heal-api/pkg/signature"
	"self-heal-api/pkg/utils"
)

// VectorBackend 当前启用的向量库
type VectorBackend struct {
	Name   string
	Store  healing.VectorStore
	Health handler.HealthChecker
}

// ProvideVectorBackend 按 vector.provider 创建向量库；milvus 会确保集合与索引存在
func ProvideVectorBackend(ctx context.Context, cfg *config.Config) (*VectorBackend, func(), error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Vector.Provider)); provider {
	case "", "milvus", "zilliz":
		client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
		if err != nil {
			return nil, nil, err
		}
		store := milvus.NewStore(client, milvus.StoreOptions{
			Collection: cfg.Vector.Milvus.Collection,
			Dimension:  cfg.Vector.Milvus.Dimension,
			HNSWM:      cfg.Vector.Milvus.HNSWM,
			HNSWEf:     cfg.Vector.Milvus.HNSWEf,
		})
		if err := store.EnsureCollection(ctx); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		cleanup := func() {
			_ = client.Close()
		}
		return &VectorBackend{Name: "milvus", Store: store, Health: client}, cleanup, nil

	case "chromem":
		store, err := chromem.NewStore(cfg.Vector.Chromem)
		if err != nil {
			return nil, nil, err
		}
		return &VectorBackend{Name: "chromem", Store: store, Health: store}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown vector provider %q", provider)
	}
}

// ProvideRedisClientOptional Redis 关闭或不可达时返回 nil，限流与路由缓存随之停用
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, rate limit and route cache disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRateLimiter 返回 nil 接口表示不限流
func ProvideRateLimiter(cfg *config.Config, client *redis.Client) middleware.RateLimiter {
	if client == nil || !cfg.Security.RateLimit.Enabled {
		return nil
	}
	return redis.NewRateLimiter(client)
}

// ProvideRouteCache 返回 nil 接口表示不缓存路由决策
func ProvideRouteCache(cfg *config.Config, client *redis.Client) healing.RouteCache {
	if client == nil || cfg.Healing.RouteCacheTTL <= 0 {
		return nil
	}
	return redis.NewRouteCache(client, cfg.Healing.RouteCacheTTL)
}

// ProvideSigner 出站令牌签发器
func ProvideSigner(cfg *config.Config) *signature.Signer {
	t := cfg.Inference.Token
	return signature.NewSigner(t.Secret, t.TTLMin, t.TTLMax)
}

func inferenceAuth(cfg *config.Config, signer *signature.Signer) inference.Auth {
	return inference.Auth{
		Signer:  signer,
		Header:  cfg.Inference.Token.Header,
		Subject: cfg.Inference.Token.Subject,
	}
}

// ProvideEmbeddingClient 向量化客户端
func ProvideEmbeddingClient(cfg *config.Config, signer *signature.Signer) *inference.EmbeddingClient {
	e := cfg.Inference.Embedding
	return inference.NewEmbeddingClient(e.Endpoints, inferenceAuth(cfg, signer), e.Timeout)
}

// ProvideRerankClient 重排客户端
func ProvideRerankClient(cfg *config.Config, signer *signature.Signer) *inference.RerankClient {
	r := cfg.Inference.Rerank
	return inference.NewRerankClient(r.Endpoint, inferenceAuth(cfg, signer), r.Timeout)
}

// ProvideEinoFactory LLM 工厂
func ProvideEinoFactory(cfg *config.Config) *llm.EinoFactory {
	return llm.NewEinoFactory(cfg.LLM)
}

// ProvideEngine 组装自愈流水线
func ProvideEngine(
	cfg *config.Config,
	embedder *inference.EmbeddingClient,
	reranker *inference.RerankClient,
	backend *VectorBackend,
	factory *llm.EinoFactory,
	cache healing.RouteCache,
) *healing.Engine {
	h := cfg.Healing
	temperature := float32(h.Temperature)
	return healing.NewEngine(healing.Deps{
		Embedder:   embedder,
		Reranker:   reranker,
		Store:      backend.Store,
		LLM:        factory,
		RouteCache: cache,
	}, healing.Config{
		RecallK:           h.RecallK,
		TopK:              h.TopK,
		InsertConcurrency: h.InsertConcurrency,
		RouterSampleSize:  h.RouterSampleSize,
		Router:            healing.LLMOptions{Provider: h.RouterProvider, Temperature: &temperature},
		Arbiter:           healing.LLMOptions{Provider: h.ArbiterProvider, Temperature: &temperature},
	})
}

// ProvideTokenVerifier 入站认证关闭时返回 nil
func ProvideTokenVerifier(cfg *config.Config) middleware.TokenVerifier {
	a := cfg.Security.Auth
	if !a.Enabled {
		return nil
	}
	return utils.NewAppTokenManager(a.Secret, a.Leeway)
}

// ProvideHealthChecks 就绪检查依赖
func ProvideHealthChecks(backend *VectorBackend, client *redis.Client) map[string]handler.HealthChecker {
	checks := map[string]handler.HealthChecker{
		backend.Name: backend.Health,
	}
	if client != nil {
		checks["redis"] = client
	}
	return checks
}

// ProvideRouterDeps 路由依赖
func ProvideRouterDeps(
	engine *healing.Engine,
	verifier middleware.TokenVerifier,
	limiter middleware.RateLimiter,
	checks map[string]handler.HealthChecker,
) router.Deps {
	return router.Deps{
		Healer:   engine,
		Verifier: verifier,
		Limiter:  limiter,
		Checks:   checks,
	}
}
