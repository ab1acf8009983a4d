//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"self-heal-api/internal/config"
	"self-heal-api/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StorageSet,
		InferenceSet,
		HealingSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StorageSet 向量库与 Redis
var StorageSet = wire.NewSet(
	ProvideVectorBackend,
	ProvideRedisClientOptional,
	ProvideRouteCache,
	ProvideRateLimiter,
)

// InferenceSet 推理服务客户端
var InferenceSet = wire.NewSet(
	ProvideSigner,
	ProvideEmbeddingClient,
	ProvideRerankClient,
	ProvideEinoFactory,
)

// HealingSet 自愈流水线
var HealingSet = wire.NewSet(
	ProvideEngine,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideTokenVerifier,
	ProvideHealthChecks,
	ProvideRouterDeps,
	router.New,
)
