// Package milvus 提供基于 Milvus / Zilliz Cloud 的页面元素向量存储
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"go.opentelemetry.io/otel"

	"self-heal-api/internal/config"
)

var tracer = otel.Tracer("milvus")

const defaultConnectTimeout = 30 * time.Second

// Client Milvus 连接
type Client struct {
	milvus client.Client
}

// NewClient 连接 Milvus；配置了 APIKey 时按 Zilliz Cloud 方式认证
func NewClient(ctx context.Context, cfg *config.MilvusConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Address,
		Username: cfg.User,
		Password: cfg.Password,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}
	return &Client{milvus: c}, nil
}

// Milvus 获取底层 Milvus 客户端
func (c *Client) Milvus() client.Client {
	return c.milvus
}

// Close 关闭 Milvus 连接
func (c *Client) Close() error {
	return c.milvus.Close()
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "milvus.HealthCheck")
	defer span.End()

	if _, err := c.milvus.HasCollection(ctx, "health_check"); err != nil {
		span.RecordError(err)
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
