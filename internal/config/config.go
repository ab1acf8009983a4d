// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Inference     InferenceConfig     `yaml:"inference" mapstructure:"inference"`
	Healing       HealingConfig       `yaml:"healing" mapstructure:"healing"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// VectorConfig 向量库配置，Provider 取值 milvus / chromem
type VectorConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"`
	Milvus   MilvusConfig  `yaml:"milvus" mapstructure:"milvus"`
	Chromem  ChromemConfig `yaml:"chromem" mapstructure:"chromem"`
}

// MilvusConfig Milvus / Zilliz Cloud 配置
type MilvusConfig struct {
	Address    string        `yaml:"address" mapstructure:"address"`
	APIKey     string        `yaml:"api_key" mapstructure:"api_key"`
	User       string        `yaml:"user" mapstructure:"user"`
	Password   string        `yaml:"password" mapstructure:"password"`
	Collection string        `yaml:"collection" mapstructure:"collection"`
	Dimension  int           `yaml:"dimension" mapstructure:"dimension"`
	IndexType  string        `yaml:"index_type" mapstructure:"index_type"`
	MetricType string        `yaml:"metric_type" mapstructure:"metric_type"`
	HNSWM      int           `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEf     int           `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ChromemConfig 嵌入式向量库配置，Path 为空时只驻留内存
type ChromemConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig LLM 提供商配置（OpenAI 兼容接口）
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// InferenceConfig 向量化 / 重排推理服务配置
type InferenceConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank" mapstructure:"rerank"`
	Token     TokenConfig     `yaml:"token" mapstructure:"token"`
}

// EmbeddingConfig 按模型标识（en / zh）配置端点
type EmbeddingConfig struct {
	Endpoints map[string]string `yaml:"endpoints" mapstructure:"endpoints"`
	Timeout   time.Duration     `yaml:"timeout" mapstructure:"timeout"`
}

// RerankConfig 交叉编码重排服务
type RerankConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TokenConfig 出站调用令牌
type TokenConfig struct {
	Header  string        `yaml:"header" mapstructure:"header"`
	Subject string        `yaml:"subject" mapstructure:"subject"`
	Secret  string        `yaml:"secret" mapstructure:"secret"`
	TTLMin  time.Duration `yaml:"ttl_min" mapstructure:"ttl_min"`
	TTLMax  time.Duration `yaml:"ttl_max" mapstructure:"ttl_max"`
}

// HealingConfig 自愈流水线参数
type HealingConfig struct {
	RecallK           int           `yaml:"recall_k" mapstructure:"recall_k"`
	TopK              int           `yaml:"top_k" mapstructure:"top_k"`
	InsertConcurrency int           `yaml:"insert_concurrency" mapstructure:"insert_concurrency"`
	RouterSampleSize  int           `yaml:"router_sample_size" mapstructure:"router_sample_size"`
	RouterProvider    string        `yaml:"router_provider" mapstructure:"router_provider"`
	ArbiterProvider   string        `yaml:"arbiter_provider" mapstructure:"arbiter_provider"`
	Temperature       float64       `yaml:"temperature" mapstructure:"temperature"`
	RouteCacheTTL     time.Duration `yaml:"route_cache_ttl" mapstructure:"route_cache_ttl"` // 0 关闭路由缓存
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// AuthConfig 入站 X-App-ID / X-App-Token 校验
type AuthConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Secret  string        `yaml:"secret" mapstructure:"secret"`
	Leeway  time.Duration `yaml:"leeway" mapstructure:"leeway"`
}

// RateLimitConfig 限流配置（按应用维度的滑动窗口）
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
