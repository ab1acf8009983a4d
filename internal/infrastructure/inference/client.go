// Package inference 提供向量化与重排推理服务的 HTTP 客户端
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"self-heal-api/pkg/logger"
	"self-heal-api/pkg/metrics"
	"self-heal-api/pkg/signature"
	"self-heal-api/pkg/tracer"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultTokenHeader = "X-Token"
	defaultSubject     = "Heal"

	// maxErrorBody 错误响应体仅截取前若干字节写入日志
	maxErrorBody = 512
)

// Auth 出站调用令牌配置
type Auth struct {
	Signer  *signature.Signer
	Header  string
	Subject string
}

// transport 两个客户端共用的 JSON POST 调用
type transport struct {
	service    string
	auth       Auth
	httpClient *http.Client
}

func newTransport(service string, auth Auth, timeout time.Duration) transport {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if auth.Header == "" {
		auth.Header = defaultTokenHeader
	}
	if auth.Subject == "" {
		auth.Subject = defaultSubject
	}
	return transport{
		service:    service,
		auth:       auth,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// StatusError 推理服务返回非 2xx
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed: status=%d", e.Service, e.StatusCode)
}

// postJSON 发送请求并把响应解码到 out；每次调用都签发新令牌
func (t transport) postJSON(ctx context.Context, endpoint string, in, out any) (err error) {
	ctx, span := tracer.Start(ctx, "inference."+t.service)
	defer span.End()
	span.SetAttributes(attribute.String("inference.endpoint", endpoint))

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.InferenceCallDuration.WithLabelValues(t.service).Observe(time.Since(start).Seconds())
		metrics.InferenceCallTotal.WithLabelValues(t.service, status).Inc()
	}()

	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return fmt.Errorf("%s endpoint is empty", t.service)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", t.service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", t.service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.auth.Signer != nil {
		req.Header.Set(t.auth.Header, t.auth.Signer.Issue(t.auth.Subject))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", t.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Warn(ctx, "inference call returned non-2xx",
			"service", t.service,
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return &StatusError{Service: t.service, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", t.service, err)
	}
	return nil
}
