// Package signature 生成与校验推理服务调用使用的短期令牌：
// "subject:expire_at.base64(hmac_sha256(secret, subject:expire_at))"
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("token signature mismatch")
	ErrTokenExpired   = errors.New("token expired")
)

// Signer 以共享密钥签发令牌
type Signer struct {
	secret []byte
	minTTL time.Duration
	maxTTL time.Duration
	now    func() time.Time
}

// NewSigner 签发的令牌有效期在 [minTTL, maxTTL] 内随机
func NewSigner(secret string, minTTL, maxTTL time.Duration) *Signer {
	if minTTL <= 0 {
		minTTL = time.Hour
	}
	if maxTTL < minTTL {
		maxTTL = minTTL
	}
	return &Signer{
		secret: []byte(secret),
		minTTL: minTTL,
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

// Issue 为 subject 签发一个随机有效期的令牌
func (s *Signer) Issue(subject string) string {
	ttl := s.minTTL
	if span := s.maxTTL - s.minTTL; span > 0 {
		ttl += time.Duration(rand.Int64N(int64(span) + 1))
	}
	return s.Sign(subject, s.now().Add(ttl))
}

// Sign 以秒级过期时间签名
func (s *Signer) Sign(subject string, expireAt time.Time) string {
	payload := subject + ":" + strconv.FormatInt(expireAt.Unix(), 10)
	return payload + "." + base64.StdEncoding.EncodeToString(s.mac(payload))
}

// Verify 校验签名与有效期，返回 subject
func (s *Signer) Verify(token string) (string, error) {
	dot := strings.LastIndexByte(token, '.')
	if dot <= 0 {
		return "", ErrMalformedToken
	}
	payload, sig := token[:dot], token[dot+1:]

	colon := strings.LastIndexByte(payload, ':')
	if colon < 0 {
		return "", ErrMalformedToken
	}
	expireAt, err := strconv.ParseInt(payload[colon+1:], 10, 64)
	if err != nil {
		return "", ErrMalformedToken
	}

	got, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return "", ErrMalformedToken
	}
	if !hmac.Equal(got, s.mac(payload)) {
		return "", ErrBadSignature
	}
	if s.now().Unix() > expireAt {
		return "", ErrTokenExpired
	}
	return payload[:colon], nil
}

func (s *Signer) mac(payload string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return h.Sum(nil)
}
