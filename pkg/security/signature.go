// Package security verifies HMAC-signed machine-to-machine requests and
// rejects replays.
package security

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrBadSignature     = errors.New("signature mismatch")
	ErrStaleTimestamp   = errors.New("timestamp outside the allowed window")
	ErrReplayed         = errors.New("nonce already used")
)

// NonceStore remembers nonces for a while. Claim reports false when the
// nonce was seen before.
type NonceStore interface {
	Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
}

// RedisNonceStore shares seen nonces between instances.
type RedisNonceStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisNonceStore(client redis.UniversalClient, prefix string) *RedisNonceStore {
	if prefix == "" {
		prefix = "ingest:nonce:"
	}
	return &RedisNonceStore{client: client, prefix: prefix}
}

func (s *RedisNonceStore) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+nonce, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim nonce: %w", err)
	}
	return ok, nil
}

// MemoryNonceStore is the single-instance store.
type MemoryNonceStore struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{seen: make(map[string]time.Time), clock: time.Now}
}

func (s *MemoryNonceStore) Claim(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for k, exp := range s.seen {
		if now.After(exp) {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[nonce]; ok {
		return false, nil
	}
	s.seen[nonce] = now.Add(ttl)
	return true, nil
}

// Sign computes the hex HMAC-SHA256 of "timestamp.nonce.body".
func Sign(secret []byte, timestamp int64, nonce string, body []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte("."))
	h.Write([]byte(nonce))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type VerifierConfig struct {
	Secret   string
	MaxSkew  time.Duration
	NonceTTL time.Duration
}

// SignatureVerifier checks the timestamp window and the signature before it
// claims the nonce, so unsigned requests cannot burn nonces.
type SignatureVerifier struct {
	secret   []byte
	maxSkew  time.Duration
	nonceTTL time.Duration
	nonces   NonceStore
	logger   *zap.Logger
	clock    func() time.Time
}

func NewSignatureVerifier(cfg VerifierConfig, nonces NonceStore, logger *zap.Logger) *SignatureVerifier {
	if cfg.MaxSkew <= 0 {
		cfg.MaxSkew = 5 * time.Minute
	}
	if cfg.NonceTTL < 2*cfg.MaxSkew {
		cfg.NonceTTL = 2 * cfg.MaxSkew
	}
	return &SignatureVerifier{
		secret:   []byte(cfg.Secret),
		maxSkew:  cfg.MaxSkew,
		nonceTTL: cfg.NonceTTL,
		nonces:   nonces,
		logger:   logger,
		clock:    time.Now,
	}
}

// Verify validates one signed request.
func (v *SignatureVerifier) Verify(ctx context.Context, body []byte, signature, nonce string, timestamp int64) error {
	if signature == "" || nonce == "" || timestamp == 0 {
		return ErrMissingSignature
	}

	sent := time.Unix(timestamp, 0)
	now := v.clock()
	if now.Sub(sent) > v.maxSkew || sent.Sub(now) > v.maxSkew {
		return fmt.Errorf("%w: %s", ErrStaleTimestamp, sent.UTC().Format(time.RFC3339))
	}

	sig := strings.TrimPrefix(signature, "sha256=")
	expected := Sign(v.secret, timestamp, nonce, body)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}

	fresh, err := v.nonces.Claim(ctx, nonce, v.nonceTTL)
	if err != nil {
		return err
	}
	if !fresh {
		v.logger.Warn("Signed request replayed", zap.String("nonce", nonce))
		return ErrReplayed
	}
	return nil
}

// IPAllowlist admits client addresses inside any of its networks. An empty
// list admits everyone.
type IPAllowlist struct {
	networks []*net.IPNet
}

// NewIPAllowlist accepts CIDRs and bare addresses.
func NewIPAllowlist(entries []string) (*IPAllowlist, error) {
	list := &IPAllowlist{}
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid address %q", entry)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			entry = fmt.Sprintf("%s/%d", entry, bits)
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid network %q: %w", entry, err)
		}
		list.networks = append(list.networks, network)
	}
	return list, nil
}

func (l *IPAllowlist) Allowed(clientIP string) bool {
	if l == nil || len(l.networks) == 0 {
		return true
	}
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	for _, network := range l.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
