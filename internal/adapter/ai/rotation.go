package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Values shipped in sample env files; never worth a network round trip.
var placeholderCredentials = map[string]struct{}{
	"placeholder_api_key": {},
	"your_api_key_here":   {},
	"your-api-key":        {},
	"changeme":            {},
}

// CredentialPool is the process-wide credential state shared by all requests:
// the ordered credentials, the set retired as exhausted, and the index new
// requests start from. The exhausted set only grows.
type CredentialPool struct {
	mu        sync.RWMutex
	creds     []string
	exhausted map[int]struct{}
	active    int
}

// NewCredentialPool trims, de-duplicates and drops empty or placeholder
// entries while keeping the original order.
func NewCredentialPool(raw []string) *CredentialPool {
	seen := make(map[string]struct{}, len(raw))
	creds := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := placeholderCredentials[strings.ToLower(c)]; ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		creds = append(creds, c)
	}
	return &CredentialPool{creds: creds, exhausted: map[int]struct{}{}}
}

// Size is the number of usable-at-construction credentials.
func (p *CredentialPool) Size() int { return len(p.creds) }

func (p *CredentialPool) at(i int) string { return p.creds[i] }

// Start returns the credential a new request should try first.
func (p *CredentialPool) Start() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextUsableLocked(p.active - 1)
}

// NextUsable returns the first non-exhausted credential after idx, wrapping
// around. It may return idx itself when idx is the only one left.
func (p *CredentialPool) NextUsable(idx int) (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextUsableLocked(idx)
}

func (p *CredentialPool) nextUsableLocked(idx int) (int, bool) {
	n := len(p.creds)
	for step := 1; step <= n; step++ {
		i := ((idx+step)%n + n) % n
		if _, dead := p.exhausted[i]; !dead {
			return i, true
		}
	}
	return 0, false
}

// MarkExhausted retires idx for the lifetime of the process and returns the
// size of the exhausted set.
func (p *CredentialPool) MarkExhausted(idx int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exhausted[idx] = struct{}{}
	if p.active == idx {
		if next, ok := p.nextUsableLocked(idx); ok {
			p.active = next
		}
	}
	return len(p.exhausted)
}

// IsExhausted reports whether idx has been retired.
func (p *CredentialPool) IsExhausted(idx int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, dead := p.exhausted[idx]
	return dead
}

// Promote makes idx the starting credential for later requests.
func (p *CredentialPool) Promote(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, dead := p.exhausted[idx]; !dead {
		p.active = idx
	}
}

// PoolStats is a secret-free view of the pool.
type PoolStats struct {
	Total     int    `json:"credentials"`
	Exhausted int    `json:"exhausted_credentials"`
	Active    string `json:"active_credential,omitempty"`
}

// Stats returns counts and the fingerprint of the starting credential.
func (p *CredentialPool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := PoolStats{Total: len(p.creds), Exhausted: len(p.exhausted)}
	if idx, ok := p.nextUsableLocked(p.active - 1); ok {
		st.Active = Fingerprint(p.creds[idx])
	}
	return st
}

// Fingerprint identifies a credential in logs and limiter keys without revealing it.
func Fingerprint(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:4])
}
