package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialPool_Filters(t *testing.T) {
	t.Parallel()

	p := NewCredentialPool([]string{" k1 ", "k2", "k1", "", "   ", "changeme", "YOUR_API_KEY_HERE", "placeholder_api_key", "k3"})
	require.Equal(t, 3, p.Size())
	assert.Equal(t, "k1", p.at(0))
	assert.Equal(t, "k2", p.at(1))
	assert.Equal(t, "k3", p.at(2))
}

func TestCredentialPool_Rotation(t *testing.T) {
	t.Parallel()

	p := NewCredentialPool([]string{"k1", "k2", "k3"})
	start, ok := p.Start()
	require.True(t, ok)
	assert.Equal(t, 0, start)

	assert.Equal(t, 1, p.MarkExhausted(0))
	assert.True(t, p.IsExhausted(0))
	start, ok = p.Start()
	require.True(t, ok)
	assert.Equal(t, 1, start, "new requests skip the retired credential")

	next, ok := p.NextUsable(1)
	require.True(t, ok)
	assert.Equal(t, 2, next)
	next, ok = p.NextUsable(2)
	require.True(t, ok)
	assert.Equal(t, 1, next, "wraps around past the retired credential")

	p.Promote(2)
	start, _ = p.Start()
	assert.Equal(t, 2, start)

	p.Promote(0)
	start, _ = p.Start()
	assert.Equal(t, 2, start, "retired credentials are never promoted")

	assert.Equal(t, 2, p.MarkExhausted(2))
	assert.Equal(t, 3, p.MarkExhausted(1))
	_, ok = p.Start()
	assert.False(t, ok)
	_, ok = p.NextUsable(0)
	assert.False(t, ok)
}

func TestCredentialPool_SingleCredentialReturnsItself(t *testing.T) {
	t.Parallel()

	p := NewCredentialPool([]string{"only"})
	next, ok := p.NextUsable(0)
	require.True(t, ok)
	assert.Equal(t, 0, next)
}

func TestCredentialPool_Stats(t *testing.T) {
	t.Parallel()

	empty := NewCredentialPool(nil)
	assert.Equal(t, PoolStats{}, empty.Stats())
	_, ok := empty.Start()
	assert.False(t, ok)

	p := NewCredentialPool([]string{"k1", "k2"})
	p.MarkExhausted(0)
	st := p.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Exhausted)
	assert.Equal(t, Fingerprint("k2"), st.Active)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	fp := Fingerprint("AIzaSecretValue")
	assert.Len(t, fp, 8)
	assert.Equal(t, fp, Fingerprint("AIzaSecretValue"))
	assert.NotEqual(t, fp, Fingerprint("AIzaOtherValue"))
	assert.NotContains(t, fp, "AIza")
	assert.Equal(t, "gemini:"+fp, PaceKey("AIzaSecretValue"))
}
