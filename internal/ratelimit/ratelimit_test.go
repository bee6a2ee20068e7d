package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-secadmin/go-secadmin/internal/config"
)

func TestAllowBurstThenReject(t *testing.T) {
	l := New(config.RateLimit{Enabled: true, RequestsPerSecond: 0.001, Burst: 3})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4:/login"), "request %d within burst", i)
	}

	assert.False(t, l.Allow("1.2.3.4:/login"), "burst exhausted")
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(config.RateLimit{Enabled: true, RequestsPerSecond: 0.001, Burst: 1})
	defer l.Stop()

	assert.True(t, l.Allow("1.2.3.4:/login"))
	assert.False(t, l.Allow("1.2.3.4:/login"))

	// other client and other route still have their own buckets
	assert.True(t, l.Allow("5.6.7.8:/login"))
	assert.True(t, l.Allow("1.2.3.4:/api/v1/security/login"))
}

func TestDisabledAlwaysAllows(t *testing.T) {
	l := New(config.RateLimit{Enabled: false, RequestsPerSecond: 0.001, Burst: 1})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("1.2.3.4:/login"))
	}
}

func TestCleanupDropsStaleClients(t *testing.T) {
	l := New(config.RateLimit{Enabled: true, RequestsPerSecond: 1, Burst: 1})
	defer l.Stop()

	l.Allow("1.2.3.4:/login")

	l.mu.Lock()
	l.clients["1.2.3.4:/login"].lastSeen = l.clients["1.2.3.4:/login"].lastSeen.Add(-2 * staleAfter)
	l.mu.Unlock()

	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.clients)
}
