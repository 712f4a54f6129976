// Package integration contains integration tests exercising the relay over
// real WebSocket connections.
//
// These tests start a fully wired relay on an ephemeral port and verify the
// externally observable contract: verbatim fan-out including self-echo,
// cleanup on disconnect, and the configurable hardening options.
package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castrelay/castrelay/internal/server"
	"github.com/castrelay/castrelay/test/testhelpers"
)

func TestSelfEcho(t *testing.T) {
	relay := testhelpers.StartRelay(t, server.DefaultConfig())
	conn := testhelpers.ConnectWebSocket(t, relay.WSURL)

	testhelpers.SendText(t, conn, "talking to myself")
	assert.Equal(t, "talking to myself", testhelpers.ReceiveText(t, conn))
}

func TestTwoClientScenario(t *testing.T) {
	relay := testhelpers.StartRelay(t, server.DefaultConfig())

	connA := testhelpers.ConnectWebSocket(t, relay.WSURL)
	connB := testhelpers.ConnectWebSocket(t, relay.WSURL)

	require.Eventually(t, func() bool {
		return relay.Hub.Registry().Len() == 2
	}, 2*time.Second, 5*time.Millisecond)

	// A sends "hello": both A and B receive exactly one copy.
	testhelpers.SendText(t, connA, "hello")
	assert.Equal(t, "hello", testhelpers.ReceiveText(t, connA))
	assert.Equal(t, "hello", testhelpers.ReceiveText(t, connB))

	// A disconnects; once the registry notices, B's messages reach only B and
	// the vanished A raises no error anywhere.
	require.NoError(t, testhelpers.CloseWebSocket(connA))
	require.Eventually(t, func() bool {
		return relay.Hub.Registry().Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	testhelpers.SendText(t, connB, "ping")
	assert.Equal(t, "ping", testhelpers.ReceiveText(t, connB))
	testhelpers.ExpectNoMessage(t, connB, 300*time.Millisecond)
}

func TestPayloadPassedThroughVerbatim(t *testing.T) {
	relay := testhelpers.StartRelay(t, server.DefaultConfig())
	conn := testhelpers.ConnectWebSocket(t, relay.WSURL)

	payloads := []string{
		"plain text",
		`{"looks":"like json"}`,
		"  leading and trailing whitespace  ",
		"unicode: héllø wörld ✓",
		"",
	}

	for _, payload := range payloads {
		testhelpers.SendText(t, conn, payload)
		assert.Equal(t, payload, testhelpers.ReceiveText(t, conn), "payload must not be transformed")
	}
}

func TestOriginRestriction(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.AllowedOrigins = "http://allowed.example"
	relay := testhelpers.StartRelay(t, cfg)

	conn, err := testhelpers.DialWebSocket(relay.WSURL, "http://allowed.example")
	require.NoError(t, err, "allowed origin should connect")
	defer func() { _ = conn.Close() }()

	_, err = testhelpers.DialWebSocket(relay.WSURL, "http://blocked.example")
	assert.Error(t, err, "disallowed origin should fail the handshake")

	_, err = testhelpers.DialWebSocket(relay.WSURL, "")
	assert.Error(t, err, "restricted mode requires an origin header")
}

func TestPermissiveOriginDefault(t *testing.T) {
	relay := testhelpers.StartRelay(t, server.DefaultConfig())

	conn, err := testhelpers.DialWebSocket(relay.WSURL, "http://literally-anywhere.example")
	require.NoError(t, err)
	_ = conn.Close()

	conn, err = testhelpers.DialWebSocket(relay.WSURL, "")
	require.NoError(t, err, "non-browser clients without an Origin header connect too")
	_ = conn.Close()
}

func TestMaxMessageSizeDisconnectsOffender(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.MaxMessageSize = 16
	relay := testhelpers.StartRelay(t, cfg)

	conn := testhelpers.ConnectWebSocket(t, relay.WSURL)
	require.Eventually(t, func() bool {
		return relay.Hub.Registry().Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	testhelpers.SendText(t, conn, strings.Repeat("x", 64))

	require.Eventually(t, func() bool {
		return relay.Hub.Registry().Len() == 0
	}, 2*time.Second, 5*time.Millisecond, "oversized message should terminate the connection")
}

func TestIdleTimeoutDisconnectsSilentClient(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.IdleTimeout = 200 * time.Millisecond
	relay := testhelpers.StartRelay(t, cfg)

	testhelpers.ConnectWebSocket(t, relay.WSURL)
	require.Eventually(t, func() bool {
		return relay.Hub.Registry().Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return relay.Hub.Registry().Len() == 0
	}, 2*time.Second, 10*time.Millisecond, "silent client should be dropped after the idle timeout")
}

func TestRateLimitDiscardsExcessMessages(t *testing.T) {
	cfg := server.DefaultConfig()
	cfg.RatePerSecond = 1
	cfg.RateBurst = 1
	relay := testhelpers.StartRelay(t, cfg)

	sender := testhelpers.ConnectWebSocket(t, relay.WSURL)
	receiver := testhelpers.ConnectWebSocket(t, relay.WSURL)
	require.Eventually(t, func() bool {
		return relay.Hub.Registry().Len() == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Burst of one: the first message passes, the immediate follow-ups are
	// discarded without dropping the connection.
	testhelpers.SendText(t, sender, "first")
	testhelpers.SendText(t, sender, "flood 1")
	testhelpers.SendText(t, sender, "flood 2")

	assert.Equal(t, "first", testhelpers.ReceiveText(t, receiver))
	testhelpers.ExpectNoMessage(t, receiver, 300*time.Millisecond)
	assert.Equal(t, 2, relay.Hub.Registry().Len(), "rate-limited client stays connected")
}
