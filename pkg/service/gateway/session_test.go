package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/mxn2020/minions-openclaw/pkg/model"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway"
	"github.com/mxn2020/minions-openclaw/pkg/service/gateway/gatewaytest"
)

func TestOpenWithoutKeySendsEmptySignature(t *testing.T) {
	ctx := context.Background()
	srv := gatewaytest.New(t, gatewaytest.WithDeviceToken("dev-token-1"))

	sess, err := gateway.Open(ctx, srv.URL())
	gt.NoError(t, err)
	defer sess.Close()

	gt.True(t, sess.Authenticated())
	gt.Equal(t, sess.State(), gateway.StateReady)
	gt.Equal(t, sess.DeviceToken(), "dev-token-1")

	connects := srv.Connects()
	gt.A(t, connects).Length(1)
	gt.Equal(t, connects[0].Role, "operator")
	gt.A(t, connects[0].Scopes).Length(1)
	gt.Equal(t, connects[0].Scopes[0], "operator.read")
	gt.Equal(t, connects[0].Signature, "")
	gt.Equal(t, connects[0].DeviceToken, "")
}

func TestOpenSignsChallenge(t *testing.T) {
	ctx := context.Background()
	key, pemText, err := gateway.GenerateKey()
	gt.NoError(t, err)

	for _, ts := range []any{"2026-01-01T00:00:00Z", 1767225600000} {
		srv := gatewaytest.New(t,
			gatewaytest.WithPublicKey(&key.PublicKey),
			gatewaytest.WithTimestamp(ts),
		)

		sess, err := gateway.Open(ctx, srv.URL(), gateway.WithPrivateKey(pemText))
		gt.NoError(t, err)
		gt.True(t, sess.Authenticated())
		gt.NoError(t, sess.Close())

		gt.S(t, srv.Connects()[0].Signature).NotContains(" ")
		gt.True(t, srv.Connects()[0].Signature != "")
	}
}

func TestOpenWithWrongKeyIsRejected(t *testing.T) {
	ctx := context.Background()
	key, _, err := gateway.GenerateKey()
	gt.NoError(t, err)
	_, otherPEM, err := gateway.GenerateKey()
	gt.NoError(t, err)

	srv := gatewaytest.New(t, gatewaytest.WithPublicKey(&key.PublicKey))
	_, err = gateway.Open(ctx, srv.URL(), gateway.WithPrivateKey(otherPEM))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProtocol))
}

func TestOpenWithUnparsableKeyFallsBackToEmptySignature(t *testing.T) {
	srv := gatewaytest.New(t)

	sess, err := gateway.Open(context.Background(), srv.URL(), gateway.WithPrivateKey("not a key"))
	gt.NoError(t, err)
	defer sess.Close()
	gt.Equal(t, srv.Connects()[0].Signature, "")
}

func TestOpenSendsBearerAndDeviceToken(t *testing.T) {
	srv := gatewaytest.New(t)

	sess, err := gateway.Open(context.Background(), srv.URL(),
		gateway.WithToken("secret"),
		gateway.WithDeviceToken("cached"),
	)
	gt.NoError(t, err)
	defer sess.Close()

	gt.Equal(t, srv.AuthHeaders()[0], "Bearer secret")
	gt.Equal(t, srv.Connects()[0].DeviceToken, "cached")
	gt.Equal(t, sess.DeviceToken(), "cached")
}

func TestOpenRejected(t *testing.T) {
	srv := gatewaytest.New(t, gatewaytest.WithMode(gatewaytest.ModeReject))

	_, err := gateway.Open(context.Background(), srv.URL())
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProtocol))
	gt.S(t, err.Error()).Contains("rejected")
}

func TestOpenHandshakeTimeout(t *testing.T) {
	for _, mode := range []gatewaytest.Mode{gatewaytest.ModeSilent, gatewaytest.ModeIgnoreConnect} {
		srv := gatewaytest.New(t, gatewaytest.WithMode(mode))

		start := time.Now()
		_, err := gateway.Open(context.Background(), srv.URL(),
			gateway.WithHandshakeTimeout(200*time.Millisecond))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrProtocol))
		gt.True(t, time.Since(start) < 5*time.Second)
	}
}

func TestOpenHandshakeTimeoutIncludesDial(t *testing.T) {
	srv := gatewaytest.New(t,
		gatewaytest.WithMode(gatewaytest.ModeSilent),
		gatewaytest.WithUpgradeDelay(600*time.Millisecond),
	)

	start := time.Now()
	_, err := gateway.Open(context.Background(), srv.URL(),
		gateway.WithHandshakeTimeout(800*time.Millisecond))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProtocol))
	gt.True(t, time.Since(start) < 1200*time.Millisecond)
}

func TestOpenClosedBeforeAuthenticationResolves(t *testing.T) {
	srv := gatewaytest.New(t, gatewaytest.WithMode(gatewaytest.ModeCloseAfterChallenge))

	sess, err := gateway.Open(context.Background(), srv.URL())
	gt.NoError(t, err)
	gt.False(t, sess.Authenticated())

	_, err = sess.Call(context.Background(), gateway.MethodAgentsList, nil)
	gt.True(t, errors.Is(err, model.ErrProtocol))

	gt.NoError(t, sess.Close())
}

func TestOpenUnreachable(t *testing.T) {
	_, err := gateway.Open(context.Background(), "ws://127.0.0.1:1",
		gateway.WithHandshakeTimeout(time.Second))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProtocol))
}

func TestCallConcurrentResponsesOutOfOrder(t *testing.T) {
	slow := gatewaytest.Delayed(300*time.Millisecond, func(map[string]any) (any, bool) {
		return map[string]any{"who": "slow"}, true
	})
	fast := func(map[string]any) (any, bool) {
		return map[string]any{"who": "fast"}, true
	}
	srv := gatewaytest.New(t,
		gatewaytest.WithHandler("slow", slow),
		gatewaytest.WithHandler("fast", fast),
	)

	sess, err := gateway.Open(context.Background(), srv.URL())
	gt.NoError(t, err)
	defer sess.Close()

	results := map[string]string{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, method := range []string{"slow", "fast", "slow", "fast"} {
		wg.Add(1)
		go func(method string) {
			defer wg.Done()
			raw, err := sess.Call(context.Background(), method, nil)
			gt.NoError(t, err)
			var out struct {
				Who string `json:"who"`
			}
			gt.NoError(t, json.Unmarshal(raw, &out))
			mu.Lock()
			results[method] = out.Who
			mu.Unlock()
		}(method)
	}
	wg.Wait()

	gt.Equal(t, results["slow"], "slow")
	gt.Equal(t, results["fast"], "fast")
}

func TestCallTimeoutKeepsConnectionOpen(t *testing.T) {
	srv := gatewaytest.New(t,
		gatewaytest.WithHandler("never", func(map[string]any) (any, bool) { return nil, false }),
		gatewaytest.WithHandler("echo", func(p map[string]any) (any, bool) { return p, true }),
	)

	sess, err := gateway.Open(context.Background(), srv.URL(),
		gateway.WithCallTimeout(200*time.Millisecond))
	gt.NoError(t, err)
	defer sess.Close()

	_, err = sess.Call(context.Background(), "never", nil)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrProtocol))
	gt.Equal(t, sess.State(), gateway.StateReady)

	raw, err := sess.Call(context.Background(), "echo", map[string]any{"v": "ok"})
	gt.NoError(t, err)
	gt.S(t, string(raw)).Contains(`"ok"`)
}

func TestFetchPresence(t *testing.T) {
	srv := gatewaytest.New(t, gatewaytest.WithPresence(
		[]any{map[string]any{"name": "a1"}, map[string]any{"name": "a2"}},
		[]any{map[string]any{"name": "c1"}},
		[]any{},
		map[string]any{"port": 18789},
	))

	sess, err := gateway.Open(context.Background(), srv.URL())
	gt.NoError(t, err)
	defer sess.Close()

	p := sess.FetchPresence(context.Background())
	gt.A(t, p.Agents).Length(2)
	gt.A(t, p.Channels).Length(1)
	gt.A(t, p.Models).Length(0)
	gt.Equal(t, p.Config["port"].(float64), 18789)
}

func TestFetchPresenceDegradesPerCall(t *testing.T) {
	srv := gatewaytest.New(t,
		gatewaytest.WithHandler(gateway.MethodAgentsList, gatewaytest.Items([]any{"a"})),
		gatewaytest.WithHandler(gateway.MethodChannelsList, func(map[string]any) (any, bool) {
			return "not a list payload", true
		}),
		// models.list and system-presence are never answered
	)

	sess, err := gateway.Open(context.Background(), srv.URL(),
		gateway.WithCallTimeout(200*time.Millisecond))
	gt.NoError(t, err)
	defer sess.Close()

	p := sess.FetchPresence(context.Background())
	gt.A(t, p.Agents).Length(1)
	gt.A(t, p.Channels).Length(0)
	gt.A(t, p.Models).Length(0)
	gt.Equal(t, len(p.Config), 0)
}

func TestCloseIsIdempotent(t *testing.T) {
	srv := gatewaytest.New(t)

	sess, err := gateway.Open(context.Background(), srv.URL())
	gt.NoError(t, err)

	gt.NoError(t, sess.Close())
	gt.NoError(t, sess.Close())
	gt.Equal(t, sess.State(), gateway.StateClosed)

	_, err = sess.Call(context.Background(), gateway.MethodAgentsList, nil)
	gt.Error(t, err)

	var never *gateway.Session
	gt.NoError(t, never.Close())
}
