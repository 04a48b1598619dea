package sekura_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sekura "github.com/sekurapp/go-sekura"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func testClient(t *testing.T, handler http.Handler, tokens sekura.TokenSource) *sekura.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := &sekura.BaseConfig{APIURL: server.URL, RequestTimeout: 5 * time.Second}
	require.NoError(t, cfg.Validate())
	return sekura.NewClient(cfg, tokens)
}

func TestClientLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success decodes user and token", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/login", r.URL.Path)
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@b.com", body["email"])

			json.NewEncoder(w).Encode(map[string]any{
				"user":  map[string]string{"username": "a", "email": "a@b.com"},
				"token": "t1",
			})
		}), nil)

		payload, err := client.Login(ctx, "a@b.com", "pw")

		require.NoError(t, err)
		assert.Equal(t, "t1", payload.Token)
		assert.Equal(t, "a", payload.User.Username)
	})

	t.Run("rejection surfaces the server message", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
		}), nil)

		payload, err := client.Login(ctx, "a@b.com", "bad")

		require.Error(t, err)
		assert.Nil(t, payload)
		assert.True(t, sekura.IsAuthError(err))
		assert.Contains(t, err.Error(), "invalid credentials")
	})

	t.Run("missing token in a 2xx body is a malformed response", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"user": map[string]string{"username": "a"},
			})
		}), nil)

		_, err := client.Login(ctx, "a@b.com", "pw")

		require.Error(t, err)
		assert.False(t, sekura.IsAuthError(err))
	})
}

func TestClientAttachesBearerToken(t *testing.T) {
	ctx := context.Background()

	var authHeader atomic.Value
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"status": "Safe", "confidence": 92.5})
	}), staticTokens("session-token"))

	result, err := client.ScanURL(ctx, "https://example.com")

	require.NoError(t, err)
	assert.Equal(t, sekura.VerdictSafe, result.Status)
	assert.Equal(t, "Bearer session-token", authHeader.Load())
}

func TestClientAnonymousRequestHasNoAuthHeader(t *testing.T) {
	ctx := context.Background()

	var authHeader atomic.Value
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"status": "Safe", "confidence": 10})
	}), staticTokens(""))

	_, err := client.ScanURL(ctx, "https://example.com")

	require.NoError(t, err)
	assert.Equal(t, "", authHeader.Load())
}

func TestClientMalformedResponses(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid json", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}), nil)

		_, err := client.ScanURL(ctx, "https://example.com")
		require.Error(t, err)
	})

	t.Run("schema violation", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": "Probably Fine", "confidence": 50})
		}), nil)

		_, err := client.ScanURL(ctx, "https://example.com")
		require.Error(t, err, "unknown verdict must be rejected at the boundary")
	})

	t.Run("confidence outside range", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": "Safe", "confidence": 250})
		}), nil)

		_, err := client.ScanURL(ctx, "https://example.com")
		require.Error(t, err)
	})
}

func TestClientRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()

	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"breaches": []any{}})
	}), nil).WithRetryPolicy(sekura.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	report, err := client.CheckBreaches(ctx, "a@b.com")

	require.NoError(t, err)
	assert.Empty(t, report.Breaches)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientClassifiesServerErrors(t *testing.T) {
	ctx := context.Background()

	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), nil).WithRetryPolicy(sekura.RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond})

	_, err := client.ScanURL(ctx, "https://example.com")

	require.Error(t, err)
	assert.True(t, sekura.IsServerError(err))
	assert.False(t, sekura.IsNetworkError(err), "a 5xx arrived over a working transport")
	assert.Equal(t, int32(2), calls.Load(), "5xx answers are still retried")
}

func TestClientDoesNotRetryAuthRejections(t *testing.T) {
	ctx := context.Background()

	var calls atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	}), nil).WithRetryPolicy(sekura.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	_, err := client.Login(ctx, "a@b.com", "bad")

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientFeatureEndpoints(t *testing.T) {
	ctx := context.Background()

	mux := http.NewServeMux()
	mux.HandleFunc("/qr", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "https://sketchy.example", body["url"])
		json.NewEncoder(w).Encode(map[string]any{"status": "Unsafe", "confidence": 88})
	})
	mux.HandleFunc("/wifi-scan", func(w http.ResponseWriter, r *http.Request) {
		var info sekura.WiFiNetworkInfo
		json.NewDecoder(r.Body).Decode(&info)
		assert.Equal(t, "192.168.1.20", info.IPAddress)
		json.NewEncoder(w).Encode(map[string]any{"status": "Suspicious", "encryption": "WEP"})
	})
	mux.HandleFunc("/breach/check", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"breaches": []map[string]any{
			{"name": "ExampleCorp", "severity": "high", "exposedData": []string{"emails"}},
		}})
	})
	mux.HandleFunc("/security/analyze", func(w http.ResponseWriter, r *http.Request) {
		var info sekura.DeviceInfo
		json.NewDecoder(r.Body).Decode(&info)
		assert.Equal(t, "Android", info.Platform)
		json.NewEncoder(w).Encode(map[string]any{"score": 72, "checks": []map[string]any{
			{"name": "screen lock", "passed": true},
		}})
	})
	mux.HandleFunc("/analyze-apps", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"packageName": "com.example.app", "riskLevel": "medium",
		})
	})
	mux.HandleFunc("/ai/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"summary": "all clear"})
	})
	mux.HandleFunc("/ai/chat", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		json.NewDecoder(r.Body).Decode(&body)
		assert.JSONEq(t, `{"summary":"all clear"}`, string(body["analysisData"]),
			"analysis must round-trip verbatim")
		json.NewEncoder(w).Encode(map[string]string{"reply": "nothing to worry about"})
	})

	client := testClient(t, mux, nil)

	qr, err := client.ScanQR(ctx, "https://sketchy.example")
	require.NoError(t, err)
	assert.Equal(t, sekura.VerdictUnsafe, qr.Status)

	wifi, err := client.ScanWiFi(ctx, sekura.WiFiNetworkInfo{
		SSID: "HomeNet", IPAddress: "192.168.1.20", IsConnected: true, Type: "WIFI",
	})
	require.NoError(t, err)
	assert.Equal(t, sekura.VerdictSuspicious, wifi.Status)
	assert.Equal(t, "WEP", wifi.Encryption)

	breaches, err := client.CheckBreaches(ctx, "a@b.com")
	require.NoError(t, err)
	require.Len(t, breaches.Breaches, 1)
	assert.Equal(t, sekura.SeverityHigh, breaches.Breaches[0].Severity)

	device, err := client.AnalyzeDevice(ctx, sekura.DeviceInfo{Platform: "Android", OSVersion: "14"})
	require.NoError(t, err)
	assert.Equal(t, 72, device.Score)
	require.Len(t, device.Checks, 1)
	assert.True(t, device.Checks[0].Passed)

	app, err := client.AnalyzeApp(ctx, "com.example.app")
	require.NoError(t, err)
	assert.Equal(t, "medium", app.RiskLevel)

	analysis, err := client.SystemStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, analysis)

	reply, err := client.Chat(ctx, *analysis, "anything wrong?")
	require.NoError(t, err)
	assert.Equal(t, "nothing to worry about", reply.Reply)
}

func TestClientNetworkFailure(t *testing.T) {
	cfg := &sekura.BaseConfig{APIURL: "http://127.0.0.1:1", RequestTimeout: 200 * time.Millisecond}
	client := sekura.NewClient(cfg, nil)

	_, err := client.ScanURL(context.Background(), "https://example.com")

	require.Error(t, err)
	assert.True(t, sekura.IsNetworkError(err))
}
