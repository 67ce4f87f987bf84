package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheerlights/cheertweet/internal/creds"
)

// rewriteTransport redirects every request to a local httptest server so
// code using the hardcoded API URLs can be exercised offline.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = strings.TrimPrefix(rt.target, "http://")
	return rt.base.RoundTrip(req)
}

// fakeAPI serves both API versions and counts status-posting requests.
type fakeAPI struct {
	srv         *httptest.Server
	sendCalls   atomic.Int64
	lastSinceID atomic.Value
	failSend    bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/1.1/account/verify_credentials.json":
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "screen_name": "cheerbot"})
		case r.URL.Path == "/2/users/me":
			w.Write([]byte(`{"data":{"id":"1","name":"Cheer Bot","username":"cheerbot"}}`))
		case r.URL.Path == "/1.1/statuses/update.json":
			f.sendCalls.Add(1)
			if f.failSend {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"errors":[{"code":187,"message":"Status is a duplicate."}]}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": 123, "id_str": "123", "text": r.FormValue("status")})
		case r.URL.Path == "/2/tweets" && r.Method == http.MethodPost:
			f.sendCalls.Add(1)
			if f.failSend {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"title":"Forbidden","detail":"not allowed"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"987","text":"x"}}`))
		case strings.HasPrefix(r.URL.Path, "/1.1/statuses/destroy/"):
			json.NewEncoder(w).Encode(map[string]any{"id": 123, "id_str": "123"})
		case strings.HasPrefix(r.URL.Path, "/2/tweets/") && r.Method == http.MethodDelete:
			w.Write([]byte(`{"data":{"deleted":true}}`))
		case r.URL.Path == "/1.1/statuses/user_timeline.json":
			f.lastSinceID.Store(r.URL.Query().Get("since_id"))
			w.Write([]byte(`[{"id":123,"id_str":"123","text":"@cheerlights red"}]`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) client() *http.Client {
	return &http.Client{
		Transport: rewriteTransport{base: http.DefaultTransport, target: f.srv.URL},
	}
}

func testCreds() creds.Credentials {
	return creds.Credentials{ConsumerKey: "ck", ConsumerSecret: "cs", AccessToken: "at", AccessSecret: "as"}
}

func TestParseAPIVersion(t *testing.T) {
	v, err := ParseAPIVersion("v1")
	require.NoError(t, err)
	assert.Equal(t, V1, v)

	v, err = ParseAPIVersion("v2")
	require.NoError(t, err)
	assert.Equal(t, V2, v)

	_, err = ParseAPIVersion("v3")
	assert.Error(t, err)
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("connect verifies credentials", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), HTTPClient: api.client()})

		require.NoError(t, s.Connect(ctx))
		assert.True(t, s.Connected())
		assert.Equal(t, "cheerbot", s.Account())

		s.Disconnect()
		assert.False(t, s.Connected())
	})

	t.Run("connect twice is a no-op", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), HTTPClient: api.client()})

		require.NoError(t, s.Connect(ctx))
		require.NoError(t, s.Connect(ctx))
		assert.True(t, s.Connected())
	})

	t.Run("disconnect when disconnected is a no-op", func(t *testing.T) {
		s := NewSession(Config{Credentials: testCreds()})
		s.Disconnect()
		s.Disconnect()
		assert.False(t, s.Connected())
	})

	t.Run("failed verification is a connection error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"code":89,"message":"Invalid or expired token."}]}`))
		}))
		defer srv.Close()

		client := &http.Client{Transport: rewriteTransport{base: http.DefaultTransport, target: srv.URL}}
		s := NewSession(Config{Credentials: testCreds(), HTTPClient: client})

		err := s.Connect(ctx)
		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.False(t, s.Connected())
	})

	t.Run("do releases the session on every path", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), HTTPClient: api.client()})

		boom := errors.New("boom")
		err := s.Do(ctx, func(s *Session) error {
			assert.True(t, s.Connected())
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, s.Connected())
	})
}

func TestSession_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("v1 update", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), Version: V1, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		res, err := s.Send(ctx, "@cheerlights red")
		require.NoError(t, err)
		assert.Equal(t, "123", res.ID)
		assert.False(t, res.Suppressed)
		assert.EqualValues(t, 1, api.sendCalls.Load())
	})

	t.Run("v2 create", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), Version: V2, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		res, err := s.Send(ctx, "@cheerlights red")
		require.NoError(t, err)
		assert.Equal(t, "987", res.ID)
	})

	t.Run("send while disconnected", func(t *testing.T) {
		s := NewSession(Config{Credentials: testCreds()})
		_, err := s.Send(ctx, "@cheerlights red")
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("suppress tweeting skips network", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), SuppressTweeting: true, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		res, err := s.Send(ctx, "@cheerlights red")
		require.NoError(t, err)
		assert.True(t, res.Suppressed)
		assert.Empty(t, res.ID)
		assert.EqualValues(t, 0, api.sendCalls.Load())
	})

	t.Run("suppress connection short-circuits everything", func(t *testing.T) {
		// No HTTP client at all: any network use would panic the test.
		s := NewSession(Config{Credentials: testCreds(), SuppressConnection: true})

		require.NoError(t, s.Connect(ctx))
		res, err := s.Send(ctx, "@cheerlights red")
		require.NoError(t, err)
		assert.True(t, res.Suppressed)
		s.Disconnect()
	})

	t.Run("remote rejection is a dispatch error", func(t *testing.T) {
		api := newFakeAPI(t)
		api.failSend = true
		s := NewSession(Config{Credentials: testCreds(), Version: V2, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		_, err := s.Send(ctx, "@cheerlights red")
		var dispErr *DispatchError
		require.ErrorAs(t, err, &dispErr)
		assert.Contains(t, err.Error(), "Forbidden")
	})

	t.Run("v1 rejection carries the error code", func(t *testing.T) {
		api := newFakeAPI(t)
		api.failSend = true
		s := NewSession(Config{Credentials: testCreds(), Version: V1, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		_, err := s.Send(ctx, "@cheerlights red")
		var dispErr *DispatchError
		require.ErrorAs(t, err, &dispErr)
	})
}

func TestSession_Destroy(t *testing.T) {
	ctx := context.Background()

	t.Run("v1", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), Version: V1, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))
		assert.NoError(t, s.Destroy(ctx, "123"))
	})

	t.Run("v2", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), Version: V2, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))
		assert.NoError(t, s.Destroy(ctx, "987"))
	})

	t.Run("bad v1 id", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), Version: V1, HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		err := s.Destroy(ctx, "not-a-number")
		var dispErr *DispatchError
		require.ErrorAs(t, err, &dispErr)
	})

	t.Run("disconnected", func(t *testing.T) {
		s := NewSession(Config{Credentials: testCreds()})
		assert.ErrorIs(t, s.Destroy(ctx, "123"), ErrNotConnected)
	})
}

func TestSession_LastTweets(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(t)
	s := NewSession(Config{Credentials: testCreds(), HTTPClient: api.client()})
	require.NoError(t, s.Connect(ctx))

	tweets, err := s.LastTweets(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tweets, 1)
	assert.Equal(t, "@cheerlights red", tweets[0].Text)
}

func TestSession_TweetsSince(t *testing.T) {
	ctx := context.Background()

	t.Run("filters by since id", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		tweets, err := s.TweetsSince(ctx, "100", 5)
		require.NoError(t, err)
		require.Len(t, tweets, 1)
		assert.Equal(t, "100", api.lastSinceID.Load())
	})

	t.Run("bad since id", func(t *testing.T) {
		api := newFakeAPI(t)
		s := NewSession(Config{Credentials: testCreds(), HTTPClient: api.client()})
		require.NoError(t, s.Connect(ctx))

		_, err := s.TweetsSince(ctx, "not-a-number", 5)
		var dispErr *DispatchError
		require.ErrorAs(t, err, &dispErr)
	})

	t.Run("disconnected", func(t *testing.T) {
		s := NewSession(Config{Credentials: testCreds()})
		_, err := s.TweetsSince(ctx, "100", 5)
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestDiagnoseAPIError(t *testing.T) {
	t.Run("v2 problem document", func(t *testing.T) {
		msg := diagnoseAPIError(403, []byte(`{"title":"Forbidden","detail":"not allowed"}`))
		assert.Contains(t, msg, "403")
		assert.Contains(t, msg, "Forbidden")
		assert.Contains(t, msg, "not allowed")
	})

	t.Run("v1 errors array", func(t *testing.T) {
		msg := diagnoseAPIError(401, []byte(`{"errors":[{"code":89,"message":"Invalid or expired token."}]}`))
		assert.Contains(t, msg, "89")
		assert.Contains(t, msg, "Invalid or expired token")
	})

	t.Run("fallback to raw body", func(t *testing.T) {
		msg := diagnoseAPIError(500, []byte("something unexpected"))
		assert.Contains(t, msg, "500")
		assert.Contains(t, msg, "something unexpected")
	})
}
