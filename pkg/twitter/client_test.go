package twitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetmap/pkg/apierrors"
	"tweetmap/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.URL, 5*time.Second, Credentials{
		Username:  "scraper_1",
		Email:     "scraper1@example.com",
		Password:  "secret",
		UserAgent: "test-agent",
	}, logger.NewTestLogger())
	return client, server
}

func TestLoginStoresSessionToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "scraper_1", req.Username)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		json.NewEncoder(w).Encode(LoginResponse{SessionToken: "tok-123"})
	})

	client, _ := newTestClient(t, mux)

	token, err := client.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "tok-123", client.SessionToken())
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(LoginEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.Login(context.Background())
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeAuthRejected))
}

func TestUserByScreenNameSendsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(UserEndpoint, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Cookie"), "auth_token=tok-456")
		assert.Equal(t, "alice", r.URL.Query().Get("screen_name"))

		json.NewEncoder(w).Encode(userResponse{User: &UserProfile{
			ID:         "111",
			ScreenName: "alice",
			Name:       "Alice",
		}})
	})

	client, _ := newTestClient(t, mux)
	client.SetSession("tok-456")

	profile, err := client.UserByScreenName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "111", profile.ID)
	assert.Equal(t, "alice", profile.ScreenName)
}

func TestUserByScreenNameNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(UserEndpoint, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.UserByScreenName(context.Background(), "ghost")
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeSubjectNotFound))
}

func TestUserTweetsErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected apierrors.ErrorType
	}{
		{"rate limited", http.StatusTooManyRequests, apierrors.ErrorTypeUpstreamBlocked},
		{"auth rejected", http.StatusForbidden, apierrors.ErrorTypeAuthRejected},
		{"server error", http.StatusBadGateway, apierrors.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc(TimelineEndpoint, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			client, _ := newTestClient(t, mux)

			_, err := client.UserTweets(context.Background(), "111", "", 50)
			assert.True(t, apierrors.Is(err, tt.expected), "got %v", err)
		})
	}
}

func TestUserTweetsPagination(t *testing.T) {
	now := time.Now().UTC()
	mux := http.NewServeMux()
	mux.HandleFunc(TimelineEndpoint, func(w http.ResponseWriter, r *http.Request) {
		page := TweetPage{
			Tweets:     []Tweet{{ID: "1", CreatedAt: now}},
			NextCursor: "",
		}
		if r.URL.Query().Get("cursor") == "" {
			page.NextCursor = "page2"
		}
		json.NewEncoder(w).Encode(page)
	})

	client, _ := newTestClient(t, mux)

	page, err := client.UserTweets(context.Background(), "111", "", 50)
	require.NoError(t, err)
	assert.Equal(t, "page2", page.NextCursor)

	page, err = client.UserTweets(context.Background(), "111", "page2", 50)
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
}

func TestNetworkErrorType(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, Credentials{}, logger.NewTestLogger())

	_, err := client.UserByScreenName(context.Background(), "alice")
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeNetwork))
}
