package assistant

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	token string
	err   error
}

func (f fakeTokens) Token(context.Context) (string, error) {
	return f.token, f.err
}

func TestChatURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "http://localhost:8080/api/assistant/chat"},
		{"http://localhost:8080/", "http://localhost:8080/api/assistant/chat"},
		{"https://trips.example.com/api/assistant", "https://trips.example.com/api/assistant/chat"},
		{"", "http://localhost:8080/api/assistant/chat"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, chatURL(tc.base), "base=%q", tc.base)
	}
}

func TestNewClient_EmptyBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorContains(t, err, "base URL")
}

func TestChat_SendsPlainTextAndReturnsReply(t *testing.T) {
	var gotBody, gotType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/assistant/chat", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `Try Goa! {"flightId":"FL1","hotelId":"HT1","amount":500}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	reply, err := c.Chat(context.Background(), "Find me the best trips to Goa for 2 travelers")
	require.NoError(t, err)
	require.Equal(t, `Try Goa! {"flightId":"FL1","hotelId":"HT1","amount":500}`, reply)
	require.Equal(t, "Find me the best trips to Goa for 2 travelers", gotBody)
	require.Equal(t, "text/plain", gotType)
	require.Empty(t, gotAuth)
}

func TestChat_BearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithTokenSource(fakeTokens{token: "tok"}))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", gotAuth)
}

func TestChat_TokenError(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", WithTokenSource(fakeTokens{err: errors.New("ssm down")}))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi")
	require.ErrorContains(t, err, "ssm down")
}

func TestChat_Non2xxReturnsHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "vector store offline")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi")

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.HTTPStatusCode())
	require.Contains(t, statusErr.Body, "vector store offline")
}

func TestChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = io.WriteString(w, "late")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "hi")
	require.ErrorContains(t, err, "request failed")
}

func TestResolvedHTTPClient_DefaultWhenNil(t *testing.T) {
	c := &Client{}
	require.NotNil(t, c.resolvedHTTPClient())
}
