package jina

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/https://acme.co.jp", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "text", r.Header.Get("X-Return-Format"))
		_ = json.NewEncoder(w).Encode(ReadResponse{
			Code: 200,
			Data: ReadData{Title: "Acme", URL: "https://acme.co.jp", Content: "株式会社Acme 会社概要"},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Read(context.Background(), "https://acme.co.jp")

	require.NoError(t, err)
	assert.Equal(t, "Acme", resp.Data.Title)
	assert.Contains(t, resp.Data.Content, "会社概要")
}

func TestRead_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	_, err := c.Read(context.Background(), "https://acme.co.jp")

	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.False(t, apiErr.Temporary())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRead_RetryOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(ReadResponse{Code: 200, Data: ReadData{Content: "ok"}})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	resp, err := c.Read(context.Background(), "https://acme.co.jp")

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Data.Content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRead_RetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	_, err := c.Read(context.Background(), "https://acme.co.jp")

	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Temporary())
}

func TestRead_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Read(context.Background(), "https://acme.co.jp")
	assert.Error(t, err)
}

func TestRead_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("k", WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	_, err := c.Read(ctx, "https://acme.co.jp")
	assert.Error(t, err)
}

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/IT 東京 会社", r.URL.Path)
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Code: 200,
			Data: []SearchResult{
				{Title: "Acme", URL: "https://acme.co.jp", Description: "システム開発"},
				{Title: "Beta", URL: "https://beta.jp", Description: "WEB制作"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "IT 東京 会社")

	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "https://beta.jp", resp.Data[1].URL)
}

func TestSearch_NoResults422(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), "nothing")

	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("k", WithSearchBaseURL(srv.URL))
	_, err := c.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("k").(*httpClient)
	assert.Equal(t, "https://r.jina.ai", c.baseURL)
	assert.Equal(t, "https://s.jina.ai", c.searchBaseURL)
	assert.Equal(t, 30*time.Second, c.http.Timeout)
}

func TestRetryableStatusCode(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503} {
		assert.True(t, retryableStatusCode(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 404, 422} {
		assert.False(t, retryableStatusCode(code), "code %d", code)
	}
}
