package fetch_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/contest-api/internal/fetch"
)

func newClient() *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.Logger = nil
	return client.StandardClient()
}

func TestHttp(t *testing.T) {
	ctx := context.Background()

	e := echo.New()
	rootContent := "hello world"
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, rootContent)
	})
	e.GET("/big.wav", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "audio/wav", bytes.Repeat([]byte{1}, 64))
	})

	server := httptest.NewServer(e)
	defer server.Close()

	// same server under a host name the allow-list does not carry
	otherHost := strings.Replace(server.URL, "127.0.0.1", "localhost", 1)
	e.GET("/moved.wav", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, server.URL+"/big.wav")
	})
	e.GET("/escape.wav", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, otherHost+"/")
	})
	e.GET("/loop.wav", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, server.URL+"/loop.wav")
	})

	t.Run("ValidPath", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 1024, "127.0.0.1")
		body, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/", server.URL))
		require.NoError(t, err, "failed to fetch")
		require.Equal(t, []byte(rootContent), body, "wrong body fetched")
	})

	t.Run("InvalidPath", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 1024, "127.0.0.1")
		_, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/foobar", server.URL))
		require.Error(t, err, "expected to fail")
	})

	t.Run("InvalidTooLarge", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 63, "127.0.0.1")
		_, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/big.wav", server.URL))
		require.ErrorIs(t, err, fetch.ErrTooLarge)
	})

	t.Run("ValidExactLimit", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 64, "127.0.0.1")
		body, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/big.wav", server.URL))
		require.NoError(t, err)
		require.Len(t, body, 64)
	})

	t.Run("ValidRedirectSameHost", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 1024, "127.0.0.1")
		body, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/moved.wav", server.URL))
		require.NoError(t, err)
		require.Len(t, body, 64)
	})

	t.Run("InvalidRedirectOffList", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 1024, "127.0.0.1")
		body, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/escape.wav", server.URL))
		require.ErrorIs(t, err, fetch.ErrHostNotAllowed)
		require.Nil(t, body)
	})

	t.Run("InvalidRedirectLoop", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 1024, "127.0.0.1")
		_, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/loop.wav", server.URL))
		require.ErrorContains(t, err, "stopped after 10 redirects")
	})

	t.Run("ClientLeftUntouched", func(t *testing.T) {
		client := newClient()
		fetch.NewHTTPFetcher(client, 1024, "127.0.0.1")
		require.Nil(t, client.CheckRedirect)
	})

	t.Run("InvalidHost", func(t *testing.T) {
		fetcher := fetch.NewHTTPFetcher(newClient(), 1024, "forms.example.org")
		_, err := fetcher.Fetch(ctx, fmt.Sprintf("%s/", server.URL))
		require.ErrorIs(t, err, fetch.ErrHostNotAllowed)
	})
}

func TestAllowed(t *testing.T) {
	fetcher := fetch.NewHTTPFetcher(http.DefaultClient, 1, "Forms.Example.org")

	tests := []struct {
		url     string
		allowed bool
	}{
		{url: "https://forms.example.org/uploads/logo.wav", allowed: true},
		{url: " http://FORMS.example.org:8080/logo.wav ", allowed: true},
		{url: "ftp://forms.example.org/logo.wav"},
		{url: "https://evil.example.org/logo.wav"},
		{url: "https://forms.example.org.evil.test/logo.wav"},
		{url: "audio/3f2c"},
		{url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.allowed, fetcher.Allowed(tt.url))
		})
	}
}
