// Package fetch downloads audio files the form platform kept on its own storage.
package fetch

import (
	"context"
	"errors"
	"io"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/wikimedia/contest-api/internal/fetch")

var (
	ErrHostNotAllowed = errors.New("host is not allowed")
	ErrTooLarge       = errors.New("remote file exceeds the size limit")
)

type Fetcher interface {
	// Returns the whole body of `url`, at most the fetcher's size limit
	Fetch(ctx context.Context, url string) ([]byte, error)
	// Reports whether `url` points at a host this fetcher may download from
	Allowed(url string) bool
}

// Reads at most `limit` bytes, failing with ErrTooLarge when more are available
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	buf, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}

	if int64(len(buf)) > limit {
		return nil, ErrTooLarge
	}

	return buf, nil
}
