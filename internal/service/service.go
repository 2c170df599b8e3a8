// Package service implements the business logic of the URL shortener: code
// generation, the creation flow, cache-first redirect resolution with click
// accounting, and listings.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vadimbarashkov/shortify/internal/cache"
	"github.com/vadimbarashkov/shortify/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrMaxRetriesExceeded is returned when the maximum number of retries for generating a short code is exceeded.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating short code")

// shortCodeAlphabet is the 62-symbol alphabet short codes are drawn from.
const shortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// listLimit caps how many records a listing returns.
const listLimit = 50

// URLRepository defines the durable-store interface the service depends on.
type URLRepository interface {
	// Insert stores a new shortened URL with a zero click total.
	// Returns entity.ErrShortCodeExists when the short code is taken.
	Insert(ctx context.Context, shortCode, targetURL string) (*entity.URL, error)

	// GetByShortCode retrieves a URL by its short code.
	GetByShortCode(ctx context.Context, shortCode string) (*entity.URL, error)

	// GetByID retrieves a URL by its store-assigned id.
	GetByID(ctx context.Context, id string) (*entity.URL, error)

	// List retrieves up to limit URLs, newest first.
	List(ctx context.Context, limit int64) ([]*entity.URL, error)
}

// URLCache defines the cache interface the service depends on. All cache
// failures on read paths are absorbed: the service fails open to the
// durable store.
type URLCache interface {
	GetURL(ctx context.Context, shortCode string) (*entity.URL, error)
	SetURL(ctx context.Context, url *entity.URL) error
	IncrementClicks(ctx context.Context, shortCode string) (int64, error)
	GetURLList(ctx context.Context) ([]*entity.URL, error)
	SetURLList(ctx context.Context, urls []*entity.URL) error
	InvalidateURLList(ctx context.Context) error
}

// ClickFlusher accepts non-blocking requests to reconcile the pending
// click delta of a single short code.
type ClickFlusher interface {
	Flush(shortCode string)
}

// URLService provides methods to manage URL shortening operations.
type URLService struct {
	repo            URLRepository
	cache           URLCache
	flusher         ClickFlusher
	shortCodeLength int
	logger          *slog.Logger
}

// NewURLService creates a new URLService.
func NewURLService(repo URLRepository, cache URLCache, flusher ClickFlusher, shortCodeLength int, logger *slog.Logger) *URLService {
	return &URLService{
		repo:            repo,
		cache:           cache,
		flusher:         flusher,
		shortCodeLength: shortCodeLength,
		logger:          logger,
	}
}

// ShortenURL generates a short code for the target URL and stores the
// mapping. Code uniqueness is enforced by the store; on a collision a fresh
// code is generated, up to a maximum number of retries. The new record is
// cached and the cached listing invalidated so the next listing reflects
// it. A creation that reached the store never fails on a cache error:
// the insert is the source of truth, a cold cache is repopulated on the
// next lookup, so cache failures after a successful insert are logged,
// not surfaced.
func (s *URLService) ShortenURL(ctx context.Context, targetURL string) (*entity.URL, error) {
	const op = "service.URLService.ShortenURL"
	const maxRetries = 5

	for i := 0; i < maxRetries; i++ {
		shortCode, err := gonanoid.Generate(shortCodeAlphabet, s.shortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate short code: %w", op, err)
		}

		url, err := s.repo.Insert(ctx, shortCode, targetURL)
		if err != nil {
			if errors.Is(err, entity.ErrShortCodeExists) {
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		if err := s.cache.SetURL(ctx, url); err != nil {
			s.logger.Warn("failed to cache created url",
				slog.String("short_code", url.ShortCode),
				slog.Any("err", err),
			)
		}

		if err := s.cache.InvalidateURLList(ctx); err != nil {
			s.logger.Warn("failed to invalidate url list cache", slog.Any("err", err))
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveShortCode resolves a short code to its URL record for a redirect
// and records the click. The cache is consulted first and any cache error
// is treated as a miss; a miss falls through to the durable store, whose
// failure is a hard failure for the request. The click lands in the
// cache-resident delta counter, never synchronously in the store, and an
// eager reconciliation of the code is requested without blocking.
func (s *URLService) ResolveShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "service.URLService.ResolveShortCode"

	url, err := s.cache.GetURL(ctx, shortCode)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("url cache lookup failed, falling back to store",
				slog.String("short_code", shortCode),
				slog.Any("err", err),
			)
		}

		url, err = s.repo.GetByShortCode(ctx, shortCode)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
		}

		if err := s.cache.SetURL(ctx, url); err != nil {
			s.logger.Warn("failed to cache url",
				slog.String("short_code", shortCode),
				slog.Any("err", err),
			)
		}
	}

	if _, err := s.cache.IncrementClicks(ctx, shortCode); err != nil {
		s.logger.Error("failed to record click",
			slog.String("short_code", shortCode),
			slog.Any("err", err),
		)
	}

	s.flusher.Flush(shortCode)

	return url, nil
}

// GetURLByID retrieves a single URL record by its store-assigned id. The
// durable record is read directly so the click total is the synced one.
func (s *URLService) GetURLByID(ctx context.Context, id string) (*entity.URL, error) {
	const op = "service.URLService.GetURLByID"

	url, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	return url, nil
}

// ListURLs returns up to 50 URLs, newest first, serving the cached listing
// when present. Click totals in a cached listing are best-effort stale;
// the listing cache is invalidated on creation, not on click updates.
func (s *URLService) ListURLs(ctx context.Context) ([]*entity.URL, error) {
	const op = "service.URLService.ListURLs"

	urls, err := s.cache.GetURLList(ctx)
	if err == nil {
		return urls, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("url list cache lookup failed, falling back to store", slog.Any("err", err))
	}

	urls, err = s.repo.List(ctx, listLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list urls: %w", op, err)
	}

	if err := s.cache.SetURLList(ctx, urls); err != nil {
		s.logger.Warn("failed to cache url list", slog.Any("err", err))
	}

	return urls, nil
}
