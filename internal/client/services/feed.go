// Package services contains application services for the TownSync client:
// read-through feeds, queue-first composition, authentication, and push
// token housekeeping.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sangwoolab/townsync/internal/client/cache"
	"github.com/sangwoolab/townsync/internal/client/client"
	"github.com/sangwoolab/townsync/internal/client/connectivity"
	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/logging"
)

// FeedService serves list data read-through: live reads refresh the snapshot
// cache, and when the network is down (or the read fails) the last snapshot
// is returned instead, flagged as cached.
type FeedService struct {
	client  client.Client
	cache   *cache.Store
	monitor *connectivity.Monitor
	logger  logging.Logger
	maxAge  time.Duration
}

func NewFeedService(c client.Client, store *cache.Store, monitor *connectivity.Monitor, logger logging.Logger, maxAge time.Duration) *FeedService {
	if maxAge <= 0 {
		maxAge = cache.DefaultMaxAge
	}
	return &FeedService{client: c, cache: store, monitor: monitor, logger: logger, maxAge: maxAge}
}

// fetch runs the live read when online and snapshots the result under key.
// On failure it falls back to the cached snapshot. cacheable gates snapshot
// writes so filtered or paginated reads do not clobber the default view.
func (f *FeedService) fetch(ctx context.Context, key cache.Key, cacheable bool, live func(ctx context.Context) (any, error), out any) (fromCache bool, err error) {
	if f.monitor.IsConnected() {
		v, liveErr := live(ctx)
		if liveErr == nil {
			blob, merr := json.Marshal(v)
			if merr != nil {
				return false, fmt.Errorf("failed to encode snapshot: %w", merr)
			}
			if cacheable {
				if serr := f.cache.Save(ctx, key, blob); serr != nil {
					f.logger.Warn(ctx, "failed to snapshot feed", "key", key, "error", serr)
				}
			}
			return false, json.Unmarshal(blob, out)
		}
		f.logger.Warn(ctx, "live read failed, falling back to cache", "key", key, "error", liveErr)
		err = liveErr
	}

	blob := f.cache.Load(ctx, key)
	if blob == nil {
		if err != nil {
			return false, err
		}
		return false, fmt.Errorf("no cached data for %s: %w", key, client.ErrUnavailable)
	}
	if uerr := json.Unmarshal(blob, out); uerr != nil {
		return false, fmt.Errorf("failed to decode snapshot: %w", uerr)
	}
	return true, nil
}

// Posts returns the post feed. Only the unfiltered first page refreshes the
// snapshot, so the offline fallback always shows the default feed.
func (f *FeedService) Posts(ctx context.Context, category, sort string) ([]models.Post, bool, error) {
	var posts []models.Post
	fromCache, err := f.fetch(ctx, cache.KeyPosts, category == "", func(ctx context.Context) (any, error) {
		items, _, err := f.client.ListPosts(ctx, category, sort, "", 0)
		return items, err
	}, &posts)
	if err != nil {
		return nil, false, err
	}
	return posts, fromCache, nil
}

// MorePosts fetches a later page by cursor. Pages past the first are never
// snapshotted and are simply unavailable offline.
func (f *FeedService) MorePosts(ctx context.Context, category, sort, cursor string, limit int) ([]models.Post, string, error) {
	if !f.monitor.IsConnected() {
		return nil, "", fmt.Errorf("pagination requires a connection: %w", client.ErrUnavailable)
	}
	return f.client.ListPosts(ctx, category, sort, cursor, limit)
}

// Businesses returns the business directory, unfiltered reads snapshotted.
func (f *FeedService) Businesses(ctx context.Context, category string) ([]models.Business, bool, error) {
	var items []models.Business
	fromCache, err := f.fetch(ctx, cache.KeyBusinesses, category == "", func(ctx context.Context) (any, error) {
		items, _, err := f.client.ListBusinesses(ctx, category, "", 0)
		return items, err
	}, &items)
	if err != nil {
		return nil, false, err
	}
	return items, fromCache, nil
}

// Comments returns the comments of a post. Snapshots hold the most recently
// viewed thread only.
func (f *FeedService) Comments(ctx context.Context, postID string) ([]models.Comment, bool, error) {
	var items []models.Comment
	fromCache, err := f.fetch(ctx, cache.KeyComments, true, func(ctx context.Context) (any, error) {
		items, _, err := f.client.ListComments(ctx, postID, "", 0)
		return items, err
	}, &items)
	if err != nil {
		return nil, false, err
	}
	return items, fromCache, nil
}

// ExchangeRates returns current exchange rates, cached for offline display.
func (f *FeedService) ExchangeRates(ctx context.Context) ([]models.ExchangeRate, bool, error) {
	var items []models.ExchangeRate
	fromCache, err := f.fetch(ctx, cache.KeyExchangeRates, true, func(ctx context.Context) (any, error) {
		return f.client.GetExchangeRates(ctx)
	}, &items)
	if err != nil {
		return nil, false, err
	}
	return items, fromCache, nil
}

// Profile returns the user profile, cached for offline display.
func (f *FeedService) Profile(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	var p models.UserProfile
	fromCache, err := f.fetch(ctx, cache.KeyUserProfile, true, func(ctx context.Context) (any, error) {
		return f.client.GetProfile(ctx, userID)
	}, &p)
	if err != nil {
		return nil, false, err
	}
	return &p, fromCache, nil
}

// Stale reports whether the snapshot behind key is older than the configured
// freshness window. Stale data is still served; the UI decides how to mark it.
func (f *FeedService) Stale(ctx context.Context, key cache.Key) bool {
	return !f.cache.IsValid(ctx, key, f.maxAge)
}
