package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// ListBookmarks returns every uptime monitor.
func (c *Client) ListBookmarks(ctx context.Context) ([]Bookmark, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/bookmarks", nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Bookmark
	if err := decodePayload(data, &out, "bookmarks"); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBookmark returns one monitor's full definition.
func (c *Client) GetBookmark(ctx context.Context, id string) (*BookmarkDetails, error) {
	data, err := c.do(ctx, http.MethodGet, bookmarkPath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var out BookmarkDetails
	if err := decodePayload(data, &out, "bookmark"); err != nil {
		return nil, err
	}
	return &out, nil
}

// BookmarkHistory returns the most recent check results, newest first.
func (c *Client) BookmarkHistory(ctx context.Context, id string, limit int) ([]CheckResult, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	data, err := c.do(ctx, http.MethodGet, bookmarkPath(id)+"/history", q, nil)
	if err != nil {
		return nil, err
	}
	var out []CheckResult
	if err := decodePayload(data, &out, "history"); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadBookmarkView fetches details and history together. Either failing
// fails the whole view.
func (c *Client) LoadBookmarkView(ctx context.Context, id string, historyLimit int) (*BookmarkView, error) {
	var view BookmarkView

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := c.GetBookmark(ctx, id)
		if err != nil {
			return err
		}
		view.Details = *d
		return nil
	})
	g.Go(func() error {
		h, err := c.BookmarkHistory(ctx, id, historyLimit)
		if err != nil {
			return err
		}
		view.History = h
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &view, nil
}

// CreateBookmark validates in and creates a monitor.
func (c *Client) CreateBookmark(ctx context.Context, in BookmarkInput) (*BookmarkDetails, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.saveBookmark(ctx, http.MethodPost, "/api/bookmarks", in)
}

// UpdateBookmark validates in and replaces monitor id.
func (c *Client) UpdateBookmark(ctx context.Context, id string, in BookmarkInput) (*BookmarkDetails, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return c.saveBookmark(ctx, http.MethodPut, bookmarkPath(id), in)
}

func (c *Client) saveBookmark(ctx context.Context, method, path string, in BookmarkInput) (*BookmarkDetails, error) {
	data, err := c.do(ctx, method, path, nil, in)
	if err != nil {
		return nil, err
	}
	var out BookmarkDetails
	if err := decodePayload(data, &out, "bookmark"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBookmark removes monitor id.
func (c *Client) DeleteBookmark(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, bookmarkPath(id), nil, nil)
	return err
}

// CheckBookmark runs a check now and returns its result.
func (c *Client) CheckBookmark(ctx context.Context, id string) (*CheckResult, error) {
	data, err := c.do(ctx, http.MethodPost, bookmarkPath(id)+"/check", nil, nil)
	if err != nil {
		return nil, err
	}
	var out CheckResult
	if err := decodePayload(data, &out, "result"); err != nil {
		return nil, err
	}
	return &out, nil
}

func bookmarkPath(id string) string {
	return "/api/bookmarks/" + url.PathEscape(id)
}
