package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sangwoolab/townsync/internal/client/models"
	"github.com/sangwoolab/townsync/internal/common"
)

// HTTPClient implements Client against the backend's JSON API.
//
// Tokens are kept on the client; a request rejected with 401 is retried once
// after a refresh-token exchange, mirroring the backend's session model.
type HTTPClient struct {
	baseURL string
	hc      *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

// SetSession installs (or clears, with nil) the tokens used on outbound calls.
func (c *HTTPClient) SetSession(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.accessToken, c.refreshToken = "", ""
		return
	}
	c.accessToken, c.refreshToken = s.AccessToken, s.RefreshToken
}

func (c *HTTPClient) tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// do performs one authenticated request. in (if non-nil) is sent as a JSON
// body; out (if non-nil) receives the decoded JSON response.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access, _ := c.tokens(); access != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+access)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}
}

// call wraps do with a one-shot refresh on expired credentials.
func (c *HTTPClient) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	err := c.do(ctx, method, path, query, in, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	_, refresh := c.tokens()
	if refresh == "" {
		return err
	}
	if rerr := c.refreshSession(ctx, refresh); rerr != nil {
		return err
	}

	return c.do(ctx, method, path, query, in, out)
}

func (c *HTTPClient) refreshSession(ctx context.Context, refresh string) error {
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/refresh", nil,
		map[string]string{"refresh_token": refresh}, &resp)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken, c.refreshToken = resp.AccessToken, resp.RefreshToken
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *HTTPClient) Register(ctx context.Context, email, password, nickname string) error {
	in := map[string]string{"email": email, "password": password, "nickname": nickname}
	return c.do(ctx, http.MethodPost, "/auth/register", nil, in, nil)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*Session, error) {
	in := map[string]string{"email": email, "password": password}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &s); err != nil {
		return nil, err
	}
	c.SetSession(&s)
	return &s, nil
}

func (c *HTTPClient) CreatePost(ctx context.Context, p models.CreatePostPayload) error {
	return c.call(ctx, http.MethodPost, "/posts", nil, p, nil)
}

func (c *HTTPClient) UpdatePost(ctx context.Context, p models.UpdatePostPayload) error {
	return c.call(ctx, http.MethodPatch, "/posts/"+url.PathEscape(p.PostID), nil, p, nil)
}

func (c *HTTPClient) DeletePost(ctx context.Context, p models.DeletePostPayload) error {
	return c.call(ctx, http.MethodDelete, "/posts/"+url.PathEscape(p.PostID), nil, nil, nil)
}

func (c *HTTPClient) CreateComment(ctx context.Context, p models.CreateCommentPayload) error {
	return c.call(ctx, http.MethodPost, "/posts/"+url.PathEscape(p.PostID)+"/comments", nil, p, nil)
}

func (c *HTTPClient) DeleteComment(ctx context.Context, p models.DeleteCommentPayload) error {
	path := "/posts/" + url.PathEscape(p.PostID) + "/comments/" + url.PathEscape(p.CommentID)
	return c.call(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *HTTPClient) ToggleLike(ctx context.Context, p models.ToggleLikePayload) error {
	return c.call(ctx, http.MethodPost, "/posts/"+url.PathEscape(p.PostID)+"/likes/toggle", nil, p, nil)
}

func (c *HTTPClient) ToggleBookmark(ctx context.Context, p models.ToggleBookmarkPayload) error {
	return c.call(ctx, http.MethodPost, "/posts/"+url.PathEscape(p.PostID)+"/bookmarks/toggle", nil, p, nil)
}

func (c *HTTPClient) SendMessage(ctx context.Context, p models.SendMessagePayload) error {
	return c.call(ctx, http.MethodPost, "/chats/"+url.PathEscape(p.ChatID)+"/messages", nil, p, nil)
}

func listQuery(cursor string, limit int) url.Values {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

func (c *HTTPClient) ListPosts(ctx context.Context, category, sort, cursor string, limit int) ([]models.Post, string, error) {
	q := listQuery(cursor, limit)
	if category != "" {
		q.Set("category", category)
	}
	if sort != "" {
		q.Set("sort", sort)
	}

	var resp struct {
		Items      []models.Post `json:"items"`
		NextCursor string        `json:"next_cursor"`
	}
	if err := c.call(ctx, http.MethodGet, "/posts", q, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Items, resp.NextCursor, nil
}

func (c *HTTPClient) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var p models.Post
	if err := c.call(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) ListComments(ctx context.Context, postID, cursor string, limit int) ([]models.Comment, string, error) {
	var resp struct {
		Items      []models.Comment `json:"items"`
		NextCursor string           `json:"next_cursor"`
	}
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.call(ctx, http.MethodGet, path, listQuery(cursor, limit), nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Items, resp.NextCursor, nil
}

func (c *HTTPClient) ListBusinesses(ctx context.Context, category, cursor string, limit int) ([]models.Business, string, error) {
	q := listQuery(cursor, limit)
	if category != "" {
		q.Set("category", category)
	}

	var resp struct {
		Items      []models.Business `json:"items"`
		NextCursor string            `json:"next_cursor"`
	}
	if err := c.call(ctx, http.MethodGet, "/businesses", q, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Items, resp.NextCursor, nil
}

func (c *HTTPClient) GetExchangeRates(ctx context.Context) ([]models.ExchangeRate, error) {
	var resp struct {
		Items []models.ExchangeRate `json:"items"`
	}
	if err := c.call(ctx, http.MethodGet, "/exchange-rates", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *HTTPClient) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.call(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) RegisterPushToken(ctx context.Context, userID, token string) error {
	in := map[string]string{"token": token}
	return c.call(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/push-token", nil, in, nil)
}

func (c *HTTPClient) RemovePushToken(ctx context.Context, userID string) error {
	return c.call(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID)+"/push-token", nil, nil, nil)
}

// UploadImage asks the backend for a presigned upload slot, PUTs the bytes
// there and returns the public URL of the stored object.
func (c *HTTPClient) UploadImage(ctx context.Context, data []byte) (string, error) {
	var slot struct {
		UploadURL string `json:"upload_url"`
		PublicURL string `json:"public_url"`
	}
	in := map[string]int{"size": len(data)}
	if err := c.call(ctx, http.MethodPost, "/uploads", nil, in, &slot); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, slot.UploadURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return slot.PublicURL, nil
}
