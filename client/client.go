// Package client is a Go client for the habit tracker API together with the
// local state a mini-app renders from.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"habitTrackerAPI/internal/apperr"
	"habitTrackerAPI/internal/notification"
	"habitTrackerAPI/internal/types/calendar"
	"habitTrackerAPI/internal/types/completion"
	"habitTrackerAPI/internal/types/friendship"
	"habitTrackerAPI/internal/types/habit"
	"habitTrackerAPI/internal/types/subscription"
	"habitTrackerAPI/internal/user"
)

const DefaultTimeout = 10 * time.Second

const (
	initDataHeader = "X-Telegram-Init-Data"
	devUserHeader  = "X-Dev-User-Id"
)

type Client struct {
	baseURL   string
	initData  string
	devUserID int64
	http      *http.Client
}

type Option func(*Client)

// WithInitData sets the signed init data sent with every request.
func WithInitData(initData string) Option {
	return func(c *Client) { c.initData = initData }
}

// WithDevUser identifies as the given user against a server in development mode.
func WithDevUser(id int64) Option {
	return func(c *Client) { c.devUserID = id }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Me(ctx context.Context) (*user.Profile, error) {
	var out user.Profile
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListHabits(ctx context.Context) (*habit.HabitList, error) {
	var out habit.HabitList
	if err := c.do(ctx, http.MethodGet, "/api/habits", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateHabit(ctx context.Context, req *habit.CreateHabitRequest) (*habit.HabitSummary, error) {
	var out habit.HabitSummary
	if err := c.do(ctx, http.MethodPost, "/api/habits", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteHabit(ctx context.Context, habitID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/habits/"+id(habitID), nil, nil)
}

func (c *Client) HabitStats(ctx context.Context, habitID int64) (*habit.HabitStats, error) {
	var out habit.HabitStats
	if err := c.do(ctx, http.MethodGet, "/api/habits/"+id(habitID)+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleCompletion(ctx context.Context, habitID int64) (*completion.ToggleResult, error) {
	var out completion.ToggleResult
	if err := c.do(ctx, http.MethodPost, "/api/completions", completion.ToggleRequest{HabitID: habitID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MonthCompletions fetches a habit's calendar. An empty month returns every date.
func (c *Client) MonthCompletions(ctx context.Context, habitID int64, month string) (*calendar.MonthCompletions, error) {
	path := "/api/completions/" + id(habitID)
	if month != "" {
		path += "?" + url.Values{"month": {month}}.Encode()
	}

	var out calendar.MonthCompletions
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Friends(ctx context.Context) ([]*friendship.Friend, error) {
	var out []*friendship.Friend
	if err := c.do(ctx, http.MethodGet, "/api/friends", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FriendHabits(ctx context.Context, friendID int64) (*friendship.FriendHabitsResponse, error) {
	var out friendship.FriendHabitsResponse
	if err := c.do(ctx, http.MethodGet, "/api/friends/"+id(friendID)+"/habits", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Subscribe(ctx context.Context, habitID int64) (*subscription.SubscriptionResult, error) {
	var out subscription.SubscriptionResult
	if err := c.do(ctx, http.MethodPost, "/api/friends/subscribe/"+id(habitID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Unsubscribe(ctx context.Context, habitID int64) (*subscription.SubscriptionResult, error) {
	var out subscription.SubscriptionResult
	if err := c.do(ctx, http.MethodDelete, "/api/friends/subscribe/"+id(habitID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Invite(ctx context.Context, habitID int64) (*subscription.InvitePreview, error) {
	var out subscription.InvitePreview
	if err := c.do(ctx, http.MethodGet, "/api/invite/"+id(habitID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) NotificationSettings(ctx context.Context) (*notification.Settings, error) {
	var out notification.Settings
	if err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateNotificationSettings(ctx context.Context, req *notification.UpdateSettingsRequest) (*notification.Settings, error) {
	var out notification.Settings
	if err := c.do(ctx, http.MethodPost, "/api/notifications", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegisterDevice(ctx context.Context, req *notification.RegisterDeviceRequest) error {
	return c.do(ctx, http.MethodPost, "/api/notifications/register-device", req, nil)
}

// do sends one request. Transport failures come back as apperr.Network,
// error statuses as the matching apperr kind.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.initData != "" {
		req.Header.Set(initDataHeader, c.initData)
	}
	if c.devUserID != 0 {
		req.Header.Set(devUserHeader, strconv.FormatInt(c.devUserID, 10))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Network(err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	msg := gjson.GetBytes(body, "error").String()
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch code {
	case http.StatusBadRequest:
		return apperr.Validation(msg)
	case http.StatusUnauthorized:
		return apperr.Unauthenticated(msg)
	case http.StatusForbidden:
		return apperr.AccessDenied(msg)
	case http.StatusNotFound:
		return apperr.NotFound(msg)
	default:
		return fmt.Errorf("server returned %d: %s", code, msg)
	}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
