// FILE: internal/client/client.go

// Package client talks to a running arena server over its HTTP API.
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
	"time"

	"enginearena/internal/config"
	"enginearena/internal/core"
	"enginearena/internal/elo"
	"enginearena/internal/registry"
	"enginearena/internal/storage"

	"github.com/rs/zerolog"
)

const apiPrefix = "/api/v1"

// APIError is a non-2xx answer from the server
type APIError struct {
	Status int
	core.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.ErrorResponse.Error)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// IsCode reports whether err is an APIError carrying code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Health struct {
	Status      string `json:"status"`
	Time        int64  `json:"time"`
	Storage     string `json:"storage"`
	Tournaments int    `json:"tournaments"`
}

// Rating is one row of the server's rating list
type Rating struct {
	elo.Rating
	Tier string `json:"tier"`
}

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	log        zerolog.Logger
}

// New returns a client for baseURL. The HTTP timeout leaves room for a
// parked long-poll request.
func New(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: registry.WaitTimeout + 15*time.Second,
		},
		log: logger,
	}
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("api request")

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.ErrorResponse); err != nil || apiErr.ErrorResponse.Error == "" {
			apiErr.ErrorResponse.Error = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding %s %s: %w", method, path, err)
		}
	}
	return nil
}

// API Methods

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

func (c *Client) ListTournaments(ctx context.Context) ([]registry.View, error) {
	var resp []registry.View
	err := c.doRequest(ctx, http.MethodGet, apiPrefix+"/tournaments", nil, &resp)
	return resp, err
}

// CreateTournament registers a tournament definition; the server validates it
func (c *Client) CreateTournament(ctx context.Context, cfg *config.Tournament) (*registry.View, error) {
	var resp registry.View
	err := c.doRequest(ctx, http.MethodPost, apiPrefix+"/tournaments", cfg, &resp)
	return &resp, err
}

func (c *Client) GetTournament(ctx context.Context, id string) (*registry.View, error) {
	var resp registry.View
	err := c.doRequest(ctx, http.MethodGet, apiPrefix+"/tournaments/"+id, nil, &resp)
	return &resp, err
}

// WaitTournament long-polls until the tournament moves past version. The
// server answers with the unchanged view when its wait times out.
func (c *Client) WaitTournament(ctx context.Context, id string, version int) (*registry.View, error) {
	var resp registry.View
	path := fmt.Sprintf("%s/tournaments/%s?wait=true&version=%d", apiPrefix, id, version)
	err := c.doRequest(ctx, http.MethodGet, path, nil, &resp)
	return &resp, err
}

// Board returns nil without error when no game is in progress
func (c *Client) Board(ctx context.Context, id string) (*registry.Board, error) {
	var resp *registry.Board
	err := c.doRequest(ctx, http.MethodGet, apiPrefix+"/tournaments/"+id+"/board", nil, &resp)
	return resp, err
}

func (c *Client) control(ctx context.Context, id, action string) (*registry.View, error) {
	var resp registry.View
	err := c.doRequest(ctx, http.MethodPost, apiPrefix+"/tournaments/"+id+"/"+action, nil, &resp)
	return &resp, err
}

func (c *Client) Start(ctx context.Context, id string) (*registry.View, error) {
	return c.control(ctx, id, "start")
}

func (c *Client) Pause(ctx context.Context, id string) (*registry.View, error) {
	return c.control(ctx, id, "pause")
}

func (c *Client) Resume(ctx context.Context, id string) (*registry.View, error) {
	return c.control(ctx, id, "resume")
}

func (c *Client) Stop(ctx context.Context, id string) (*registry.View, error) {
	return c.control(ctx, id, "stop")
}

// DeleteTournament removes an idle tournament, and its stored games with purge
func (c *Client) DeleteTournament(ctx context.Context, id string, purge bool) error {
	path := apiPrefix + "/tournaments/" + id
	if purge {
		path += "?purge=true"
	}
	return c.doRequest(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) Games(ctx context.Context, filter storage.GameFilter) ([]storage.GameRecord, error) {
	q := url.Values{}
	if filter.TournamentID != "" {
		q.Set("tournament", filter.TournamentID)
	}
	if filter.Engine != "" {
		q.Set("engine", filter.Engine)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	path := apiPrefix + "/games"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp []storage.GameRecord
	err := c.doRequest(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

func (c *Client) Ratings(ctx context.Context) ([]Rating, error) {
	var resp []Rating
	err := c.doRequest(ctx, http.MethodGet, apiPrefix+"/ratings", nil, &resp)
	return resp, err
}

// Watch long-polls a tournament and calls fn with every new view. It
// returns once the tournament is finished, or idle again after having been
// seen running, or when fn fails or ctx ends.
func (c *Client) Watch(ctx context.Context, id string, fn func(*registry.View) error) error {
	view, err := c.GetTournament(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(view); err != nil {
		return err
	}

	seenRunning := view.Running
	for !done(view, seenRunning) {
		next, err := c.WaitTournament(ctx, id, view.Version)
		if err != nil {
			return err
		}
		if next.Version != view.Version {
			if err := fn(next); err != nil {
				return err
			}
		}
		view = next
		seenRunning = seenRunning || view.Running
	}
	return nil
}

func done(v *registry.View, seenRunning bool) bool {
	if v.Running {
		return false
	}
	return v.State == "finished" || seenRunning
}
