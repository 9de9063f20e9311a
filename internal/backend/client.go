/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"labelpress/internal/domain"
)

// Client is a minimal HTTP client for the spool service API. The desktop
// app uses it to fetch shared templates and to inspect the spool queue.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new spool service client. baseURL may include a
// trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// FetchToken asks the service for a bearer token and stores it on the client.
func (c *Client) FetchToken(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	req := map[string]any{"subject": subject, "ttl_seconds": int64(ttl / time.Second)}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", req, &resp); err != nil {
		return "", err
	}
	c.Token = resp.Token
	return resp.Token, nil
}

// ListTemplates returns the shared templates.
func (c *Client) ListTemplates(ctx context.Context) ([]domain.LabelTemplate, error) {
	var list []domain.LabelTemplate
	if err := c.doJSON(ctx, http.MethodGet, "/api/templates", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetTemplate fetches one shared template by id.
func (c *Client) GetTemplate(ctx context.Context, id string) (domain.LabelTemplate, error) {
	var t domain.LabelTemplate
	if err := c.doJSON(ctx, http.MethodGet, "/api/templates/"+url.PathEscape(id), nil, &t); err != nil {
		return domain.LabelTemplate{}, err
	}
	return t, nil
}

// PushTemplate uploads a template so other workstations can pull it.
func (c *Client) PushTemplate(ctx context.Context, t domain.LabelTemplate) error {
	return c.doJSON(ctx, http.MethodPut, "/api/templates/"+url.PathEscape(t.ID), t, nil)
}

// ListSpooled returns recent spool queue entries.
func (c *Client) ListSpooled(ctx context.Context, limit int) ([]SpooledJob, error) {
	path := "/api/jobs"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var list []SpooledJob
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}
