/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"labelpress/internal/domain"
	"labelpress/internal/render"
)

// Spool posts rendered documents to a remote print spooler over HTTP.
// The spooler owns the physical printer; this sink only reports delivery.
type Spool struct {
	// URL is the spooler's submit endpoint.
	URL string
	// Token, when set, is sent as a bearer credential.
	Token string
	// Timeout bounds each request; 10s when unset.
	Timeout time.Duration
	// Client may be overridden for tests; a default client with Timeout
	// is used otherwise.
	Client *http.Client
}

type spoolEnvelope struct {
	Document render.Document      `json:"document"`
	Settings domain.PrintSettings `json:"settings"`
}

func (s *Spool) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Print submits one document. Any non-2xx response is an error carrying
// the spooler's status and body excerpt, which lands verbatim in the job
// record.
func (s *Spool) Print(ctx context.Context, doc render.Document, settings domain.PrintSettings) error {
	if s.URL == "" {
		return fmt.Errorf("spool sink has no url")
	}
	buf, err := json.Marshal(spoolEnvelope{Document: doc, Settings: settings})
	if err != nil {
		return fmt.Errorf("marshal spool request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build spool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("spool request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("spooler rejected document: %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return nil
}
