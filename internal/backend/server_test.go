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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyToken(t *testing.T) {
	secret := "test-secret"
	tok, err := signToken(secret, "alice", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	sub, err := verifyToken(secret, tok)
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("subject = %q, want alice", sub)
	}
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	secret := "test-secret"
	tok, err := signToken(secret, "alice", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if _, err := verifyToken("other-secret", tok); err == nil {
		t.Fatalf("token signed with a different secret should not verify")
	}
	if _, err := verifyToken(secret, tok+"x"); err == nil {
		t.Fatalf("mutated token should not verify")
	}
	expired, err := signToken(secret, "alice", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if _, err := verifyToken(secret, expired); err == nil {
		t.Fatalf("expired token should not verify")
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("0002_indexes.sql")
	if err != nil {
		t.Fatalf("parseVersion: %v", err)
	}
	if v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}
	if _, err := parseVersion("notaversion.sql"); err == nil {
		t.Fatalf("non-numeric prefix should fail")
	}
}

func TestTokenEndpoint(t *testing.T) {
	srv := httptest.NewServer(newMux(nil, nil, "test-secret"))
	defer srv.Close()

	body := bytes.NewBufferString(`{"subject":"station-7","ttl_seconds":60}`)
	resp, err := http.Post(srv.URL+"/api/auth/token", "application/json", body)
	if err != nil {
		t.Fatalf("post token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sub, err := verifyToken("test-secret", out.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if sub != "station-7" {
		t.Fatalf("subject = %q", sub)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := httptest.NewServer(newMux(nil, nil, "test-secret"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/templates")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv := httptest.NewServer(newMux(nil, nil, "test-secret"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "labelpress ") {
		t.Fatalf("version body = %q", buf.String())
	}
}

func TestClientTokenRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newMux(nil, nil, "test-secret"))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tok, err := c.FetchToken(ctx, "desk-1", time.Hour)
	if err != nil {
		t.Fatalf("FetchToken: %v", err)
	}
	if tok == "" || c.Token != tok {
		t.Fatalf("token not stored on client")
	}
}
