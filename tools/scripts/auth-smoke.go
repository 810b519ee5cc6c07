// Package main provides a CI-friendly smoke test for the promodesk auth flow.
//
// It validates, against a running server with a seeded user:
//   - login -> access token + refresh cookie
//   - authenticated /auth/me
//   - refresh rotation (old cookie dies, new one works)
//   - logout -> refresh cookie revoked
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		email    = flag.String("email", "", "Login email (required)")
		password = flag.String("password", "", "Login password (required)")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		fatalf("-email and -password are required")
	}
	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookiejar: %v", err)
	}
	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: *timeout},
		verbose: *verbose,
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"login", func() error { return c.login(*email, *password) }},
		{"me", c.me},
		{"refresh", c.refresh},
		{"replay rejected", c.replayRejected},
		{"logout", c.logout},
		{"refresh after logout rejected", c.refreshRejected},
	}

	for _, s := range steps {
		if err := s.fn(); err != nil {
			fatalf("%s: %v", s.name, err)
		}
		c.logf("ok: %s", s.name)
	}

	fmt.Println("auth smoke: PASS")
}

type smokeClient struct {
	base    string
	http    *http.Client
	verbose bool

	accessToken string
	lastCookie  *http.Cookie
	spent       *http.Cookie
}

func (c *smokeClient) logf(format string, args ...any) {
	if c.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func (c *smokeClient) postJSON(path string, body any, out any) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, c.base+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	for _, ck := range resp.Cookies() {
		if strings.Contains(ck.Name, "refresh") && ck.Value != "" {
			c.lastCookie = ck
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (c *smokeClient) login(email, password string) error {
	var resp struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	status, err := c.postJSON("/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if resp.Session.AccessToken == "" {
		return errors.New("no access token")
	}
	if c.lastCookie == nil {
		return errors.New("no refresh cookie")
	}
	c.accessToken = resp.Session.AccessToken
	return nil
}

func (c *smokeClient) me() error {
	req, err := http.NewRequest(http.MethodGet, c.base+"/auth/me", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func (c *smokeClient) refresh() error {
	prev := c.lastCookie
	status, err := c.postJSON("/auth/refresh", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if c.lastCookie == nil || (prev != nil && c.lastCookie.Value == prev.Value) {
		return errors.New("refresh cookie not rotated")
	}
	// Keep the spent cookie around for the replay check.
	c.spent = prev
	return nil
}

func (c *smokeClient) replayRejected() error {
	if c.spent == nil {
		return errors.New("no spent cookie captured")
	}

	req, err := http.NewRequest(http.MethodPost, c.base+"/auth/refresh", nil)
	if err != nil {
		return err
	}
	req.AddCookie(c.spent)

	// Bypass the jar so only the spent cookie travels.
	plain := &http.Client{Timeout: c.http.Timeout}
	resp, err := plain.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusUnauthorized {
		return fmt.Errorf("expected 401, got %d", resp.StatusCode)
	}
	return nil
}

func (c *smokeClient) logout() error {
	status, err := c.postJSON("/auth/logout", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("status %d", status)
	}
	return nil
}

func (c *smokeClient) refreshRejected() error {
	status, err := c.postJSON("/auth/refresh", nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return errors.New("refresh succeeded after logout")
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "auth smoke: FAIL: "+format+"\n", args...)
	os.Exit(1)
}
