// Package inventory is the client side of the fleet inventory service. It
// resolves per-device credentials and identity over HTTP and falls back to
// a local YAML file when the service is unreachable. The core never stores
// credentials; they live for one request or one pooled connection.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Credentials holds everything needed to reach one OLT over SSH and SNMP.
type Credentials struct {
	Host          string `json:"host"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	SSHPort       int    `json:"ssh_port"`
	SNMPCommunity string `json:"snmp_community"`
}

// Identity is the inventory's view of one OLT.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IP     string `json:"ip"`
	Status string `json:"status"`
}

// SysnameChange is one entry of an OLT's recent rename history.
type SysnameChange struct {
	OldSysname string    `json:"old_sysname"`
	Timestamp  time.Time `json:"timestamp"`
}

// ErrNotFound is returned when the inventory has no record for a lookup.
var ErrNotFound = fmt.Errorf("inventory: not found")

// Client talks to the inventory HTTP API. Lookups carry the caller's
// context so trap enrichment can bound them with a short timeout.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	fallbackPath string
	logger       *zap.Logger
}

// Config configures an inventory client.
type Config struct {
	// BaseURL is the inventory service root, e.g. "http://inventory:8080".
	BaseURL string
	// Timeout bounds every HTTP call. Zero means 10s.
	Timeout time.Duration
	// FallbackPath is the olt_config.yaml credential fallback file.
	// Empty disables the fallback.
	FallbackPath string
}

// NewClient creates an inventory client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: timeout},
		fallbackPath: cfg.FallbackPath,
		logger:       logger,
	}
}

// Credentials resolves the SSH/SNMP credentials for one OLT. When the HTTP
// call fails and a fallback file is configured, the file is consulted
// before giving up.
func (c *Client) Credentials(ctx context.Context, oltID string) (*Credentials, error) {
	var creds Credentials
	err := c.getJSON(ctx, fmt.Sprintf("/olts/%s/credentials", url.PathEscape(oltID)), &creds)
	if err == nil {
		if creds.SSHPort == 0 {
			creds.SSHPort = 22
		}
		return &creds, nil
	}

	if c.fallbackPath == "" {
		return nil, err
	}

	c.logger.Warn("inventory unreachable, using credential fallback file",
		zap.String("olt_id", oltID),
		zap.String("path", c.fallbackPath),
		zap.Error(err))

	fb, fbErr := loadFallback(c.fallbackPath)
	if fbErr != nil {
		return nil, fmt.Errorf("inventory unavailable (%w) and fallback failed: %v", err, fbErr)
	}
	creds2, ok := fb.credentials(oltID)
	if !ok {
		return nil, fmt.Errorf("inventory unavailable (%w) and olt %s not in fallback file", err, oltID)
	}
	return creds2, nil
}

// LookupByIP resolves the identity of the OLT at ip.
func (c *Client) LookupByIP(ctx context.Context, ip string) (*Identity, error) {
	return c.lookup(ctx, "ip", ip)
}

// LookupByName resolves the identity of the OLT named name. Used by the
// sysname guard's duplicate check.
func (c *Client) LookupByName(ctx context.Context, name string) (*Identity, error) {
	return c.lookup(ctx, "name", name)
}

func (c *Client) lookup(ctx context.Context, key, value string) (*Identity, error) {
	var matches []Identity
	path := fmt.Sprintf("/olts?%s=%s", key, url.QueryEscape(value))
	if err := c.getJSON(ctx, path, &matches); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

// Status returns the operational status string of one OLT.
func (c *Client) Status(ctx context.Context, oltID string) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/olts/%s/status", url.PathEscape(oltID)), &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// SysnameHistory returns the inventory's recent rename records for one OLT,
// newest first. The trap router uses it to decide dual-key publication.
func (c *Client) SysnameHistory(ctx context.Context, oltID string) ([]SysnameChange, error) {
	var resp struct {
		RecentChanges []SysnameChange `json:"recent_changes"`
	}
	path := fmt.Sprintf("/olts/%s/sysname-history", url.PathEscape(oltID))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.RecentChanges, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inventory request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inventory request %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode inventory response %s: %w", path, err)
	}
	return nil
}
