package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vmunix/dubwatch/internal/history"
)

// Client wraps HTTP calls to the dubwatch daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new dubwatch API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// History returns recent processing outcomes.
func (c *Client) History() ([]history.Record, error) {
	var records []history.Record
	if err := c.get("/api/history", &records); err != nil {
		return nil, err
	}
	return records, nil
}
