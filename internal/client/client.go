// Package client speaks to a running monitor's REST API. It backs the
// CLI subcommands, which are thin formatters over these calls.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"netscope/internal/api"
)

type Client struct {
	BaseURL string
}

func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) Stats() (*api.StatsResponse, error) {
	var result api.StatsResponse
	if err := c.get("/api/v1/stats", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Apps(limit int) (*api.AppsResponse, error) {
	var result api.AppsResponse
	if err := c.get(fmt.Sprintf("/api/v1/apps?limit=%d", limit), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) HistoryApps(limit int) (*api.HistoryAppsResponse, error) {
	var result api.HistoryAppsResponse
	if err := c.get(fmt.Sprintf("/api/v1/history/apps?limit=%d", limit), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Recent(limit int) (*api.RecentResponse, error) {
	var result api.RecentResponse
	if err := c.get(fmt.Sprintf("/api/v1/recent?limit=%d", limit), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Categories() (*api.CategoriesResponse, error) {
	var result api.CategoriesResponse
	if err := c.get("/api/v1/categories", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) HistoryCategories() (*api.CategoriesResponse, error) {
	var result api.CategoriesResponse
	if err := c.get("/api/v1/history/categories", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) HistorySummary() (*api.HistorySummaryResponse, error) {
	var result api.HistorySummaryResponse
	if err := c.get("/api/v1/history/summary", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Reset() error {
	req, err := http.NewRequest("POST", c.BaseURL+"/api/v1/stats/reset", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return nil
}

func (c *Client) Cleanup(olderThan string) (*api.CleanupResponse, error) {
	req, err := http.NewRequest("DELETE", c.BaseURL+"/api/v1/history?older-than="+olderThan, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var result api.CleanupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequest("GET", c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("%s", errResp.Error)
}
