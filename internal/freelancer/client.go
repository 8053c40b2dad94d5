// Package freelancer implements the Freelancer.com marketplace API client
// used for project search and bid placement.
package freelancer

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

	"github.com/gigmatch/gigmatch/internal/model"
)

const (
	searchPath = "/projects/active/"
	selfPath   = "/users/0.1/self/"
	bidsPath   = "/bids/"
)

// project represents a single project in the search API response.
type project struct {
	ID                 int64          `json:"id"`
	Title              string         `json:"title"`
	PreviewDescription string         `json:"preview_description"`
	Description        string         `json:"description"`
	Budget             *projectBudget `json:"budget"`
	Upgrades           map[string]any `json:"upgrades"`
	BidStats           projectBids    `json:"bid_stats"`
	Period             *int           `json:"period"`
	Jobs               []projectJob   `json:"jobs"`
	SeoURL             string         `json:"seo_url"`
	SubmitDate         *int64         `json:"submitdate"`
}

type projectBudget struct {
	Minimum  *float64         `json:"minimum"`
	Maximum  *float64         `json:"maximum"`
	Currency *projectCurrency `json:"currency"`
}

type projectCurrency struct {
	Code string `json:"code"`
	Sign string `json:"sign"`
}

type projectBids struct {
	BidCount int `json:"bid_count"`
}

type projectJob struct {
	Name string `json:"name"`
}

// searchResponse covers both response shapes the API serves: a top-level
// `projects` array or one nested under `result`.
type searchResponse struct {
	Projects []project `json:"projects"`
	Result   struct {
		Projects []project `json:"projects"`
	} `json:"result"`
}

type selfResponse struct {
	Result struct {
		ID int64 `json:"id"`
	} `json:"result"`
}

type bidResponse struct {
	Status string `json:"status"`
}

// Client talks to the Freelancer.com API. Search calls authenticate with a
// Bearer token; account-scoped calls (self, bids) use the freelancer-oauth-v1
// header the API expects for OAuth tokens.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a marketplace client for the given API base URL.
func NewClient(baseURL, token string, client *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

// SearchJobs queries active projects matching the given parameters, sorted by
// bid count descending. Projects carrying NDA or full-time upgrades are
// dropped.
func (c *Client) SearchJobs(ctx context.Context, params model.SearchParams) ([]model.JobListing, error) {
	q := url.Values{}
	q.Set("query", params.Query)
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("full_description", "true")
	q.Set("sort_field", "bid_count")
	q.Set("reverse_sort", "true")
	if params.MinHourly != nil {
		q.Set("min_hourly_rate", strconv.FormatFloat(*params.MinHourly, 'f', -1, 64))
	}
	if params.MaxHourly != nil {
		q.Set("max_hourly_rate", strconv.FormatFloat(*params.MaxHourly, 'f', -1, 64))
	}
	if params.Currency != "" {
		q.Set("currency", params.Currency)
	}
	for _, skill := range params.Skills {
		q.Add("jobs[]", skill)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("project search: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("project search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter(resp),
			Err:        fmt.Errorf("project search: unexpected status %d", resp.StatusCode),
		}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("project search: %w", err)
	}

	projects := sr.Projects
	if len(projects) == 0 {
		projects = sr.Result.Projects
	}

	listings := make([]model.JobListing, 0, len(projects))
	for _, p := range projects {
		if hasUpgrade(p.Upgrades, "NDA") || hasUpgrade(p.Upgrades, "fulltime") {
			continue
		}
		listings = append(listings, toListing(p))
		if params.Limit > 0 && len(listings) == params.Limit {
			break
		}
	}
	return listings, nil
}

// PlaceBid submits a bid on a project. Marketplace rejections come back as a
// failed BidResult carrying the response body; only transport and encoding
// failures are returned as errors.
func (c *Client) PlaceBid(ctx context.Context, bid model.BidRequest) (model.BidResult, error) {
	bidderID, err := c.selfID(ctx)
	if err != nil {
		return model.BidResult{}, err
	}
	if bidderID == 0 {
		return model.BidResult{Message: "unable to resolve bidder profile id"}, nil
	}

	payload, err := json.Marshal(map[string]any{
		"project_id":           bid.ProjectID,
		"amount":               bid.Amount,
		"period":               bid.Period,
		"milestone_percentage": bid.MilestonePct,
		"description":          bid.Description,
		"bidder_id":            bidderID,
	})
	if err != nil {
		return model.BidResult{}, fmt.Errorf("place bid: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+bidsPath, bytes.NewReader(payload))
	if err != nil {
		return model.BidResult{}, fmt.Errorf("place bid: %w", err)
	}
	req.Header.Set("freelancer-oauth-v1", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.BidResult{}, fmt.Errorf("place bid: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.BidResult{}, fmt.Errorf("place bid: %w", err)
	}

	var br bidResponse
	if len(body) > 0 {
		// Tolerate non-JSON error bodies; the raw text still reaches the user.
		_ = json.Unmarshal(body, &br)
	}
	if resp.StatusCode == http.StatusOK && br.Status == "success" {
		return model.BidResult{OK: true, Message: "success"}, nil
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return model.BidResult{Message: message}, nil
}

// selfID resolves the authenticated account's own user id.
func (c *Client) selfID(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+selfPath, nil)
	if err != nil {
		return 0, fmt.Errorf("resolve bidder id: %w", err)
	}
	req.Header.Set("freelancer-oauth-v1", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("resolve bidder id: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("resolve bidder id: unexpected status %d", resp.StatusCode),
		}
	}

	var sr selfResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return 0, fmt.Errorf("resolve bidder id: %w", err)
	}
	return sr.Result.ID, nil
}

func toListing(p project) model.JobListing {
	listing := model.JobListing{
		ID:                 p.ID,
		Title:              p.Title,
		PreviewDescription: strings.TrimSpace(p.PreviewDescription),
		FullDescription:    strings.TrimSpace(p.Description),
		Currency:           "USD",
		Type:               "fixed",
		BidCount:           p.BidStats.BidCount,
		Duration:           p.Period,
		URL:                p.SeoURL,
		Submitted:          p.SubmitDate,
	}
	if listing.Title == "" {
		listing.Title = "Untitled project"
	}
	if p.Budget != nil {
		listing.BudgetMin = p.Budget.Minimum
		listing.BudgetMax = p.Budget.Maximum
		if c := p.Budget.Currency; c != nil {
			if c.Code != "" {
				listing.Currency = c.Code
			} else if c.Sign != "" {
				listing.Currency = c.Sign
			}
		}
	}
	if hasUpgrade(p.Upgrades, "is_hourly") {
		listing.Type = "hourly"
	}
	for _, j := range p.Jobs {
		if j.Name != "" {
			listing.Skills = append(listing.Skills, j.Name)
		}
	}
	return listing
}

// hasUpgrade reports whether the named upgrade flag is set truthy.
func hasUpgrade(upgrades map[string]any, name string) bool {
	v, ok := upgrades[name]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// retryAfter parses a numeric Retry-After header, if present.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
