package freelancer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gigmatch/gigmatch/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

func TestSearchJobs_Success(t *testing.T) {
	payload := `{
		"result": {
			"projects": [
				{
					"id": 101,
					"title": "Build a Flutter app",
					"preview_description": "Cross-platform mobile app  ",
					"description": "Full description here",
					"budget": {"minimum": 250, "maximum": 750, "currency": {"code": "EUR"}},
					"upgrades": {"featured": true},
					"bid_stats": {"bid_count": 4},
					"period": 14,
					"jobs": [{"name": "Flutter"}, {"name": "Dart"}, {"name": ""}],
					"seo_url": "projects/mobile/build-flutter-app",
					"submitdate": 1756700000
				},
				{
					"id": 102,
					"title": "Hourly API work",
					"preview_description": "REST endpoints",
					"budget": {"minimum": 20, "maximum": 40, "currency": {"sign": "$"}},
					"upgrades": {"is_hourly": true},
					"bid_stats": {"bid_count": 9}
				}
			]
		}
	}`
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/active/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected Authorization header: %q", got)
		}
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", srv.Client())
	jobs, err := c.SearchJobs(context.Background(), model.SearchParams{
		Query:     "mobile developer",
		Skills:    []string{"Flutter", "Dart"},
		MinHourly: floatPtr(32),
		MaxHourly: floatPtr(48),
		Currency:  "USD",
		Limit:     5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}

	j := jobs[0]
	if j.ID != 101 {
		t.Errorf("expected ID 101, got %d", j.ID)
	}
	if j.Title != "Build a Flutter app" {
		t.Errorf("unexpected title: %s", j.Title)
	}
	if j.PreviewDescription != "Cross-platform mobile app" {
		t.Errorf("expected trimmed preview, got %q", j.PreviewDescription)
	}
	if j.Currency != "EUR" {
		t.Errorf("expected currency EUR, got %s", j.Currency)
	}
	if j.BudgetMin == nil || *j.BudgetMin != 250 || j.BudgetMax == nil || *j.BudgetMax != 750 {
		t.Errorf("unexpected budget: %v-%v", j.BudgetMin, j.BudgetMax)
	}
	if j.Type != "fixed" {
		t.Errorf("expected fixed type, got %s", j.Type)
	}
	if j.BidCount != 4 {
		t.Errorf("expected 4 bids, got %d", j.BidCount)
	}
	if j.Duration == nil || *j.Duration != 14 {
		t.Errorf("unexpected duration: %v", j.Duration)
	}
	if len(j.Skills) != 2 || j.Skills[0] != "Flutter" || j.Skills[1] != "Dart" {
		t.Errorf("unexpected skills: %v", j.Skills)
	}

	if jobs[1].Type != "hourly" {
		t.Errorf("expected hourly type, got %s", jobs[1].Type)
	}
	if jobs[1].Currency != "$" {
		t.Errorf("expected currency sign fallback, got %s", jobs[1].Currency)
	}

	if got := gotQuery["query"]; len(got) != 1 || got[0] != "mobile developer" {
		t.Errorf("unexpected query param: %v", got)
	}
	if got := gotQuery["jobs[]"]; len(got) != 2 {
		t.Errorf("expected 2 jobs[] params, got %v", got)
	}
	if got := gotQuery["sort_field"]; len(got) != 1 || got[0] != "bid_count" {
		t.Errorf("unexpected sort_field: %v", got)
	}
	if got := gotQuery["min_hourly_rate"]; len(got) != 1 || got[0] != "32" {
		t.Errorf("unexpected min_hourly_rate: %v", got)
	}
}

func TestSearchJobs_TopLevelProjectsShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"projects": [{"id": 7, "title": "Plain shape"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", srv.Client())
	jobs, err := c.SearchJobs(context.Background(), model.SearchParams{Query: "x", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != 7 {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestSearchJobs_DropsNDAAndFulltime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"projects": [
			{"id": 1, "title": "NDA project", "upgrades": {"NDA": true}},
			{"id": 2, "title": "Fulltime project", "upgrades": {"fulltime": true}},
			{"id": 3, "title": "Open project"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", srv.Client())
	jobs, err := c.SearchJobs(context.Background(), model.SearchParams{Query: "x", Limit: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != 3 {
		t.Fatalf("expected only the open project, got %+v", jobs)
	}
}

func TestSearchJobs_LimitAppliedAfterFiltering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"projects": [
			{"id": 1, "title": "a"},
			{"id": 2, "title": "b"},
			{"id": 3, "title": "c"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", srv.Client())
	jobs, err := c.SearchJobs(context.Background(), model.SearchParams{Query: "x", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected limit 2, got %d", len(jobs))
	}
}

func TestSearchJobs_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", srv.Client())
	_, err := c.SearchJobs(context.Background(), model.SearchParams{Query: "x", Limit: 5})
	if err == nil {
		t.Fatal("expected error for HTTP 429, got nil")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", httpErr.StatusCode)
	}
}

func TestSearchJobs_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not valid json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", srv.Client())
	_, err := c.SearchJobs(context.Background(), model.SearchParams{Query: "x", Limit: 5})
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestPlaceBid_Success(t *testing.T) {
	var bidBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/0.1/self/":
			if got := r.Header.Get("freelancer-oauth-v1"); got != "oauth-token" {
				t.Errorf("unexpected oauth header on self: %q", got)
			}
			w.Write([]byte(`{"result": {"id": 555}}`))
		case "/bids/":
			if got := r.Header.Get("freelancer-oauth-v1"); got != "oauth-token" {
				t.Errorf("unexpected oauth header on bids: %q", got)
			}
			if err := json.NewDecoder(r.Body).Decode(&bidBody); err != nil {
				t.Errorf("decoding bid body: %v", err)
			}
			w.Write([]byte(`{"status": "success"}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "oauth-token", srv.Client())
	result, err := c.PlaceBid(context.Background(), model.BidRequest{
		ProjectID:    101,
		Amount:       300,
		Period:       10,
		MilestonePct: 100,
		Description:  "My proposal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK {
		t.Errorf("expected OK result, got %+v", result)
	}
	if bidBody["project_id"] != float64(101) || bidBody["amount"] != float64(300) {
		t.Errorf("unexpected bid payload: %+v", bidBody)
	}
	if bidBody["bidder_id"] != float64(555) {
		t.Errorf("expected bidder_id 555, got %v", bidBody["bidder_id"])
	}
	if bidBody["milestone_percentage"] != float64(100) {
		t.Errorf("expected milestone_percentage 100, got %v", bidBody["milestone_percentage"])
	}
}

func TestPlaceBid_RejectionBecomesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/0.1/self/":
			w.Write([]byte(`{"result": {"id": 555}}`))
		case "/bids/":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status": "error", "message": "insufficient funds"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "oauth-token", srv.Client())
	result, err := c.PlaceBid(context.Background(), model.BidRequest{ProjectID: 101, Amount: 300, Period: 10})
	if err != nil {
		t.Fatalf("expected rejection as result, got error: %v", err)
	}
	if result.OK {
		t.Error("expected failed result")
	}
	if result.Message == "" {
		t.Error("expected rejection message from response body")
	}
}

func TestPlaceBid_SelfLookupFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-token", srv.Client())
	_, err := c.PlaceBid(context.Background(), model.BidRequest{ProjectID: 101, Amount: 300, Period: 10})
	if err == nil {
		t.Fatal("expected error when bidder id cannot be resolved")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected HTTPError with status 401, got %v", err)
	}
}

func TestPlaceBid_MissingBidderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bids/" {
			t.Error("bid must not be submitted without a bidder id")
		}
		w.Write([]byte(`{"result": {}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", srv.Client())
	result, err := c.PlaceBid(context.Background(), model.BidRequest{ProjectID: 101, Amount: 300, Period: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OK {
		t.Error("expected failed result")
	}
}
