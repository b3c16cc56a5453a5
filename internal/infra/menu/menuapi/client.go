package menuapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/fetcher"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
)

const defaultBaseURL = "https://menus.example-schools.org/api/v1"

// Client fetches daily menus from the school menu provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client. Per-request deadlines come from the
// caller's context, so the transport timeout is only a backstop.
func NewClient(baseURL string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(u, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchMenu retrieves the menu for one school and date.
func (c *Client) FetchMenu(ctx context.Context, sourceID, date string) (menu.Record, error) {
	endpoint := fmt.Sprintf("%s/schools/%s/menus/%s", c.baseURL, url.PathEscape(sourceID), url.PathEscape(date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return menu.Record{}, fmt.Errorf("build menu request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return menu.Record{}, fmt.Errorf("menu request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return menu.Record{}, &fetcher.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return menu.Record{}, fetcher.Contract("read menu response", err)
	}

	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return menu.Record{}, fetcher.Contract("decode menu response", err)
	}
	rec, err := raw.toRecord(date)
	if err != nil {
		return menu.Record{}, fetcher.Contract("validate menu response", err)
	}
	return rec, nil
}

type apiResponse struct {
	Date    string     `json:"date"`
	Items   *[]apiItem `json:"items"`
	Message string     `json:"message"`
}

type apiItem struct {
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Nutrition   *apiNutrition `json:"nutrition"`
	Allergens   []string      `json:"allergens"`
}

type apiNutrition struct {
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
}

func (r apiResponse) toRecord(requested string) (menu.Record, error) {
	if r.Items == nil {
		return menu.Record{}, errors.New("items missing")
	}
	if r.Date != "" && r.Date != requested {
		return menu.Record{}, fmt.Errorf("response date %s does not match requested %s", r.Date, requested)
	}

	items := make([]menu.Item, 0, len(*r.Items))
	for _, raw := range *r.Items {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}
		items = append(items, menu.Item{
			Name:        name,
			Category:    strings.TrimSpace(raw.Category),
			Description: strings.TrimSpace(raw.Description),
			Nutrients:   raw.Nutrition.toNutrients(),
			Allergens:   normalizeList(raw.Allergens),
		})
	}
	return menu.Record{
		Date:    requested,
		Items:   items,
		Message: strings.TrimSpace(r.Message),
	}, nil
}

// toNutrients keeps nutrition only when both calories and protein are
// reported.
func (n *apiNutrition) toNutrients() *menu.Nutrients {
	if n == nil || n.Calories == nil || n.Protein == nil {
		return nil
	}
	return &menu.Nutrients{Calories: *n.Calories, ProteinGrams: *n.Protein}
}

func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if clean := strings.TrimSpace(v); clean != "" {
			out = append(out, clean)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
