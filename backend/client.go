package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Client is the typed HTTP surface of the dashboard backend. Nothing
// else in the repository issues requests; the UI only ever sees the
// structures returned here.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetHeaders(map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		})
	return &Client{http: http, log: log.With().Str("component", "api").Logger()}
}

// Dashboard fetches a dashboard with its components.
func (c *Client) Dashboard(ctx context.Context, id string) (Dashboard, error) {
	var dash Dashboard
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&dash).
		Get("/api/dashboards/" + id)
	if err != nil {
		return Dashboard{}, fmt.Errorf("fetching dashboard %s: %w", id, err)
	}
	if !resp.IsSuccess() {
		return Dashboard{}, fmt.Errorf("fetching dashboard %s: status %s", id, resp.Status())
	}
	return dash, nil
}

// Query runs a component's query config and returns the row set. The
// context aborts the request when the owning session is cancelled, so a
// dashboard switch mid-flight simply drops the response.
func (c *Client) Query(ctx context.Context, componentID string, queryConfig map[string]any) (QueryResult, error) {
	var result QueryResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"query_config": queryConfig}).
		SetResult(&result).
		Post("/api/components/" + componentID + "/query")
	if err != nil {
		return QueryResult{}, fmt.Errorf("querying component %s: %w", componentID, err)
	}
	if !resp.IsSuccess() {
		return QueryResult{}, fmt.Errorf("querying component %s: status %s", componentID, resp.Status())
	}
	c.log.Debug().Str("component_id", componentID).Int("rows", len(result.Rows)).Msg("query complete")
	return result, nil
}

// LayoutUpdate carries every persisted layout field for one component.
// Field names match the backend schema and must not change.
type LayoutUpdate struct {
	ComponentID string  `json:"component_id"`
	Col         int     `json:"col"`
	Row         int     `json:"row"`
	ColSpan     int     `json:"col_span"`
	RowSpan     int     `json:"row_span"`
	WidthRatio  float64 `json:"width_ratio"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	OrderIndex  int     `json:"order_index"`
}

// SaveLayout persists the grid geometry of a whole dashboard.
func (c *Client) SaveLayout(ctx context.Context, dashboardID string, updates []LayoutUpdate) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"layout": updates}).
		Put("/api/dashboards/" + dashboardID + "/layout")
	if err != nil {
		return fmt.Errorf("saving layout for dashboard %s: %w", dashboardID, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("saving layout for dashboard %s: status %s", dashboardID, resp.Status())
	}
	return nil
}

// Rename updates a component's display name.
func (c *Client) Rename(ctx context.Context, componentID, name string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"name": name}).
		Patch("/api/components/" + componentID)
	if err != nil {
		return fmt.Errorf("renaming component %s: %w", componentID, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("renaming component %s: status %s", componentID, resp.Status())
	}
	return nil
}
