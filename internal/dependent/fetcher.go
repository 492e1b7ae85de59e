package dependent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/form"
)

// Fetcher loads the options of a dependent field from an endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) ([]form.Option, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, endpoint string) ([]form.Option, error)

func (f FetcherFunc) Fetch(ctx context.Context, endpoint string) ([]form.Option, error) {
	return f(ctx, endpoint)
}

// HTTPFetcher GETs endpoint relative to BaseURL. The body may be a list of
// {value, label} options, a list of records, or a page object with a
// "content" list of records. Records map to options through ValueField
// (default "id") and LabelField (default "name").
type HTTPFetcher struct {
	Client     *http.Client
	BaseURL    string
	ValueField string
	LabelField string
}

func (h *HTTPFetcher) Fetch(ctx context.Context, endpoint string) ([]form.Option, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(h.BaseURL, "/")+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching options: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetching options: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}
	return h.decode(raw)
}

func (h *HTTPFetcher) decode(raw json.RawMessage) ([]form.Option, error) {
	var rows []entity.Record
	if err := json.Unmarshal(raw, &rows); err != nil {
		var page struct {
			Content []entity.Record `json:"content"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decoding options: %w", err)
		}
		rows = page.Content
	}
	valueField, labelField := h.ValueField, h.LabelField
	if valueField == "" {
		valueField = entity.IDField
	}
	if labelField == "" {
		labelField = "name"
	}
	opts := make([]form.Option, 0, len(rows))
	for _, r := range rows {
		if v, ok := r["value"]; ok {
			opts = append(opts, form.Option{Value: v, Label: r.Text("label")})
			continue
		}
		label := r.Text(labelField)
		if label == "" {
			label = r.Text(valueField)
		}
		opts = append(opts, form.Option{Value: r[valueField], Label: label})
	}
	return opts, nil
}
