package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rustyeddy/papertrader/internal/backoff"
)

// DefaultFearGreedURL is the alternative.me Fear & Greed endpoint.
const DefaultFearGreedURL = "https://api.alternative.me/fng/"

// FearGreedClient reads the Fear & Greed index and maps it to an overall
// score: 0 is -1, 50 is neutral and 100 is +1.
type FearGreedClient struct {
	URL    string
	Client *http.Client
}

// NewFearGreedClient returns a client for url, or the default endpoint.
func NewFearGreedClient(url string) *FearGreedClient {
	if url == "" {
		url = DefaultFearGreedURL
	}
	return &FearGreedClient{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

type fngResponse struct {
	Data []struct {
		Value     string `json:"value"`
		Class     string `json:"value_classification"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
}

func (c *FearGreedClient) Sentiment(ctx context.Context) (Reading, error) {
	var resp fngResponse
	err := backoff.Retry(ctx, 2, 250*time.Millisecond, func() error {
		return c.get(ctx, &resp)
	})
	if err != nil {
		return Reading{}, err
	}
	if len(resp.Data) == 0 {
		return Reading{}, fmt.Errorf("fear & greed: empty response")
	}

	fg, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("fear & greed value %q: %w", resp.Data[0].Value, err)
	}
	overall := clamp((fg - 50) / 50)

	at := time.Now().UTC()
	if sec, err := strconv.ParseInt(resp.Data[0].Timestamp, 10, 64); err == nil {
		at = time.Unix(sec, 0).UTC()
	}
	return Reading{Time: at, FearGreed: &fg, Overall: &overall}, nil
}

func (c *FearGreedClient) get(ctx context.Context, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return err
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(data)
}
