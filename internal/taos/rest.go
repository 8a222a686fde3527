package taos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// restSubmitter speaks the TDengine REST API: one POST per statement to
// /rest/sql/{database} with HTTP basic auth. The endpoint is stateless, so
// the underlying http.Client makes it safe for concurrent use as is.
type restSubmitter struct {
	endpoint string
	username string
	password string
	http     *http.Client
}

func newRESTSubmitter(cfg Config) *restSubmitter {
	return &restSubmitter{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/rest/sql/" + cfg.Database,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *restSubmitter) Submit(ctx context.Context, stmt string) (*RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(stmt))

	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(s.username, s.password)

	resp, err := s.http.Do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw RawResponse

	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if raw.Code != nil && *raw.Code != 0 {
		return nil, fmt.Errorf("server returned code %d: %s", *raw.Code, raw.Desc)
	}

	return &raw, nil
}
