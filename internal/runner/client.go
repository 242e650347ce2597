// Package runner contains the HTTP client for the cursor-runner automation
// service. The relay submits prompts as asynchronous "iterate" tasks; the
// runner reports completion later by POSTing to the relay's callback
// endpoint, which it knows out-of-band.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/jarekbird/telegram-receiver/internal/extapi"
)

// Iterate parameters fixed by the relay for every forwarded prompt.
const (
	// DefaultBranch is the branch the runner iterates on.
	DefaultBranch = "main"
	// MaxIterations bounds how many agent iterations a single task may run.
	MaxIterations = 25
)

// IterateRequest is the JSON body of an iterate submission.
type IterateRequest struct {
	Repository    string `json:"repository"`
	BranchName    string `json:"branchName"`
	Prompt        string `json:"prompt"`
	MaxIterations int    `json:"maxIterations"`
	RequestID     string `json:"requestId"`
}

// Client submits tasks to the cursor-runner service.
type Client interface {
	Iterate(ctx context.Context, prompt, requestID string) error
}

// HTTPClient implements Client over the runner's REST API.
type HTTPClient struct {
	// BaseURL is the root of the runner service, without trailing slash.
	BaseURL string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

type runnerErrorResponse struct {
	Error string `json:"error"`
}

// Iterate submits prompt under requestID. The repository placeholder is left
// blank and the branch and iteration cap are fixed; the runner resolves the
// target repository from its own configuration.
//
// A 2xx response means the task was accepted, not that it completed; the
// result arrives later through the callback endpoint. Failures are
// classified: transport errors map to connection/timeout, a JSON error body
// to an automation domain error, and anything else to invalid_response.
func (c *HTTPClient) Iterate(ctx context.Context, prompt, requestID string) error {
	const op = "iterate"

	payload, err := json.Marshal(IterateRequest{
		Repository:    "",
		BranchName:    DefaultBranch,
		Prompt:        prompt,
		MaxIterations: MaxIterations,
		RequestID:     requestID,
	})
	if err != nil {
		return extapi.New(extapi.KindAutomation, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/iterate", bytes.NewReader(payload))
	if err != nil {
		return extapi.New(extapi.KindAutomation, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return extapi.Classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var re runnerErrorResponse
	if err := json.Unmarshal(body, &re); err == nil && re.Error != "" {
		return extapi.Newf(extapi.KindAutomation, op, "runner rejected task: %s", re.Error)
	}
	return extapi.Newf(extapi.KindInvalidResponse, op, "runner returned status %d", resp.StatusCode)
}

func (c *HTTPClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
