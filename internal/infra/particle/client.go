package particle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"particle-skill/internal/domain"
)

const DefaultBaseURL = "https://api.particle.io"

// Client talks to the Particle device cloud REST API on behalf of individual
// users. It holds no credentials of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-2xx answer from the cloud that has no domain meaning.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("particle api error %d: %s", e.Status, e.Message)
}

func NewClient(timeout time.Duration) *Client {
	return NewClientWithURL(DefaultBaseURL, timeout)
}

func NewClientWithURL(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type deviceJSON struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Connected bool              `json:"connected"`
	Functions []string          `json:"functions"`
	Variables map[string]string `json:"variables"`
}

func (c *Client) ListDevices(ctx context.Context, token string) ([]domain.DeviceSummary, error) {
	var resp []deviceJSON
	if err := c.do(ctx, "list_devices", token, http.MethodGet, "/v1/devices", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching devices: %w", err)
	}

	devices := make([]domain.DeviceSummary, 0, len(resp))
	for _, d := range resp {
		devices = append(devices, domain.DeviceSummary{
			ID:        d.ID,
			Name:      d.Name,
			Connected: d.Connected,
		})
	}
	return devices, nil
}

func (c *Client) GetDevice(ctx context.Context, token, deviceID string) (*domain.Device, error) {
	var resp deviceJSON
	path := "/v1/devices/" + url.PathEscape(deviceID)
	if err := c.do(ctx, "get_device", token, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching device: %w", err)
	}

	return &domain.Device{
		ID:        resp.ID,
		Name:      resp.Name,
		Connected: resp.Connected,
		Functions: resp.Functions,
		Variables: resp.Variables,
	}, nil
}

func (c *Client) CallFunction(ctx context.Context, token, deviceID, name, arg string) (int, error) {
	form := url.Values{}
	form.Set("arg", arg)

	var resp struct {
		ID          string `json:"id"`
		Connected   bool   `json:"connected"`
		ReturnValue int    `json:"return_value"`
	}

	path := fmt.Sprintf("/v1/devices/%s/%s", url.PathEscape(deviceID), url.PathEscape(name))
	if err := c.do(ctx, "call_function", token, http.MethodPost, path, form, &resp); err != nil {
		return 0, fmt.Errorf("calling function: %w", err)
	}
	return resp.ReturnValue, nil
}

func (c *Client) GetVariable(ctx context.Context, token, deviceID, name string) (*domain.Variable, error) {
	var resp struct {
		Name   string          `json:"name"`
		Result json.RawMessage `json:"result"`
	}

	path := fmt.Sprintf("/v1/devices/%s/%s", url.PathEscape(deviceID), url.PathEscape(name))
	err := c.do(ctx, "get_variable", token, http.MethodGet, path, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, domain.ErrVariableNotFound
		}
		return nil, fmt.Errorf("reading variable: %w", err)
	}

	var value any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &value); err != nil {
			return nil, fmt.Errorf("parsing variable result: %w", err)
		}
	}

	if resp.Name == "" {
		resp.Name = name
	}
	return &domain.Variable{Name: resp.Name, Value: value}, nil
}

// do sends one request with the user's token as bearer credential and decodes
// a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, operation, token, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.authorized(ctx, token).Do(req)
	requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if err := json.NewDecoder(bytes.NewReader(data)).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// authorized wraps the base client so every request carries the user's token.
func (c *Client) authorized(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.httpClient.Timeout
	return client
}

func errorMessage(body []byte) string {
	var resp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Info             string `json:"info"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		switch {
		case resp.ErrorDescription != "":
			return resp.ErrorDescription
		case resp.Error != "":
			return resp.Error
		case resp.Info != "":
			return resp.Info
		}
	}
	return strings.TrimSpace(string(body))
}
