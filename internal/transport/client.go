package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"machine-dashboard-client/config"
	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/parse"
)

var log = logrus.WithField("component", "transport")

// ErrActionRejected is returned when an action endpoint answers ok=false.
var ErrActionRejected = errors.New("action rejected by backend")

// RequestIDHeader carries the correlation id of a machine action.
const RequestIDHeader = "X-Request-ID"

// Client talks to the backend REST surface.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type actionRequest struct {
	Location  string          `json:"location"`
	MachineID model.MachineID `json:"machine_id"`
	NewName   string          `json:"new_name,omitempty"`
}

// NewClient builds a backend client. Outgoing machine actions are throttled
// to cfg.ActionsPerSecond.
func NewClient(cfg config.BackendConfig) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warnf("invalid proxy URL %q: %v; backend requests will not use a proxy", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	burst := int(cfg.ActionsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), burst),
	}
}

// Dashboard fetches the full snapshot.
func (c *Client) Dashboard(ctx context.Context) (parse.Snapshot, error) {
	body, err := c.get(ctx, "/dashboard")
	if err != nil {
		return parse.Snapshot{}, err
	}
	return parse.Dashboard(body)
}

// ProductionLogs fetches the most recent production log rows, keeping at
// most limit of them.
func (c *Client) ProductionLogs(ctx context.Context, limit int) ([]model.ProductionLog, error) {
	body, err := c.get(ctx, "/production_logs")
	if err != nil {
		return nil, err
	}
	return parse.ProductionLogs(body, limit)
}

// WorkOrders fetches the ERP work order list.
func (c *Client) WorkOrders(ctx context.Context) ([]model.WorkOrder, error) {
	body, err := c.get(ctx, "/erpnext/work_orders")
	if err != nil {
		return nil, err
	}
	return parse.WorkOrders(body)
}

// MachineAction posts start, pause or stop for one machine. The returned
// machine is nil when the backend only acknowledged the action.
func (c *Client) MachineAction(ctx context.Context, action, location string, id model.MachineID, requestID string) (*model.Machine, error) {
	body, err := c.post(ctx, "/machine/"+action, actionRequest{Location: location, MachineID: id}, requestID)
	if err != nil {
		return nil, err
	}
	res, err := parse.Action(body)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, fmt.Errorf("%s machine %s: %w", action, id, ErrActionRejected)
	}
	return res.Machine, nil
}

// Rename posts a new display name for one machine.
func (c *Client) Rename(ctx context.Context, location string, id model.MachineID, newName, requestID string) error {
	body, err := c.post(ctx, "/machine/rename", actionRequest{Location: location, MachineID: id, NewName: newName}, requestID)
	if err != nil {
		return err
	}
	res, err := parse.Action(body)
	if err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("rename machine %s: %w", id, ErrActionRejected)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any, requestID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("action throttled: %w", err)
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set(RequestIDHeader, requestID)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: received non-200 status code: %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}
