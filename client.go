package lakeshift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	accept           = "Accept"
	authorization    = "Authorization"
	contentType      = "Content-Type"
	jsonContentType  = "application/json; charset=utf-8"
	userAgent        = "User-Agent"
	requestIDHeader  = "X-Request-Id"
	statementsPath   = "/api/2.0/sql/statements"
	statementGetPath = "/api/2.0/sql/statements/%s"

	// defaultStatementPollInterval spaces out status polls for statements
	// that outlive the submit call's server-side wait.
	defaultStatementPollInterval = time.Second
)

// APIClient talks to the destination lakehouse: the DBFS file API and the
// SQL statement execution API. All calls are synchronous and blocking.
type APIClient struct {
	SessionID string

	cli          *http.Client
	apiEndpoint  string
	host         string
	token        string
	warehouseID  string
	catalog      string
	schema       string
	pollInterval time.Duration

	// only used for testing mocks
	doRequestFunc func(method, path string, req interface{}, resp interface{}) error
}

func NewAPIHttpClientFromConfig(cfg *Config) *http.Client {
	cli := &http.Client{
		Timeout: cfg.Timeout,
	}
	if cfg.EnableOpenTelemetry {
		cli.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return cli
}

func NewAPIClientFromConfig(cfg *Config) *APIClient {
	host := strings.TrimSuffix(cfg.Host, "/")
	return &APIClient{
		SessionID:   uuid.NewString(),
		cli:         NewAPIHttpClientFromConfig(cfg),
		apiEndpoint: fmt.Sprintf("https://%s", host),
		host:        host,
		token:       cfg.Token,
		warehouseID: cfg.WarehouseID,
		catalog:     cfg.Catalog,
		schema:      cfg.Schema,
	}
}

func (c *APIClient) makeURL(path string, args ...interface{}) string {
	format := c.apiEndpoint + path
	return fmt.Sprintf(format, args...)
}

func (c *APIClient) makeHeaders() http.Header {
	headers := http.Header{}
	headers.Set(userAgent, fmt.Sprintf("lakeshift/%s", version))
	headers.Set(authorization, fmt.Sprintf("Bearer %s", c.token))
	headers.Set(requestIDHeader, uuid.NewString())
	headers.Set(contentType, jsonContentType)
	headers.Set(accept, jsonContentType)
	return headers
}

func (c *APIClient) doRequest(ctx context.Context, method, path string, req interface{}, resp interface{}) error {
	if c.doRequestFunc != nil {
		return c.doRequestFunc(method, path, req, resp)
	}

	var err error
	reqBody := []byte{}
	if req != nil {
		reqBody, err = json.Marshal(req)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
	}

	url := c.makeURL(path)
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return errors.Wrap(err, "failed to create http request")
	}
	httpReq.Header = c.makeHeaders()
	if len(c.host) > 0 {
		httpReq.Host = c.host
	}

	httpResp, err := c.cli.Do(httpReq)
	if err != nil {
		return errors.Wrap(ErrDoRequest, err.Error())
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	httpRespBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return errors.Wrap(ErrReadResponse, err.Error())
	}

	if httpResp.StatusCode == http.StatusUnauthorized {
		return NewAPIError("please check your token", httpResp.StatusCode, httpRespBody)
	} else if httpResp.StatusCode >= 500 {
		return NewAPIError("please retry again later", httpResp.StatusCode, httpRespBody)
	} else if httpResp.StatusCode >= 400 {
		return NewAPIError("please check your arguments", httpResp.StatusCode, httpRespBody)
	} else if httpResp.StatusCode != 200 {
		return NewAPIError("unexpected HTTP StatusCode", httpResp.StatusCode, httpRespBody)
	}

	if resp != nil {
		respContentType := httpResp.Header.Get("Content-Type")
		if strings.HasPrefix(respContentType, "application/json") {
			if err := json.Unmarshal(httpRespBody, &resp); err != nil {
				return errors.Wrap(err, "failed to unmarshal response body")
			}
		}
	}
	return nil
}

// statement execution states
const (
	statementStatePending   = "PENDING"
	statementStateRunning   = "RUNNING"
	statementStateSucceeded = "SUCCEEDED"
	statementStateFailed    = "FAILED"
	statementStateCanceled  = "CANCELED"
	statementStateClosed    = "CLOSED"
)

type StatementError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e *StatementError) Error() string {
	text := fmt.Sprintf("statement failed: %s", e.Message)
	if e.ErrorCode != "" {
		text += fmt.Sprintf(" [%s]", e.ErrorCode)
	}
	return text
}

type StatementStatus struct {
	State string          `json:"state"`
	Error *StatementError `json:"error,omitempty"`
}

type StatementResult struct {
	RowCount  int64       `json:"row_count"`
	DataArray [][]*string `json:"data_array"`
}

type StatementResponse struct {
	StatementID string           `json:"statement_id"`
	Status      StatementStatus  `json:"status"`
	Result      *StatementResult `json:"result,omitempty"`
}

func (r *StatementResponse) finished() bool {
	switch r.Status.State {
	case statementStateSucceeded, statementStateFailed, statementStateCanceled, statementStateClosed:
		return true
	}
	return false
}

type statementRequest struct {
	Statement     string `json:"statement"`
	WarehouseID   string `json:"warehouse_id"`
	Catalog       string `json:"catalog,omitempty"`
	Schema        string `json:"schema,omitempty"`
	WaitTimeout   string `json:"wait_timeout,omitempty"`
	OnWaitTimeout string `json:"on_wait_timeout,omitempty"`
}

func (c *APIClient) statementPollInterval() time.Duration {
	if c.pollInterval > 0 {
		return c.pollInterval
	}
	return defaultStatementPollInterval
}

// ExecStatement runs one auto-committing SQL statement against the configured
// warehouse, polling until the statement reaches a terminal state. Polls are
// spaced by the poll interval so a long statement does not hammer the service.
// Failures are not retried; a transient error fails the statement.
func (c *APIClient) ExecStatement(ctx context.Context, statement string) (*StatementResponse, error) {
	req := statementRequest{
		Statement:     statement,
		WarehouseID:   c.warehouseID,
		Catalog:       c.catalog,
		Schema:        c.schema,
		WaitTimeout:   "30s",
		OnWaitTimeout: "CONTINUE",
	}
	var resp StatementResponse
	if err := c.doRequest(ctx, "POST", statementsPath, req, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to submit statement")
	}
	for !resp.finished() {
		timer := time.NewTimer(c.statementPollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		var next StatementResponse
		path := fmt.Sprintf(statementGetPath, resp.StatementID)
		if err := c.doRequest(ctx, "GET", path, nil, &next); err != nil {
			return nil, errors.Wrap(err, "failed to poll statement")
		}
		if next.StatementID == "" {
			next.StatementID = resp.StatementID
		}
		resp = next
	}
	if resp.Status.State != statementStateSucceeded {
		if resp.Status.Error != nil {
			return nil, resp.Status.Error
		}
		return nil, errors.Errorf("statement ended in state %s", resp.Status.State)
	}
	return &resp, nil
}
