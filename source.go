package lakeshift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const sourceQueryPath = "/v1/query"

type queryError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *queryError) Error() string {
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

type dataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type queryResponse struct {
	ID      string      `json:"id"`
	Schema  []dataField `json:"schema"`
	Data    [][]*string `json:"data"`
	State   string      `json:"state"`
	Error   *queryError `json:"error"`
	NextURI string      `json:"next_uri"`
}

func (r *queryResponse) readFinished() bool {
	return r.NextURI == "" || strings.Contains(r.NextURI, "/final")
}

type queryRequest struct {
	SQL        string            `json:"sql"`
	Pagination *paginationConfig `json:"pagination,omitempty"`
}

type paginationConfig struct {
	WaitTime int64 `json:"wait_time_secs,omitempty"`
}

// QueryClient reads datasets out of the source query service. A query runs as
// one POST followed by next-page GETs until the final page; page fetches are
// retried on transient failures since re-reading a page is safe, unlike the
// write paths.
type QueryClient struct {
	cli         *http.Client
	apiEndpoint string
	host        string
	token       string
	database    string

	// only used for testing mocks
	doRequestFunc func(method, path string, req interface{}, resp interface{}) error
}

func NewQueryClientFromConfig(cfg *Config) *QueryClient {
	host := strings.TrimSuffix(cfg.SourceHost, "/")
	return &QueryClient{
		cli:         NewAPIHttpClientFromConfig(cfg),
		apiEndpoint: fmt.Sprintf("https://%s", host),
		host:        host,
		token:       cfg.SourceToken,
		database:    cfg.SourceDatabase,
	}
}

func (c *QueryClient) doRequest(ctx context.Context, method, path string, req interface{}, resp interface{}) error {
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

	url := c.apiEndpoint + path
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return errors.Wrap(err, "failed to create http request")
	}
	httpReq.Header.Set(userAgent, fmt.Sprintf("lakeshift/%s", version))
	httpReq.Header.Set(authorization, fmt.Sprintf("Bearer %s", c.token))
	httpReq.Header.Set(requestIDHeader, uuid.NewString())
	httpReq.Header.Set(contentType, jsonContentType)
	httpReq.Header.Set(accept, jsonContentType)

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
	if httpResp.StatusCode != 200 {
		return NewAPIError("source query request failed", httpResp.StatusCode, httpRespBody)
	}
	if resp != nil {
		if err := json.Unmarshal(httpRespBody, &resp); err != nil {
			return errors.Wrap(err, "failed to unmarshal response body")
		}
	}
	return nil
}

func (c *QueryClient) fetchPage(ctx context.Context, nextURI string) (*queryResponse, error) {
	var resp queryResponse
	err := retry.Do(
		func() error {
			resp = queryResponse{}
			return c.doRequest(ctx, "GET", nextURI, nil, &resp)
		},
		retry.RetryIf(func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return false
			}
			return IsTransient(err)
		}),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch query page")
	}
	return &resp, nil
}

// RunQuery executes sql on the source and materializes the full result.
func (c *QueryClient) RunQuery(ctx context.Context, sql string) (*Dataset, error) {
	logger.Debugf("running source query: %s", sql)
	var resp queryResponse
	req := queryRequest{SQL: sql, Pagination: &paginationConfig{WaitTime: 10}}
	if err := c.doRequest(ctx, "POST", sourceQueryPath, req, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to start query")
	}
	if resp.Error != nil {
		return nil, errors.Wrap(resp.Error, "query failed")
	}

	schema := resp.Schema
	data := resp.Data
	for !resp.readFinished() {
		page, err := c.fetchPage(ctx, resp.NextURI)
		if err != nil {
			return nil, err
		}
		if page.Error != nil {
			return nil, errors.Wrap(page.Error, "query page failed")
		}
		if len(schema) == 0 {
			schema = page.Schema
		}
		data = append(data, page.Data...)
		resp = *page
	}

	return materializeDataset(schema, data)
}

// ReadTable reads a full table, optionally limited to the first limit rows.
func (c *QueryClient) ReadTable(ctx context.Context, table string, limit int) (*Dataset, error) {
	sql := fmt.Sprintf("SELECT * FROM %s.%s", quoteIdent(c.database), quoteIdent(table))
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	return c.RunQuery(ctx, sql)
}

// ListTables lists the tables of the configured source database.
func (c *QueryClient) ListTables(ctx context.Context) ([]string, error) {
	if c.database == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "no source database configured")
	}
	ds, err := c.RunQuery(ctx, fmt.Sprintf("SHOW TABLES FROM %s", quoteIdent(c.database)))
	if err != nil {
		return nil, err
	}
	tables := make([]string, 0, ds.NumRows())
	for _, row := range ds.Rows() {
		if len(row) == 0 || row[0].IsNull() {
			continue
		}
		tables = append(tables, row[0].String())
	}
	return tables, nil
}

// materializeDataset converts wire pages into a typed Dataset, tagging every
// cell from the column metadata.
func materializeDataset(schema []dataField, data [][]*string) (*Dataset, error) {
	columns := make([]Column, len(schema))
	for i, f := range schema {
		columns[i] = Column{Name: f.Name, Type: parseSourceType(f.Type)}
	}
	ds := NewDataset(columns)
	for _, raw := range data {
		if len(raw) != len(columns) {
			return nil, errors.Wrapf(ErrData, "row has %d cells, schema has %d columns", len(raw), len(columns))
		}
		row := make([]Value, len(raw))
		for i, cell := range raw {
			v, err := parseCell(cell, columns[i])
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		if err := ds.Append(row); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// parseSourceType maps a source type descriptor, e.g. "Nullable(BIGINT)" or
// "Array(Int32)", onto a semantic column type.
func parseSourceType(desc string) ColumnType {
	s := strings.ToUpper(strings.TrimSpace(desc))
	if strings.HasPrefix(s, "NULLABLE(") && strings.HasSuffix(s, ")") {
		s = s[len("NULLABLE(") : len(s)-1]
	}
	base := s
	if i := strings.IndexAny(s, "( "); i > 0 {
		base = s[:i]
	}
	switch base {
	case "TINYINT", "SMALLINT", "INT", "INTEGER", "BIGINT", "INT8", "INT16", "INT32", "INT64",
		"UINT8", "UINT16", "UINT32", "UINT64":
		return TypeInt
	case "FLOAT", "FLOAT32", "FLOAT64", "DOUBLE", "DECIMAL", "NUMERIC":
		return TypeFloat
	case "BOOLEAN", "BOOL":
		return TypeBool
	case "TIMESTAMP", "DATETIME", "DATE":
		return TypeTimestamp
	case "ARRAY", "MAP", "STRUCT", "TUPLE", "VARIANT", "JSON":
		return TypeStructured
	default:
		return TypeText
	}
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999Z07:00",
	time.RFC3339Nano,
	"2006-01-02",
}

func parseCell(raw *string, col Column) (Value, error) {
	if raw == nil {
		return Null(), nil
	}
	s := *raw
	switch col.Type {
	case TypeInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(ErrData, "column %s: %q is not an integer", col.Name, s)
		}
		return Int(i), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, errors.Wrapf(ErrData, "column %s: %q is not a float", col.Name, s)
		}
		return Float(f), nil
	case TypeBool:
		switch strings.ToLower(s) {
		case "true", "1":
			return Bool(true), nil
		case "false", "0":
			return Bool(false), nil
		}
		return Value{}, errors.Wrapf(ErrData, "column %s: %q is not a boolean", col.Name, s)
	case TypeTimestamp:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return Timestamp(t), nil
			}
		}
		return Value{}, errors.Wrapf(ErrData, "column %s: %q is not a timestamp", col.Name, s)
	case TypeStructured:
		var v interface{}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return Value{}, errors.Wrapf(ErrData, "column %s: invalid JSON: %v", col.Name, err)
		}
		return Structured(v), nil
	default:
		return Text(s), nil
	}
}
