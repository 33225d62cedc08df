package lakeshift

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeHeaders(t *testing.T) {
	c := NewAPIClientFromConfig(&Config{
		Host:  "dbc-1.example.com/",
		Token: "abc123",
	})
	headers := c.makeHeaders()
	assert.Equal(t, []string{"Bearer abc123"}, headers["Authorization"])
	assert.Equal(t, fmt.Sprintf("lakeshift/%s", version), headers.Get("User-Agent"))
	assert.NotEmpty(t, headers.Get("X-Request-Id"))
	assert.Equal(t, "https://dbc-1.example.com", c.apiEndpoint, "trailing slash is trimmed")
}

func TestNewAPIError(t *testing.T) {
	err := NewAPIError("please check your arguments", 404,
		[]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"no such path"}`))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsAuthFailed(err))
	assert.Contains(t, err.Error(), "no such path")
	assert.Contains(t, err.Error(), "RESOURCE_DOES_NOT_EXIST")
	assert.Equal(t, "RESOURCE_DOES_NOT_EXIST", RespBody(err).ErrorCode)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(NewAPIError("", 503, nil)))
	assert.True(t, IsTransient(NewAPIError("", 429, nil)))
	assert.True(t, IsTransient(ErrDoRequest))
	assert.False(t, IsTransient(NewAPIError("", 400, nil)))
	assert.False(t, IsTransient(nil))
}

func TestExecStatementPollsUntilTerminal(t *testing.T) {
	polls := 0
	c := &APIClient{
		pollInterval: time.Millisecond,
		doRequestFunc: func(method, path string, req interface{}, resp interface{}) error {
			out := resp.(*StatementResponse)
			if method == "POST" {
				out.StatementID = "s9"
				out.Status.State = statementStateRunning
				return nil
			}
			require.Equal(t, "/api/2.0/sql/statements/s9", path)
			polls++
			if polls < 2 {
				out.Status.State = statementStatePending
				return nil
			}
			out.StatementID = "s9"
			out.Status.State = statementStateSucceeded
			return nil
		},
	}
	resp, err := c.ExecStatement(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 2, polls)
	assert.Equal(t, "s9", resp.StatementID)
}

func TestExecStatementSpacesPolls(t *testing.T) {
	interval := 20 * time.Millisecond
	polls := 0
	c := &APIClient{
		pollInterval: interval,
		doRequestFunc: func(method, path string, req interface{}, resp interface{}) error {
			out := resp.(*StatementResponse)
			out.StatementID = "s2"
			if method == "POST" {
				out.Status.State = statementStateRunning
				return nil
			}
			polls++
			if polls < 2 {
				out.Status.State = statementStateRunning
				return nil
			}
			out.Status.State = statementStateSucceeded
			return nil
		},
	}
	start := time.Now()
	_, err := c.ExecStatement(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 2, polls)
	assert.GreaterOrEqual(t, time.Since(start), 2*interval, "every poll waits out the interval")
}

func TestExecStatementFailureCarriesServerMessage(t *testing.T) {
	c := &APIClient{
		doRequestFunc: func(method, path string, req interface{}, resp interface{}) error {
			out := resp.(*StatementResponse)
			out.StatementID = "s1"
			out.Status.State = statementStateFailed
			out.Status.Error = &StatementError{ErrorCode: "SYNTAX_ERROR", Message: "bad token"}
			return nil
		},
	}
	_, err := c.ExecStatement(context.Background(), "SELEC 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad token")
	assert.Contains(t, err.Error(), "SYNTAX_ERROR")
}
