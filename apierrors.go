package lakeshift

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDoRequest    = errors.New("DoRequestFailed")
	ErrReadResponse = errors.New("ReadResponseFailed")
)

// APIErrorResponseBody is the JSON error envelope returned by the remote
// services, e.g. {"error_code": "RESOURCE_DOES_NOT_EXIST", "message": "..."}.
type APIErrorResponseBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

type APIError struct {
	RespBody   APIErrorResponseBody
	RespText   string
	StatusCode int
	Hint       string
}

func (e APIError) Error() string {
	message := e.RespBody.Message
	if message == "" {
		message = e.RespText
	}
	message = fmt.Sprintf("%d %s", e.StatusCode, message)
	if e.RespBody.ErrorCode != "" {
		message = fmt.Sprintf("%s [%s]", message, e.RespBody.ErrorCode)
	}
	if e.Hint != "" {
		message = strings.Trim(message, ".")
		message += ". " + e.Hint
	}
	return message
}

func NewAPIError(hint string, status int, respBuf []byte) error {
	respBody := APIErrorResponseBody{}
	_ = json.Unmarshal(respBuf, &respBody)
	return APIError{
		RespBody:   respBody,
		RespText:   string(respBuf),
		StatusCode: status,
		Hint:       hint,
	}
}

func IsNotFound(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

func IsAuthFailed(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}

// IsTransient reports whether err looks like a passing infrastructure
// failure: a failed round trip, an unread response, or a 5xx/429 status.
func IsTransient(err error) bool {
	if errors.Is(err, ErrDoRequest) || errors.Is(err, ErrReadResponse) {
		return true
	}
	var apiErr APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode >= 500 || apiErr.StatusCode == 429)
}

func RespBody(err error) APIErrorResponseBody {
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return APIErrorResponseBody{}
	}
	return apiErr.RespBody
}
