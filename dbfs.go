package lakeshift

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
)

const (
	dbfsPutPath      = "/api/2.0/dbfs/put"
	dbfsCreatePath   = "/api/2.0/dbfs/create"
	dbfsAddBlockPath = "/api/2.0/dbfs/add-block"
	dbfsClosePath    = "/api/2.0/dbfs/close"

	// directPutLimit is the largest payload sent whole in one put request.
	directPutLimit = 1 << 20
	// uploadChunkSize is the raw chunk size for the streaming path, before
	// base64 transport encoding.
	uploadChunkSize = 1 << 20
)

type dbfsPutRequest struct {
	Path      string `json:"path"`
	Contents  string `json:"contents"`
	Overwrite bool   `json:"overwrite"`
}

type dbfsCreateRequest struct {
	Path      string `json:"path"`
	Overwrite bool   `json:"overwrite"`
}

type dbfsCreateResponse struct {
	Handle int64 `json:"handle"`
}

type dbfsAddBlockRequest struct {
	Handle int64  `json:"handle"`
	Data   string `json:"data"`
}

type dbfsCloseRequest struct {
	Handle int64 `json:"handle"`
}

// UploadFile transmits data to a remote file path. Payloads up to 1 MiB go
// whole in a single put request; larger payloads stream through a
// create/add-block/close handle sequence in 1 MiB chunks. There are no
// retries: any failed request fails the whole upload.
func (c *APIClient) UploadFile(ctx context.Context, path string, data []byte, overwrite bool) error {
	if len(data) <= directPutLimit {
		req := dbfsPutRequest{
			Path:      path,
			Contents:  base64.StdEncoding.EncodeToString(data),
			Overwrite: overwrite,
		}
		if err := c.doRequest(ctx, "POST", dbfsPutPath, req, nil); err != nil {
			return errors.Wrapf(err, "put %s", path)
		}
		return nil
	}
	return c.streamUpload(ctx, path, data, overwrite)
}

// streamUpload drives the handle state machine: open, append chunks in
// order, close. Every exit path releases the handle; a failed append or
// close still issues exactly one cleanup close, and the original error is
// what the caller sees.
func (c *APIClient) streamUpload(ctx context.Context, path string, data []byte, overwrite bool) error {
	var created dbfsCreateResponse
	req := dbfsCreateRequest{Path: path, Overwrite: overwrite}
	if err := c.doRequest(ctx, "POST", dbfsCreatePath, req, &created); err != nil {
		return errors.Wrapf(err, "open upload handle for %s", path)
	}
	handle := created.Handle

	for offset := 0; offset < len(data); offset += uploadChunkSize {
		end := offset + uploadChunkSize
		if end > len(data) {
			end = len(data)
		}
		block := dbfsAddBlockRequest{
			Handle: handle,
			Data:   base64.StdEncoding.EncodeToString(data[offset:end]),
		}
		if err := c.doRequest(ctx, "POST", dbfsAddBlockPath, block, nil); err != nil {
			return c.abortUpload(ctx, handle, errors.Wrapf(err, "append %d..%d of %s", offset, end, path))
		}
		logger.Debugf("uploaded %d / %d bytes of %s", end, len(data), path)
	}

	if err := c.doRequest(ctx, "POST", dbfsClosePath, dbfsCloseRequest{Handle: handle}, nil); err != nil {
		return c.abortUpload(ctx, handle, errors.Wrapf(err, "close upload handle for %s", path))
	}
	return nil
}

// abortUpload makes a best-effort close so the remote side does not leak the
// handle or keep the path locked. A failed cleanup is logged; cause is always
// the error returned.
func (c *APIClient) abortUpload(ctx context.Context, handle int64, cause error) error {
	if err := c.doRequest(ctx, "POST", dbfsClosePath, dbfsCloseRequest{Handle: handle}, nil); err != nil {
		logger.Warnf("failed to close upload handle %d after error: %v", handle, err)
	}
	return cause
}
