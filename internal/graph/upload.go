package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// simpleUploadMaxSize is the cutoff for single-request upload (4 MiB).
// Exactly 4 MiB still takes the simple path; larger payloads go through a
// resumable upload session.
const simpleUploadMaxSize = 4 * 1024 * 1024

type uploadSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// Upload writes data to targetPath/filename, dispatching on size alone:
// one PUT up to 4 MiB, a chunked upload session beyond that. Returns the
// created item's metadata.
func (c *Client) Upload(ctx context.Context, targetPath, filename string, data []byte) (*Item, error) {
	target := strings.Trim(c.normalize(targetPath), "/")

	fullPath := filename
	if target != "" {
		fullPath = target + "/" + filename
	}

	enc := encodePathSegments(fullPath)
	size := int64(len(data))

	c.logger.Info("uploading file",
		slog.String("path", fullPath),
		slog.Int64("size", size),
	)

	if size <= simpleUploadMaxSize {
		return c.simpleUpload(ctx, enc, data)
	}

	return c.sessionUpload(ctx, enc, data)
}

// simpleUpload PUTs the whole buffer to the content endpoint.
func (c *Client) simpleUpload(ctx context.Context, encodedPath string, data []byte) (*Item, error) {
	siteID, err := c.SiteID(ctx)
	if err != nil {
		return nil, err
	}

	apiPath := fmt.Sprintf("/sites/%s/drive/root:/%s:/content", siteID, encodedPath)

	resp, err := c.do(ctx, http.MethodPut, apiPath, bytes.NewReader(data), "application/octet-stream", simpleUploadTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding upload response: %w", err)
	}

	item := dir.toItem()

	return &item, nil
}

// sessionUpload creates an upload session and sends the buffer in
// sequential Content-Range chunks. 202 advances the offset, 200/201
// completes with item metadata, anything else aborts the session. No
// partial-session resume is attempted.
func (c *Client) sessionUpload(ctx context.Context, encodedPath string, data []byte) (*Item, error) {
	uploadURL, err := c.createUploadSession(ctx, encodedPath)
	if err != nil {
		return nil, err
	}

	total := int64(len(data))
	chunkSize := c.settings.ChunkSize

	var sent int64

	for sent < total {
		end := sent + chunkSize
		if end > total {
			end = total
		}

		item, chunkErr := c.uploadChunk(ctx, uploadURL, data[sent:end], sent, total)
		if chunkErr != nil {
			return nil, chunkErr
		}

		if item != nil {
			return item, nil
		}

		sent = end
	}

	// The loop consumed every byte without a terminal 200/201. The server
	// accepted each chunk, so this is an assumption break, not a rejected
	// request.
	c.logger.Error("upload session exhausted input without item response",
		slog.Int64("total", total),
	)

	return nil, ErrSessionIncomplete
}

func (c *Client) createUploadSession(ctx context.Context, encodedPath string) (string, error) {
	siteID, err := c.SiteID(ctx)
	if err != nil {
		return "", err
	}

	apiPath := fmt.Sprintf("/sites/%s/drive/root:/%s:/createUploadSession", siteID, encodedPath)

	resp, err := c.do(ctx, http.MethodPost, apiPath, strings.NewReader("{}"), "application/json", metadataTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var usr uploadSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&usr); err != nil {
		return "", fmt.Errorf("graph: decoding upload session response: %w", err)
	}

	if usr.UploadURL == "" {
		return "", fmt.Errorf("graph: upload session response missing uploadUrl")
	}

	c.logger.Debug("upload session created")

	return usr.UploadURL, nil
}

// uploadChunk PUTs one byte range to the session URL. Returns (nil, nil)
// for an intermediate 202, the final item for 200/201. The session URL is
// pre-authenticated, so no Authorization header is sent.
func (c *Client) uploadChunk(ctx context.Context, uploadURL string, chunk []byte, offset, total int64) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, chunkUploadTimeout)
	defer cancel()

	length := int64(len(chunk))
	contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total)

	c.logger.Debug("uploading chunk",
		slog.Int64("offset", offset),
		slog.Int64("length", length),
		slog.Int64("total", total),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(chunk))
	if err != nil {
		return nil, fmt.Errorf("graph: creating chunk request: %w", err)
	}

	req.Header.Set("Content-Range", contentRange)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", userAgent)
	req.ContentLength = length

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: chunk upload request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		// Intermediate chunk accepted. Drain body to reuse the connection.
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return nil, fmt.Errorf("graph: draining chunk response body: %w", drainErr)
		}

		return nil, nil

	case http.StatusOK, http.StatusCreated:
		var dir driveItemResponse
		if decErr := json.NewDecoder(resp.Body).Decode(&dir); decErr != nil {
			return nil, fmt.Errorf("graph: decoding final chunk response: %w", decErr)
		}

		item := dir.toItem()

		c.logger.Debug("upload session complete",
			slog.String("item_id", item.ID),
			slog.String("item_name", item.Name),
		)

		return &item, nil

	default:
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message

		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("request-id"),
			Message:    string(body),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
}
