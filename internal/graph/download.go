package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// downloadChunkSize is the copy buffer size for streaming downloads.
// Bounded so large files pass through without buffering in memory.
const downloadChunkSize = 256 * 1024

// Download describes a resolved content transfer: where to fetch the bytes
// and what to call the file.
type Download struct {
	URL  string
	Name string
}

// ResolveDownload fetches item metadata and derives a content URL. It
// prefers the pre-authenticated download URL from the metadata call; when
// the upstream omits one (seen for some item types and permission setups)
// it falls back to the content endpoint, so the URL is never empty.
func (c *Client) ResolveDownload(ctx context.Context, ref Ref) (*Download, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}

	item, err := c.GetItem(ctx, ref)
	if err != nil {
		return nil, err
	}

	dl := &Download{URL: item.DownloadURL, Name: item.DownloadName()}
	if dl.URL != "" {
		return dl, nil
	}

	if ref.Path != "" {
		siteID, siteErr := c.SiteID(ctx)
		if siteErr != nil {
			return nil, siteErr
		}

		enc := encodePathSegments(c.normalize(ref.Path))
		dl.URL = fmt.Sprintf("%s/sites/%s/drive/root:/%s:/content", c.baseURL, siteID, enc)

		return dl, nil
	}

	driveID, driveErr := c.DriveID(ctx)
	if driveErr != nil {
		return nil, driveErr
	}

	dl.URL = fmt.Sprintf("%s/drives/%s/items/%s/content", c.baseURL, driveID, ref.ItemID)

	return dl, nil
}

// Stream copies the content behind a resolved URL to w in bounded chunks.
// The transfer is single-pass and not restartable. A truncated or failed
// body surfaces as an error rather than a silently short stream; ctx
// cancellation (e.g. the HTTP consumer disconnecting) stops the pull.
//
// Pre-authenticated URLs embed their own credentials; a bearer header is
// attached only for Graph endpoint URLs. The URL itself is never logged.
func (c *Client) Stream(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("graph: creating download request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if strings.HasPrefix(downloadURL, c.baseURL) {
		tok, tokErr := c.token.Token()
		if tokErr != nil {
			return 0, tokErr
		}

		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("graph: download request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return 0, err
	}

	buf := make([]byte, downloadChunkSize)

	n, copyErr := io.CopyBuffer(w, resp.Body, buf)
	if copyErr != nil {
		c.logger.Error("streaming download failed",
			slog.Int64("bytes_before_error", n),
			slog.String("error", copyErr.Error()),
		)

		return n, fmt.Errorf("graph: streaming download content: %w", copyErr)
	}

	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("graph: truncated download: got %d of %d bytes", n, resp.ContentLength)
	}

	c.logger.Debug("download complete", slog.Int64("bytes", n))

	return n, nil
}
