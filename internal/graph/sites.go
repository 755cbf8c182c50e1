package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

type siteResponse struct {
	ID string `json:"id"`
}

type driveResponse struct {
	ID string `json:"id"`
}

// SiteID resolves the configured hostname + site path to a site identifier.
// The lookup runs at most once per Client: concurrent callers on a shared
// Client collapse into a single request and all observe the cached value.
func (c *Client) SiteID(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.siteID
	c.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	v, err, _ := c.group.Do("site", func() (any, error) {
		id, resolveErr := c.resolveSiteID(ctx)
		if resolveErr != nil {
			return nil, resolveErr
		}

		c.mu.Lock()
		c.siteID = id
		c.mu.Unlock()

		return id, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (c *Client) resolveSiteID(ctx context.Context) (string, error) {
	path := fmt.Sprintf("/sites/%s:%s", c.settings.SiteHostname, c.settings.SitePath)

	resp, err := c.do(ctx, http.MethodGet, path, nil, "", metadataTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var sr siteResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("graph: decoding site response: %w", err)
	}

	c.logger.Info("resolved site",
		slog.String("hostname", c.settings.SiteHostname),
		slog.String("site_path", c.settings.SitePath),
		slog.String("site_id", sr.ID),
	)

	return sr.ID, nil
}

// DriveID resolves the site's default document drive identifier, memoized
// per Client with the same concurrency guarantee as SiteID.
func (c *Client) DriveID(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.driveID
	c.mu.Unlock()

	if cached != "" {
		return cached, nil
	}

	v, err, _ := c.group.Do("drive", func() (any, error) {
		id, resolveErr := c.resolveDriveID(ctx)
		if resolveErr != nil {
			return nil, resolveErr
		}

		c.mu.Lock()
		c.driveID = id
		c.mu.Unlock()

		return id, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (c *Client) resolveDriveID(ctx context.Context) (string, error) {
	siteID, err := c.SiteID(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/sites/%s/drive", siteID), nil, "", metadataTimeout)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var dr driveResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return "", fmt.Errorf("graph: decoding drive response: %w", err)
	}

	c.logger.Info("resolved default drive",
		slog.String("site_id", siteID),
		slog.String("drive_id", dr.ID),
	)

	return dr.ID, nil
}
