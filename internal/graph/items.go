package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// listChildrenPageSize is the $top value for children listings. 200 is the
// maximum the Graph API allows for drive item collections.
const listChildrenPageSize = 200

// defaultDownloadName is used when item metadata omits a name.
const defaultDownloadName = "download.bin"

// Ref addresses an item by exactly one of a library path or an opaque item
// identifier. The two selectors are mutually exclusive.
type Ref struct {
	Path   string
	ItemID string
}

func (r Ref) validate() error {
	switch {
	case r.Path == "" && r.ItemID == "":
		return ErrNoSelector
	case r.Path != "" && r.ItemID != "":
		return ErrTwoSelectors
	default:
		return nil
	}
}

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Unexported; callers see Item via toItem() normalization.
type driveItemResponse struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Size                 int64        `json:"size"`
	WebURL               string       `json:"webUrl"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	File                 *fileFacet   `json:"file"`
	Folder               *folderFacet `json:"folder"`
	DownloadURL          string       `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

type listChildrenResponse struct {
	Value    []driveItemResponse `json:"value"`
	NextLink string              `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// Item is normalized drive item metadata. Fields the upstream omits are
// defaulted here so callers never handle partially-present raw data.
type Item struct {
	ID       string
	Name     string
	Size     int64
	WebURL   string
	IsFile   bool
	IsFolder bool
	MimeType string

	// LastModified is the raw RFC3339 timestamp string. Kept as a string:
	// recency selection sorts lexicographically, which matches the
	// chronological order for RFC3339, and absent timestamps sort last.
	LastModified string

	// DownloadURL is the pre-authenticated content URL when the metadata
	// call offered one. May be empty; never logged.
	DownloadURL string
}

// DownloadName returns the item's name, defaulting when metadata omits it.
func (it *Item) DownloadName() string {
	if it.Name == "" {
		return defaultDownloadName
	}

	return it.Name
}

// toItem normalizes a Graph API driveItem response. Kind is derived from
// facet presence, not from the file extension.
func (d *driveItemResponse) toItem() Item {
	item := Item{
		ID:           d.ID,
		Name:         d.Name,
		Size:         d.Size,
		WebURL:       d.WebURL,
		IsFile:       d.File != nil,
		IsFolder:     d.Folder != nil,
		LastModified: d.LastModifiedDateTime,
		DownloadURL:  d.DownloadURL,
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType
	}

	return item
}

// GetItem fetches item metadata for the given selector.
func (c *Client) GetItem(ctx context.Context, ref Ref) (*Item, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}

	if ref.Path != "" {
		return c.getItemByPath(ctx, ref.Path)
	}

	return c.getItemByID(ctx, ref.ItemID)
}

// getItemByPath addresses the item through the site's default drive root.
func (c *Client) getItemByPath(ctx context.Context, path string) (*Item, error) {
	siteID, err := c.SiteID(ctx)
	if err != nil {
		return nil, err
	}

	enc := encodePathSegments(c.normalize(path))

	return c.fetchItem(ctx, fmt.Sprintf("/sites/%s/drive/root:/%s", siteID, enc))
}

func (c *Client) getItemByID(ctx context.Context, itemID string) (*Item, error) {
	driveID, err := c.DriveID(ctx)
	if err != nil {
		return nil, err
	}

	return c.fetchItem(ctx, fmt.Sprintf("/drives/%s/items/%s", driveID, itemID))
}

func (c *Client) fetchItem(ctx context.Context, apiPath string) (*Item, error) {
	resp, err := c.do(ctx, http.MethodGet, apiPath, nil, "", metadataTimeout)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var dir driveItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	item := dir.toItem()

	return &item, nil
}

// ListChildren returns the immediate children of a folder path, walking
// OData pagination until exhausted.
func (c *Client) ListChildren(ctx context.Context, folderPath string) ([]Item, error) {
	siteID, err := c.SiteID(ctx)
	if err != nil {
		return nil, err
	}

	enc := encodePathSegments(c.normalize(folderPath))
	apiPath := fmt.Sprintf("/sites/%s/drive/root:/%s:/children?$top=%d", siteID, enc, listChildrenPageSize)

	var items []Item

	for apiPath != "" {
		pageItems, nextPath, err := c.listChildrenPage(ctx, apiPath)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		apiPath = nextPath
	}

	return items, nil
}

func (c *Client) listChildrenPage(ctx context.Context, apiPath string) ([]Item, string, error) {
	resp, err := c.do(ctx, http.MethodGet, apiPath, nil, "", metadataTimeout)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lcr listChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lcr); err != nil {
		return nil, "", fmt.Errorf("graph: decoding children response: %w", err)
	}

	items := make([]Item, 0, len(lcr.Value))
	for i := range lcr.Value {
		items = append(items, lcr.Value[i].toItem())
	}

	var nextPath string
	if lcr.NextLink != "" {
		nextPath, err = c.stripBaseURL(lcr.NextLink)
		if err != nil {
			return nil, "", err
		}
	}

	return items, nextPath, nil
}

// stripBaseURL removes the client's base URL prefix from a full URL,
// returning the path + query string for use with do().
func (c *Client) stripBaseURL(fullURL string) (string, error) {
	if len(fullURL) < len(c.baseURL) || fullURL[:len(c.baseURL)] != c.baseURL {
		return "", fmt.Errorf("graph: nextLink URL %q does not match base URL %q", fullURL, c.baseURL)
	}

	return fullURL[len(c.baseURL):], nil
}
