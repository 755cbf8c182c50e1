package graph

import (
	"net/url"
	"strings"
)

// libraryPrefixes are document library display names that users paste at
// the front of paths. Matched case-insensitively and stripped exactly once.
var libraryPrefixes = []string{
	"documentos compartidos/",
	"shared documents/",
}

// NormalizePath rewrites a user-supplied path into drive-root-relative
// form: whitespace and slashes trimmed, the site-path prefix removed when
// present (any case), and a leading library display name removed. Accepts
// all of:
//
//	"Documentos compartidos/SKU/..."
//	"Shared Documents/SKU/..."
//	"/sites/Loyalty2021/Documentos compartidos/SKU/..."
//	"SKU/..."
//
// Malformed paths are not validated here; they surface as remote 404s.
func NormalizePath(sitePath, path string) string {
	p := strings.Trim(strings.TrimSpace(path), "/")

	sitePrefix := strings.Trim(sitePath, "/")
	if sitePrefix != "" {
		sitePrefix += "/"
		if len(p) >= len(sitePrefix) && strings.EqualFold(p[:len(sitePrefix)], sitePrefix) {
			p = p[len(sitePrefix):]
		}
	}

	for _, lib := range libraryPrefixes {
		if len(p) >= len(lib) && strings.EqualFold(p[:len(lib)], lib) {
			p = p[len(lib):]
			break
		}
	}

	return strings.Trim(p, "/")
}

// normalize applies NormalizePath with the client's configured site path.
func (c *Client) normalize(path string) string {
	return NormalizePath(c.settings.SitePath, path)
}

// encodePathSegments percent-encodes each segment of a slash-separated
// path so it can be embedded in the colon-delimited root:/{path}: form.
// The / separator itself is kept literal.
func encodePathSegments(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return strings.Join(segments, "/")
}
