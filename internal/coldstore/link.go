package coldstore

import (
	"context"
	"net/url"

	"artsync/internal/models"
)

// GetOrCreateSharedLink asks for a public link to path. When the provider
// reports that a link already exists, the existing one is listed and returned
// instead. An empty string with a nil error means no link could be found for
// the path; callers treat link resolution as best-effort either way.
func (c *Client) GetOrCreateSharedLink(ctx context.Context, path string, creds models.DropboxCredentials) (string, error) {
	var created struct {
		URL string `json:"url"`
	}
	err := c.rpc(ctx, creds, "/2/sharing/create_shared_link_with_settings", map[string]string{"path": path}, &created)
	if err == nil {
		return NormalizeSharedLink(created.URL), nil
	}
	if !isSharedLinkConflict(err) {
		return "", err
	}

	var listed struct {
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	}
	listReq := map[string]any{"path": path, "direct_only": true}
	if err := c.rpc(ctx, creds, "/2/sharing/list_shared_links", listReq, &listed); err != nil {
		return "", err
	}
	if len(listed.Links) == 0 {
		return "", nil
	}
	return NormalizeSharedLink(listed.Links[0].URL), nil
}

// NormalizeSharedLink rewrites the interactive-download query parameter
// (dl=0) into the raw-content one (raw=1) so the link is directly usable as
// an image source.
func NormalizeSharedLink(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	q := u.Query()
	if q.Get("dl") != "" {
		q.Del("dl")
		q.Set("raw", "1")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
