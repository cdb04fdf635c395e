package square

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/eshaffer321/preorder-gather/internal/domain/catalog"
)

type retrieveResponse struct {
	Object         *catalog.Object   `json:"object"`
	RelatedObjects []*catalog.Object `json:"related_objects"`
}

// RetrieveObject fetches one catalog object with its related objects and
// category path. A 404 maps to catalog.ErrNotFound.
func (c *Client) RetrieveObject(ctx context.Context, id string) (*catalog.RetrieveResult, error) {
	path := "/catalog/object/" + url.PathEscape(id) +
		"?include_related_objects=true&include_category_path_to_root=true"

	var resp retrieveResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
		}
		return nil, err
	}
	if resp.Object == nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}

	return &catalog.RetrieveResult{Object: resp.Object, RelatedObjects: resp.RelatedObjects}, nil
}

var _ catalog.Fetcher = (*Client)(nil)
