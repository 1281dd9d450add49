package hiero

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// mirrorAccountField fetches `{mirror_base}/accounts/{account}` and returns
// the named field from the JSON body. Failures at any stage surface as a
// mirror-lookup error, distinct from format errors, so callers can tell an
// unreachable collaborator from malformed input.
func (c *Client) mirrorAccountField(account, field string) (value string, err error) {
	url := c.mirrorBaseURL + "/accounts/" + account

	rsp, err2 := c.httpClient.Get(url)
	if err2 != nil {
		err = errors.Wrapf(ErrMirrorLookup, "mirror node unreachable at %s: %v", url, err2)
		return
	}
	defer func() {
		_ = rsp.Body.Close()
	}()

	body, err2 := io.ReadAll(rsp.Body)
	if err2 != nil {
		err = errors.Wrapf(ErrMirrorLookup, "failed reading mirror response from %s: %v", url, err2)
		return
	}

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		err = errors.Wrapf(ErrMirrorLookup, "mirror response code %d from %s with body %s", rsp.StatusCode, url, string(body))
		return
	}

	result := gjson.GetBytes(body, field)
	if !result.Exists() || result.String() == "" {
		err = errors.Wrapf(ErrMirrorLookup, "mirror response from %s missing '%s'", url, field)
		return
	}

	value = result.String()
	return
}
