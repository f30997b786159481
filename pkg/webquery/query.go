// Package webquery parses the query string of a request target,
// grounded on original_source/fooster/web/query.py.
package webquery

import (
	"net/url"
	"strings"
)

// Values is net/url's multi-valued query map: keys are case-sensitive
// and each key's values keep the order they appeared in.
type Values = url.Values

// Parse parses the query portion of target (everything after '?'; an
// absent '?' yields empty Values).
func Parse(target string) (Values, error) {
	i := strings.IndexByte(target, '?')
	if i < 0 {
		return url.Values{}, nil
	}
	return url.ParseQuery(target[i+1:])
}
