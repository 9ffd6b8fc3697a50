package respcache

import (
	"net/url"
	"sort"
	"strings"
)

// Key builds the deterministic cache key for a request: prefix, namespace,
// then the normalized path and query. Query parameters are sorted so that
// semantically identical URLs with reordered parameters share an entry.
func Key(prefix, namespace, path string, query url.Values) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	b.WriteString(namespace)
	b.WriteByte(':')
	b.WriteString(path)

	if len(query) > 0 {
		b.WriteByte('?')
		b.WriteString(normalizeQuery(query))
	}
	return b.String()
}

func normalizeQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
