package database

import (
	"strconv"
	"strings"
	"sync"
)

// translateCache memoizes rewritten query text. Callers issue a small fixed
// set of distinct queries, so the cache is never evicted.
var translateCache sync.Map

// Translate rewrites canonical `?` markers into the marker syntax the
// backend requires: the embedded backend takes `?` natively, the
// client-server backend takes sequential `$1..$N`. Markers inside single- or
// double-quoted literals are left alone, and the left-to-right parameter
// order is preserved, so a query with N canonical markers always yields
// exactly N backend markers.
//
// Translate is deterministic and side-effect free; results are memoized per
// distinct query text.
func Translate(kind Kind, query string) string {
	switch kind {
	case KindEmbedded:
		return query
	case KindClientServer:
		if cached, ok := translateCache.Load(query); ok {
			return cached.(string)
		}
		rewritten := rewriteMarkers(query)
		translateCache.Store(query, rewritten)
		return rewritten
	default:
		// Unreachable once Config.Validate has run.
		return query
	}
}

// rewriteMarkers replaces each `?` outside quoted literals with `$N`. A
// doubled quote inside a literal escapes the quote character rather than
// closing the literal.
func rewriteMarkers(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote byte

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case quote != 0:
			b.WriteByte(ch)
			if ch == quote {
				if i+1 < len(query) && query[i+1] == quote {
					b.WriteByte(quote)
					i++
				} else {
					quote = 0
				}
			}
		case ch == '\'' || ch == '"':
			quote = ch
			b.WriteByte(ch)
		case ch == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}
