package output

import "strings"

// NormalizeQuery prepares raw --query input for gojq: shell-escaped "\!"
// outside string literals becomes a plain "!", and shorthand dot-path
// aliases (.tk, .st, .em) expand to their canonical names.
//
// The returned bool is true only when "\!" rewriting happened; the root
// pre-run uses it to warn interactive users about shell escaping.
func NormalizeQuery(query string) (string, bool) {
	normalized, unescaped := unescapeBang(query)
	normalized, _ = expandDotPathAliases(normalized)
	return normalized, unescaped
}

// unescapeBang rewrites `\!` to `!` outside double-quoted strings.
// Interactive shells with history expansion enabled force users to type
// `select(.state \!= "FAILED")`, which gojq rejects.
func unescapeBang(query string) (string, bool) {
	if !strings.Contains(query, `\!`) {
		return query, false
	}

	var b strings.Builder
	b.Grow(len(query))

	inString := false
	escaped := false
	changed := false

	for i := 0; i < len(query); i++ {
		ch := query[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			continue
		}

		switch {
		case ch == '"':
			inString = true
		case ch == '\\' && i+1 < len(query) && query[i+1] == '!':
			changed = true
			ch = '!'
			i++
		}
		b.WriteByte(ch)
	}

	if !changed {
		return query, false
	}
	return b.String(), true
}
