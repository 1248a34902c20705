// Package ndname provides a minimal, transport-independent representation of
// NDN hierarchical names. It exists so the protocol CORE (tlvcodec, ca,
// requester) never has to import a particular wire library's name type; the
// transport package is the only place a name gets converted to/from
// github.com/zjkmxy/go-ndn's enc.Name.
package ndname

import "strings"

// Name is an ordered sequence of generic NDN name components. The empty
// Name is the root "/".
type Name []string

// Parse splits a "/"-separated string into a Name. A leading "/" is
// optional; empty components (from "//" or a trailing "/") are dropped.
func Parse(s string) Name {
	parts := strings.Split(s, "/")
	out := make(Name, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// String renders the name back to its "/"-separated form, always with a
// leading slash.
func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, c := range n {
		b.WriteByte('/')
		b.WriteString(c)
	}
	return b.String()
}

// Append returns a new Name with the given components appended.
func (n Name) Append(components ...string) Name {
	out := make(Name, len(n)+len(components))
	copy(out, n)
	copy(out[len(n):], components)
	return out
}

// IsPrefixOf reports whether n is a strict or non-strict prefix of other.
func (n Name) IsPrefixOf(other Name) bool {
	if len(n) > len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// Equal reports whether n and other have identical components.
func (n Name) Equal(other Name) bool {
	if len(n) != len(other) {
		return false
	}
	for i := range n {
		if n[i] != other[i] {
			return false
		}
	}
	return true
}

// SuffixLen returns len(n) - len(prefix). Callers must ensure prefix is
// actually a prefix of n; the CA engine checks this via IsPrefixOf first.
func (n Name) SuffixLen(prefix Name) int {
	return len(n) - len(prefix)
}

// Clone returns a copy of n so callers can mutate the result without
// aliasing the original slice.
func (n Name) Clone() Name {
	out := make(Name, len(n))
	copy(out, n)
	return out
}
