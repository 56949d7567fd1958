package transfer

import "strings"

// Both separators are honored so a Windows sender's paths strip cleanly on a
// Linux receiver.
func isPathSep(c byte) bool {
	return c == '/' || c == '\\'
}

// CommonPrefix returns the longest directory prefix shared by every path,
// made of complete components only and including the trailing separator.
// Paths sharing just part of a component ("/ab/x" vs "/abc/y") contribute
// nothing, and with fewer than two paths there is nothing to strip.
func CommonPrefix(paths []string) string {
	if len(paths) < 2 {
		return ""
	}

	lcp := paths[0]
	for _, p := range paths[1:] {
		max := min(len(lcp), len(p))
		i := 0
		for i < max && lcp[i] == p[i] {
			i++
		}
		lcp = lcp[:i]
		if lcp == "" {
			return ""
		}
	}

	// Cut at the last separator so only whole components remain.
	end := -1
	for i := len(lcp) - 1; i >= 0; i-- {
		if isPathSep(lcp[i]) {
			end = i
			break
		}
	}
	if end < 0 {
		return ""
	}
	lcp = lcp[:end+1]

	// A prefix of bare separators (e.g. the "/" shared by "/ab" and "/abc")
	// names no component, so nothing is stripped.
	allSeps := true
	for i := 0; i < len(lcp); i++ {
		if !isPathSep(lcp[i]) {
			allSeps = false
			break
		}
	}
	if allSeps {
		return ""
	}
	return lcp
}

// StripPrefix removes prefix from path when it actually leads it and leaves
// a non-empty remainder; otherwise the path is returned unchanged.
func StripPrefix(path, prefix string) string {
	if prefix == "" || !strings.HasPrefix(path, prefix) || len(path) == len(prefix) {
		return path
	}
	return path[len(prefix):]
}
