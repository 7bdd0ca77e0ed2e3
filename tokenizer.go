package fslm

import (
	"bufio"
)

// isTokenSep reports whether b is whitespace that separates tokens
// but is not itself significant (unlike '\n', handled separately
// below since it also emits the end-of-sentence sentinel).
func isTokenSep(b byte) bool {
	switch b {
	case ' ', '\t', '\v', '\f', '\r', 0:
		return true
	}
	return false
}

// readToken reads the next maximal non-whitespace run from r. A
// newline is reported as the sentinel token "</s>"; the newline byte
// itself is pushed back so the following call sees it again only once
// consumed (i.e. each newline yields exactly one "</s>").
func readToken(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if len(buf) > 0 {
				return string(buf), nil
			}
			return "", err
		}
		if b == '\n' {
			if len(buf) == 0 {
				return eosToken, nil
			}
			if uerr := r.UnreadByte(); uerr != nil {
				return string(buf), nil
			}
			return string(buf), nil
		}
		if isTokenSep(b) {
			if len(buf) == 0 {
				continue
			}
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}
