package session

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote is returned by SplitArgs for an unbalanced quote.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// SplitArgs splits a command line into words the way a POSIX shell would for
// plain words: whitespace separates, single quotes are literal, double
// quotes allow \" and \\ escapes, and a backslash outside quotes escapes the
// next character. No expansion of any kind is performed.
func SplitArgs(line string) ([]string, error) {
	var (
		words   []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				current.WriteRune(r)
			}
		case r == '\\':
			escaped, inWord = true, true
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, nil
}
