package webserver

import (
	"strings"

	"github.com/muurk/microweb/internal/logging"
	"go.uber.org/zap"
)

// Args holds query-string or form arguments. Duplicate keys overwrite.
type Args map[string]string

// parseArgs splits s on '&' and each pair on its first '='. Segments without
// '=' (including empty ones) are skipped. No decoding is done.
func parseArgs(s string) Args {
	args := make(Args)
	if s == "" {
		return args
	}
	for _, pair := range strings.Split(s, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			if pair != "" {
				logging.Debug("Skipping argument without '='", zap.String("pair", pair))
			}
			continue
		}
		args[key] = value
	}
	return args
}

// parseForm decodes a form body and then splits it into arguments. Decoding
// happens before splitting, so an encoded '&' or '=' acts as a separator.
func parseForm(body []byte) Args {
	return parseArgs(decodeForm(string(body)))
}

// decodeForm replaces '+' with a space and %XX escapes with the byte they
// encode. A '%' not followed by two hex digits is kept as is.
func decodeForm(s string) string {
	if strings.IndexAny(s, "+%") < 0 {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b = append(b, ' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b = append(b, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			b = append(b, c)
		}
	}
	return string(b)
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
