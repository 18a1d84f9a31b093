package verify

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// ScanWindow is how many leading bytes ScanContent inspects.
const ScanWindow = 10 * 1024

// The scanner is a shallow heuristic over the leading window. It is one
// layer of defence and is not a malware scan.
var suspiciousPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"markup-tag", regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed)\b`)},
	{"script-protocol", regexp.MustCompile(`(?i)\b(javascript|vbscript)\s*:`)},
	{"event-handler", regexp.MustCompile(`(?i)<[^>]*\son[a-z]+\s*=`)},
	{"html-data-uri", regexp.MustCompile(`(?i)data:\s*text/html`)},
	{"prototype-pollution", regexp.MustCompile(`__proto__|constructor\s*(\.|\[\s*["'])\s*prototype`)},
	{"eval-call", regexp.MustCompile(`(?i)\beval\s*\(`)},
}

// ScanContent decodes at most ScanWindow leading bytes of buf as text and
// rejects the file if any suspicious pattern matches.
func ScanContent(buf []byte) error {
	if name := matchSuspicious(buf); name != "" {
		return Policy(RuleContent, "File contains potentially malicious content")
	}
	return nil
}

func matchSuspicious(buf []byte) string {
	text := decodeLenient(buf[:min(len(buf), ScanWindow)])
	for _, p := range suspiciousPatterns {
		if p.re.MatchString(text) {
			return p.name
		}
	}
	return ""
}

// decodeLenient replaces invalid UTF-8 with U+FFFD instead of failing.
func decodeLenient(b []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}
