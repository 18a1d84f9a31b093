package verify

import (
	"bytes"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ilkin0/docguard/internal/policy"
)

// ExtensionOf returns the lowercased text after the last dot of filename,
// or "" when there is no dot or nothing follows it.
func ExtensionOf(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// ResolveType finds the policy entry for filename and checks that the
// declared content type belongs to it.
func ResolveType(table *policy.Table, filename, contentType string) (*policy.Entry, error) {
	ext := ExtensionOf(filename)
	entry, ok := table.Lookup(ext)
	if !ok {
		return nil, Policy(RuleExtension, "File type not allowed. Allowed types: %s",
			strings.Join(table.Extensions(), ", "))
	}

	if !entry.AcceptsMIME(contentType) {
		return nil, Policy(RuleMIME, "Content type %q does not match the .%s file extension",
			contentType, ext)
	}

	return entry, nil
}

func CheckSize(entry *policy.Entry, size int64) error {
	if size == 0 {
		return Policy(RuleSize, "File is empty")
	}
	if size < 0 {
		return Policy(RuleSize, "File size is invalid")
	}

	limit := entry.MaxSize()
	if size > limit {
		got, allowed := FormatSize(size), FormatSize(limit)
		if got == allowed {
			got = humanize.Comma(size) + " bytes"
			allowed = humanize.Comma(limit) + " bytes"
		}
		return Policy(RuleSize, "File size %s exceeds the maximum allowed size of %s", got, allowed)
	}

	return nil
}

// CheckSignature compares buf from offset 0 against each magic-byte
// alternative of the entry. Entries without signatures always pass.
func CheckSignature(entry *policy.Entry, buf []byte) error {
	if !entry.HasSignatures() {
		return nil
	}

	for _, sig := range entry.Signatures() {
		if len(buf) >= len(sig) && bytes.Equal(buf[:len(sig)], sig) {
			return nil
		}
	}

	return Policy(RuleSignature, "File content does not match the expected format for .%s files",
		entry.Extension())
}

func CheckDestination(table *policy.Table, destination string) error {
	if !table.AllowsDestination(destination) {
		return Policy(RuleDestination, "Destination %q is not allowed", destination)
	}
	return nil
}

func FormatSize(size int64) string {
	if size < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(size))
}
