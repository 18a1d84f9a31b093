package client

import (
	"errors"

	"github.com/ilkin0/docguard/internal/policy"
	"github.com/ilkin0/docguard/internal/verify"
)

var errNoPolicy = errors.New("policy table is not configured")

// Fallback runs the checks that need no file content: extension and MIME,
// size and destination. Content is never inspected, so a passing result
// reports signatureValid as an assumption.
func Fallback(table *policy.Table, filename, contentType string, size int64, destination string) verify.Result {
	details, err := fallbackCheck(table, filename, contentType, size, destination)
	if err != nil {
		return verify.Reject(err)
	}
	return verify.Pass(details)
}

func fallbackCheck(table *policy.Table, filename, contentType string, size int64, destination string) (verify.Details, error) {
	if table == nil {
		return verify.Details{}, errNoPolicy
	}

	entry, err := verify.ResolveType(table, filename, contentType)
	if err != nil {
		return verify.Details{}, err
	}
	if err := verify.CheckSize(entry, size); err != nil {
		return verify.Details{}, err
	}
	if err := verify.CheckDestination(table, destination); err != nil {
		return verify.Details{}, err
	}

	return verify.Details{
		Filename:       filename,
		Extension:      entry.Extension(),
		ContentType:    contentType,
		Size:           size,
		SizeFormatted:  verify.FormatSize(size),
		SignatureValid: true,
	}, nil
}
