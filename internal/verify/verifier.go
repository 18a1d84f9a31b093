package verify

import (
	"fmt"

	"github.com/ilkin0/docguard/internal/policy"
)

// Verifier runs the ordered check pipeline against a shared policy table.
// It keeps no state between calls and is safe for concurrent use.
type Verifier struct {
	table *policy.Table
}

func New(table *policy.Table) *Verifier {
	return &Verifier{table: table}
}

func (v *Verifier) Table() *policy.Table {
	return v.table
}

// HeadSize is how many leading bytes a ContentRequest needs to carry.
func (v *Verifier) HeadSize() int {
	return max(ScanWindow, v.table.SignatureWindow())
}

func (v *Verifier) Verify(req Request) Result {
	details, err := v.Check(req)
	if err != nil {
		return Reject(err)
	}
	return Pass(details)
}

// Check runs extension/MIME, size, signature, content and destination checks
// in that order and stops at the first failure.
func (v *Verifier) Check(req Request) (Details, error) {
	switch r := req.(type) {
	case ContentRequest:
		return v.check(r.Filename, r.ContentType, r.Destination, r.Size, func(entry *policy.Entry) error {
			if err := CheckSignature(entry, r.Head); err != nil {
				return err
			}
			return ScanContent(r.Head)
		})
	case MetadataRequest:
		return v.check(r.Filename, r.ContentType, r.Destination, r.Size, func(entry *policy.Entry) error {
			// Without a sample the signature is assumed valid.
			if len(r.Sample) == 0 {
				return nil
			}
			return CheckSignature(entry, r.Sample)
		})
	default:
		return Details{}, fmt.Errorf("unsupported request type %T", req)
	}
}

func (v *Verifier) check(filename, contentType, destination string, size int64, inspect func(*policy.Entry) error) (Details, error) {
	entry, err := ResolveType(v.table, filename, contentType)
	if err != nil {
		return Details{}, err
	}

	if err := CheckSize(entry, size); err != nil {
		return Details{}, err
	}

	if err := inspect(entry); err != nil {
		return Details{}, err
	}

	if err := CheckDestination(v.table, destination); err != nil {
		return Details{}, err
	}

	return Details{
		Filename:       filename,
		Extension:      entry.Extension(),
		ContentType:    contentType,
		Size:           size,
		SizeFormatted:  FormatSize(size),
		SignatureValid: true,
	}, nil
}
