package verify

import "errors"

// Result is the envelope every verification path returns.
// Exactly one of Error and Details is set.
type Result struct {
	Valid   bool     `json:"valid"`
	Error   string   `json:"error,omitempty"`
	Details *Details `json:"details,omitempty"`
}

type Details struct {
	Filename       string `json:"filename"`
	Extension      string `json:"extension"`
	ContentType    string `json:"contentType"`
	Size           int64  `json:"size"`
	SizeFormatted  string `json:"sizeFormatted"`
	SignatureValid bool   `json:"signatureValid"`
}

func Pass(d Details) Result {
	return Result{Valid: true, Details: &d}
}

// Reject builds a failed envelope. Errors that are not *Error are reported
// with the generic internal message so their text never reaches the caller.
func Reject(err error) Result {
	var verr *Error
	if errors.As(err, &verr) {
		return Result{Valid: false, Error: verr.Message}
	}
	return Result{Valid: false, Error: InternalMessage}
}
