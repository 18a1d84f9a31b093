package verify

import (
	"errors"
	"fmt"
)

// Kind separates judgments about the file from failures of the request or the server.
type Kind uint8

const (
	KindPolicy Kind = iota + 1
	KindProtocol
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindPolicy:
		return "policy"
	case KindProtocol:
		return "protocol"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Rule names reported on policy violations.
const (
	RuleExtension   = "extension"
	RuleMIME        = "mime"
	RuleSize        = "size"
	RuleSignature   = "signature"
	RuleContent     = "content"
	RuleDestination = "destination"
)

const InternalMessage = "Internal server error"

type Error struct {
	Kind    Kind
	Rule    string
	Message string
}

// Error returns the message unchanged; policy messages are shown to end users as-is.
func (e *Error) Error() string {
	return e.Message
}

func Policy(rule, format string, args ...any) *Error {
	return &Error{Kind: KindPolicy, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func Protocol(format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}

func Internal() *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage}
}

// KindOf returns the Kind of err, or zero if err is not an *Error.
func KindOf(err error) Kind {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return 0
}

func IsPolicyViolation(err error) bool {
	return KindOf(err) == KindPolicy
}

func RuleOf(err error) string {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Rule
	}
	return ""
}
