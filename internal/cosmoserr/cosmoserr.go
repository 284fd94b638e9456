// Package cosmoserr defines the closed taxonomy of error kinds the wallet
// core distinguishes, and the HTTP status/problem+json mapping for them.
package cosmoserr

import (
	"errors"
	"fmt"
)

// Kind is one of the error kinds named in the wallet's error-handling design.
// The set is closed: callers switch on Kind rather than matching strings.
type Kind string

const (
	InvalidSyntax                  Kind = "invalid-syntax"
	IncompatibleKind               Kind = "incompatible-kind"
	HardenedRequiresSecret         Kind = "hardened-requires-secret"
	OutOfRangeIndex                Kind = "out-of-range-index"
	MerkleMismatch                 Kind = "merkle-mismatch"
	UnknownBlock                   Kind = "unknown-block"
	DiffConflict                   Kind = "diff-conflict"
	InsufficientFunds              Kind = "insufficient-funds"
	UnsatisfiableChangeConstraints Kind = "unsatisfiable-change-constraints"
	ImpossibleMean                 Kind = "impossible-mean"
	FeeRateRegression              Kind = "fee-rate-regression"
	BroadcastInsufficientFee       Kind = "broadcast-insufficient-fee"
	BroadcastInvalid               Kind = "broadcast-invalid"
	NetworkConnectionFail          Kind = "network-connection-fail"
	Inauthenticated                Kind = "inauthenticated"
	WalletExists                   Kind = "wallet-exists"
	WalletMissing                  Kind = "wallet-missing"
	SequenceMissing                Kind = "sequence-missing"
	KeyMissing                     Kind = "key-missing"
	NeedEntropy                    Kind = "need-entropy"
	Unimplemented                  Kind = "unimplemented"
)

// Error is a taxonomy-tagged error. Title names the invariant or operation
// that failed, for use as the problem+json "title" field.
type Error struct {
	Kind  Kind
	Title string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Title, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Title)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so that callers
// can write errors.Is(err, cosmoserr.New(cosmoserr.InsufficientFunds, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind with no wrapped cause.
func New(kind Kind, title string) *Error {
	return &Error{Kind: kind, Title: title}
}

// Wrap constructs an *Error of the given kind wrapping err.
func Wrap(kind Kind, title string, err error) *Error {
	return &Error{Kind: kind, Title: title, Err: err}
}

// KindOf extracts the Kind from err, walking its Unwrap chain, and reports
// whether a tagged Error was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// HTTPStatus maps a Kind to the status code the HTTP surface should return.
func HTTPStatus(k Kind) int {
	switch k {
	case InvalidSyntax, IncompatibleKind, HardenedRequiresSecret, OutOfRangeIndex,
		DiffConflict, UnsatisfiableChangeConstraints, ImpossibleMean, FeeRateRegression,
		BroadcastInsufficientFee, BroadcastInvalid:
		return 400
	case Inauthenticated:
		return 401
	case WalletMissing, SequenceMissing, KeyMissing, UnknownBlock:
		return 404
	case WalletExists:
		return 409
	case InsufficientFunds:
		return 402
	case NeedEntropy:
		return 428
	case NetworkConnectionFail:
		return 503
	case Unimplemented:
		return 501
	case MerkleMismatch:
		return 500
	default:
		return 500
	}
}

// Problem is the application/problem+json body shape spec §6 requires.
type Problem struct {
	Method string `json:"method"`
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// ToProblem renders err (ideally a *Error, but any error is accepted) as a
// Problem for the given request method. Errors not tagged with a Kind are
// treated as unexpected internal invariant violations (5xx).
func ToProblem(method string, err error) Problem {
	var e *Error
	if errors.As(err, &e) {
		p := Problem{Method: method, Status: HTTPStatus(e.Kind), Title: string(e.Kind)}
		if e.Title != "" {
			p.Title = e.Title
		}
		if e.Err != nil {
			p.Detail = e.Err.Error()
		}
		return p
	}
	return Problem{Method: method, Status: 500, Title: "internal-invariant-violation", Detail: err.Error()}
}
