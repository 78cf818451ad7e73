package client

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

type (
	// RejectedError is returned when the ledger executed the transaction and its effects failed.
	RejectedError struct {
		Digest string
		Reason string
	}

	// MutationError is a write failure classified for the caller.
	MutationError struct {
		Code string
		Err  error
	}
)

const (
	CodeAlreadyRegistered     = "already_registered"
	CodeNotRegistered         = "not_registered"
	CodeAlreadySwiped         = "already_swiped"
	CodeInsufficientGas       = "insufficient_gas"
	CodeSignerUnavailable     = "signer_unavailable"
	CodeReconciliationTimeout = "reconciliation_timeout"
	CodeRejected              = "rejected"

	functionRegisterUser = "register_user"
	abortAlreadyExists   = 1
)

var (
	ErrSignerUnavailable = xerrors.New("no signer is connected")
	ErrAlreadyRegistered = xerrors.New("user is already registered")
	ErrNotRegistered     = xerrors.New("user is not registered")
	ErrAlreadySwiped     = xerrors.New("profile was already swiped")
	ErrInsufficientGas   = xerrors.New("insufficient gas")
	// ErrReconciliationTimeout is reported when a write is never observed on the ledger.
	ErrReconciliationTimeout = xerrors.New("write was not observed on the ledger in time")

	sentinels = map[string]error{
		CodeAlreadyRegistered:     ErrAlreadyRegistered,
		CodeNotRegistered:         ErrNotRegistered,
		CodeAlreadySwiped:         ErrAlreadySwiped,
		CodeInsufficientGas:       ErrInsufficientGas,
		CodeSignerUnavailable:     ErrSignerUnavailable,
		CodeReconciliationTimeout: ErrReconciliationTimeout,
	}

	moveAbortRegexp    = regexp.MustCompile(`MoveAbort\(.*\},\s*(\d+)\)`)
	functionNameRegexp = regexp.MustCompile(`function_name:\s*Some\("(\w+)"\)`)
	gasMarkers         = []string{"insufficientgas", "insufficient gas", "gasbalancetoolow", "gas budget", "insufficientcoinbalance"}
)

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transaction %v rejected: %v", e.Digest, e.Reason)
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%v: %v", e.Code, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the code.
func (e *MutationError) Is(target error) bool {
	sentinel, ok := sentinels[e.Code]
	return ok && sentinel == target
}

// ClassifyError maps a failed write onto a MutationError.
// A nil error stays nil.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var mutationErr *MutationError
	if xerrors.As(err, &mutationErr) {
		return mutationErr
	}

	return &MutationError{
		Code: classify(err),
		Err:  err,
	}
}

func classify(err error) string {
	for code, sentinel := range sentinels {
		if xerrors.Is(err, sentinel) {
			return code
		}
	}

	message := err.Error()
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(message, "E_ALREADY_SWIPED"):
		return CodeAlreadySwiped
	case strings.Contains(message, "E_NOT_REGISTERED"):
		return CodeNotRegistered
	case strings.Contains(message, "E_ALREADY_REGISTERED"):
		return CodeAlreadyRegistered
	case isRegistrationAbort(message):
		return CodeAlreadyRegistered
	}

	for _, marker := range gasMarkers {
		if strings.Contains(lower, marker) {
			return CodeInsufficientGas
		}
	}

	return CodeRejected
}

func isRegistrationAbort(message string) bool {
	abort := moveAbortRegexp.FindStringSubmatch(message)
	if abort == nil {
		return false
	}

	code, err := strconv.Atoi(abort[1])
	if err != nil || code != abortAlreadyExists {
		return false
	}

	function := functionNameRegexp.FindStringSubmatch(message)
	return function != nil && function[1] == functionRegisterUser
}
