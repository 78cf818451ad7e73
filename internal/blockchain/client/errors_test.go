package client

import (
	"testing"

	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/jsonrpc"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/testutil"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     string
		sentinel error
	}{
		{
			name:     "signer",
			err:      xerrors.Errorf("failed to send: %w", ErrSignerUnavailable),
			code:     CodeSignerUnavailable,
			sentinel: ErrSignerUnavailable,
		},
		{
			name: "already registered abort",
			err: &RejectedError{
				Digest: "d",
				Reason: `MoveAbort(MoveLocation { module: ModuleId { address: 2a, name: Identifier("dating_platform") }, function: 2, instruction: 14, function_name: Some("register_user") }, 1) in command 0`,
			},
			code:     CodeAlreadyRegistered,
			sentinel: ErrAlreadyRegistered,
		},
		{
			name: "other abort in registration",
			err: &RejectedError{
				Digest: "d",
				Reason: `MoveAbort(MoveLocation { module: ModuleId { address: 2a, name: Identifier("dating_platform") }, function: 2, instruction: 14, function_name: Some("register_user") }, 3) in command 0`,
			},
			code: CodeRejected,
		},
		{
			name: "abort 1 elsewhere",
			err: &RejectedError{
				Digest: "d",
				Reason: `MoveAbort(MoveLocation { module: ModuleId { address: 2a, name: Identifier("dice_game") }, function: 1, instruction: 3, function_name: Some("play_dice") }, 1) in command 1`,
			},
			code: CodeRejected,
		},
		{
			name:     "already swiped",
			err:      xerrors.New("MoveAbort: E_ALREADY_SWIPED"),
			code:     CodeAlreadySwiped,
			sentinel: ErrAlreadySwiped,
		},
		{
			name:     "not registered",
			err:      xerrors.New("abort E_NOT_REGISTERED in dating_platform::swipe"),
			code:     CodeNotRegistered,
			sentinel: ErrNotRegistered,
		},
		{
			name:     "insufficient gas",
			err:      xerrors.Errorf("failed to execute: %w", &jsonrpc.RPCError{Code: -32002, Message: "Error checking transaction input objects: GasBalanceTooLow"}),
			code:     CodeInsufficientGas,
			sentinel: ErrInsufficientGas,
		},
		{
			name:     "reconciliation",
			err:      ErrReconciliationTimeout,
			code:     CodeReconciliationTimeout,
			sentinel: ErrReconciliationTimeout,
		},
		{
			name: "unknown",
			err:  xerrors.New("boom"),
			code: CodeRejected,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := testutil.Require(t)

			err := ClassifyError(test.err)
			var mutationErr *MutationError
			require.True(xerrors.As(err, &mutationErr))
			require.Equal(test.code, mutationErr.Code)
			require.True(xerrors.Is(err, test.err))
			if test.sentinel != nil {
				require.True(xerrors.Is(err, test.sentinel))
			}
		})
	}
}

func TestClassifyError_Idempotent(t *testing.T) {
	require := testutil.Require(t)

	require.NoError(ClassifyError(nil))

	first := ClassifyError(xerrors.New("E_ALREADY_SWIPED"))
	second := ClassifyError(xerrors.Errorf("wrapped: %w", first))
	require.Equal(first, second)
}
