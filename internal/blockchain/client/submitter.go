package client

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/jsonrpc"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/instrument"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
)

type (
	// Submitter signs and executes a single Move call.
	Submitter interface {
		Submit(ctx context.Context, call *MoveCall) (*SubmitResult, error)
	}

	// Signer builds and signs the transaction of a Move call on behalf of the connected wallet.
	Signer interface {
		Sign(ctx context.Context, call *MoveCall) (*SignedTransaction, error)
	}

	SubmitterParams struct {
		fx.In
		fxparams.Params
		RPC    jsonrpc.Client `name:"executor"`
		Signer Signer         `optional:"true"`
	}

	MoveCall struct {
		// Kind names the mutation for metrics and logs, e.g. "send_message".
		Kind          string `validate:"required"`
		Target        string `validate:"required"`
		TypeArguments []string
		Arguments     []Argument
		GasBudget     uint64 `validate:"required"`
	}

	ArgumentKind int

	// Argument is one input of a Move call, resolved by the signer into a transaction input.
	Argument struct {
		Kind ArgumentKind
		// Object holds the object id for ArgumentObject, the ids for ArgumentObjectVec.
		Objects []string
		// Value and PureType describe a pure input, e.g. ("u8", 4).
		Value    any
		PureType string
		// Amount is split from the gas coin for ArgumentSplitGas.
		Amount uint64
	}

	SignedTransaction struct {
		TxBytes    string
		Signatures []string
	}

	SubmitResult struct {
		Digest string
		Events []*event.RawEvent
	}

	submitterImpl struct {
		logger   *zap.Logger
		client   jsonrpc.Client
		signer   Signer
		metrics  tally.Scope
		method   *jsonrpc.RequestMethod
		validate *validator.Validate
	}

	executeOptions struct {
		ShowEffects bool `json:"showEffects"`
		ShowEvents  bool `json:"showEvents"`
	}

	executeResponse struct {
		Digest  string            `json:"digest"`
		Effects *executeEffects   `json:"effects"`
		Events  []*event.RawEvent `json:"events"`
	}

	executeEffects struct {
		Status executeStatus `json:"status"`
	}

	executeStatus struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
)

const (
	ArgumentObject ArgumentKind = iota
	ArgumentPure
	ArgumentSplitGas
	ArgumentObjectVec
)

const (
	requestTypeWaitForLocalExecution = "WaitForLocalExecution"
	executionStatusSuccess           = "success"
	submitInstrumentName             = "client.submit"
)

func NewSubmitter(params SubmitterParams) Submitter {
	return &submitterImpl{
		logger:   log.WithPackage(params.Logger),
		client:   params.RPC,
		signer:   params.Signer,
		metrics:  params.Metrics.SubScope("submitter"),
		method:   &jsonrpc.RequestMethod{Name: "sui_executeTransactionBlock", Timeout: params.Config.Ledger.Client.HttpTimeout},
		validate: validator.New(),
	}
}

func ObjectArg(id string) Argument {
	return Argument{Kind: ArgumentObject, Objects: []string{id}}
}

func ObjectVecArg(ids []string) Argument {
	return Argument{Kind: ArgumentObjectVec, Objects: ids}
}

func PureArg(pureType string, value any) Argument {
	return Argument{Kind: ArgumentPure, PureType: pureType, Value: value}
}

// SplitGasArg passes a coin of the given amount split from the gas coin, e.g. a wager.
func SplitGasArg(amount uint64) Argument {
	return Argument{Kind: ArgumentSplitGas, Amount: amount}
}

func (s *submitterImpl) Submit(ctx context.Context, call *MoveCall) (*SubmitResult, error) {
	if s.signer == nil {
		return nil, ErrSignerUnavailable
	}

	if err := s.validate.Struct(call); err != nil {
		return nil, xerrors.Errorf("invalid move call: %w", err)
	}

	tags := map[string]string{"kind": call.Kind}
	logger := s.logger.With(zap.String("kind", call.Kind), zap.String("target", call.Target))
	i := instrument.New(
		s.metrics.Tagged(tags),
		"submit",
		instrument.WithTracer(submitInstrumentName, tags),
		instrument.WithLogger(logger, submitInstrumentName),
	)
	return instrument.Call(ctx, i, func(ctx context.Context) (*SubmitResult, error) {
		signed, err := s.signer.Sign(ctx, call)
		if err != nil {
			return nil, xerrors.Errorf("failed to sign %v: %w", call.Kind, err)
		}

		params := jsonrpc.Params{
			signed.TxBytes,
			signed.Signatures,
			executeOptions{ShowEffects: true, ShowEvents: true},
			requestTypeWaitForLocalExecution,
		}
		response, err := s.client.Call(ctx, s.method, params)
		if err != nil {
			return nil, xerrors.Errorf("failed to execute %v: %w", call.Kind, err)
		}

		var result executeResponse
		if err := response.Unmarshal(&result); err != nil {
			return nil, xerrors.Errorf("failed to decode execution result of %v: %w", call.Kind, err)
		}

		if result.Effects == nil {
			return nil, xerrors.Errorf("missing effects for transaction %v", result.Digest)
		}

		if result.Effects.Status.Status != executionStatusSuccess {
			return nil, xerrors.Errorf("transaction %v failed: %w", result.Digest, &RejectedError{
				Digest: result.Digest,
				Reason: result.Effects.Status.Error,
			})
		}

		return &SubmitResult{
			Digest: result.Digest,
			Events: result.Events,
		}, nil
	})
}

// FindEvent returns the first emitted event of the given kind.
func (r *SubmitResult) FindEvent(kind event.Kind) *event.RawEvent {
	for _, e := range r.Events {
		if e.Kind() == kind {
			return e
		}
	}

	return nil
}
