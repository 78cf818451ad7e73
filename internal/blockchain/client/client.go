package client

import (
	"context"

	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/jsonrpc"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/instrument"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
)

//go:generate mockgen -destination=mocks/mocks.go -package=clientmocks . Client,Submitter,Signer

type (
	// Client reads objects and events from the ledger.
	// Reads never retry internally; a failed read is surfaced to the caller.
	Client interface {
		GetObject(ctx context.Context, id string) (*Object, error)
		// QueryEvents returns a single bounded page of events of the given type, without pagination.
		QueryEvents(ctx context.Context, eventType string, limit int, order event.Order) ([]*event.RawEvent, error)
		GetOwnedObjects(ctx context.Context, owner string, structType string, limit int) ([]*Object, error)
		GetBalance(ctx context.Context, owner string, coinType string) (*Balance, error)
	}

	ClientParams struct {
		fx.In
		fxparams.Params
		RPC jsonrpc.Client `name:"reader"`
	}

	clientImpl struct {
		logger  *zap.Logger
		client  jsonrpc.Client
		metrics tally.Scope
		methods methods
	}

	methods struct {
		getObject       *jsonrpc.RequestMethod
		queryEvents     *jsonrpc.RequestMethod
		getOwnedObjects *jsonrpc.RequestMethod
		getBalance      *jsonrpc.RequestMethod
	}

	eventPage struct {
		Data        []*event.RawEvent `json:"data"`
		HasNextPage bool              `json:"hasNextPage"`
	}

	ownedObjectsPage struct {
		Data        []*objectResponse `json:"data"`
		HasNextPage bool              `json:"hasNextPage"`
	}

	eventFilter struct {
		MoveEventType string `json:"MoveEventType"`
	}

	objectOptions struct {
		ShowType    bool `json:"showType"`
		ShowOwner   bool `json:"showOwner"`
		ShowContent bool `json:"showContent"`
		ShowDisplay bool `json:"showDisplay"`
	}

	ownedObjectsQuery struct {
		Filter  ownedObjectsFilter `json:"filter"`
		Options objectOptions      `json:"options"`
	}

	ownedObjectsFilter struct {
		StructType string `json:"StructType"`
	}
)

const (
	// CoinTypeSUI is the native gas coin.
	CoinTypeSUI = "0x2::sui::SUI"

	instrumentName = "client.request"
)

var (
	fullObjectOptions = objectOptions{
		ShowType:    true,
		ShowOwner:   true,
		ShowContent: true,
		ShowDisplay: true,
	}
)

func NewClient(params ClientParams) Client {
	timeout := params.Config.Ledger.Client.HttpTimeout
	return &clientImpl{
		logger:  log.WithPackage(params.Logger),
		client:  params.RPC,
		metrics: params.Metrics.SubScope("client"),
		methods: methods{
			getObject:       &jsonrpc.RequestMethod{Name: "sui_getObject", Timeout: timeout},
			queryEvents:     &jsonrpc.RequestMethod{Name: "suix_queryEvents", Timeout: timeout},
			getOwnedObjects: &jsonrpc.RequestMethod{Name: "suix_getOwnedObjects", Timeout: timeout},
			getBalance:      &jsonrpc.RequestMethod{Name: "suix_getBalance", Timeout: timeout},
		},
	}
}

func (c *clientImpl) GetObject(ctx context.Context, id string) (*Object, error) {
	return instrument.Call(ctx, c.instrument("get_object"), func(ctx context.Context) (*Object, error) {
		response, err := c.client.Call(ctx, c.methods.getObject, jsonrpc.Params{id, fullObjectOptions})
		if err != nil {
			return nil, xerrors.Errorf("failed to get object %v: %w", id, err)
		}

		var result objectResponse
		if err := response.Unmarshal(&result); err != nil {
			return nil, xerrors.Errorf("failed to decode object %v: %w", id, err)
		}

		return result.toObject(id)
	}, instrument.WithLoggerFields(zap.String("object", id)))
}

func (c *clientImpl) QueryEvents(ctx context.Context, eventType string, limit int, order event.Order) ([]*event.RawEvent, error) {
	if limit <= 0 {
		return nil, xerrors.Errorf("invalid limit: %v", limit)
	}

	return instrument.Call(ctx, c.instrument("query_events"), func(ctx context.Context) ([]*event.RawEvent, error) {
		params := jsonrpc.Params{
			eventFilter{MoveEventType: eventType},
			nil, // cursor
			limit,
			order.Descending(),
		}
		response, err := c.client.Call(ctx, c.methods.queryEvents, params)
		if err != nil {
			return nil, xerrors.Errorf("failed to query events of %v: %w", eventType, err)
		}

		var page eventPage
		if err := response.Unmarshal(&page); err != nil {
			return nil, xerrors.Errorf("failed to decode events of %v: %w", eventType, err)
		}

		return page.Data, nil
	}, instrument.WithLoggerFields(zap.String("event_type", eventType), zap.Int("limit", limit)))
}

func (c *clientImpl) GetOwnedObjects(ctx context.Context, owner string, structType string, limit int) ([]*Object, error) {
	if !utils.IsValidAddress(owner) {
		return nil, xerrors.Errorf("invalid owner address: %q", owner)
	}

	return instrument.Call(ctx, c.instrument("get_owned_objects"), func(ctx context.Context) ([]*Object, error) {
		query := ownedObjectsQuery{
			Filter:  ownedObjectsFilter{StructType: structType},
			Options: fullObjectOptions,
		}
		params := jsonrpc.Params{owner, query, nil}
		if limit > 0 {
			params = append(params, limit)
		}

		response, err := c.client.Call(ctx, c.methods.getOwnedObjects, params)
		if err != nil {
			return nil, xerrors.Errorf("failed to get objects owned by %v: %w", owner, err)
		}

		var page ownedObjectsPage
		if err := response.Unmarshal(&page); err != nil {
			return nil, xerrors.Errorf("failed to decode objects owned by %v: %w", owner, err)
		}

		objects := make([]*Object, 0, len(page.Data))
		for _, item := range page.Data {
			object, err := item.toObject("")
			if err != nil {
				return nil, xerrors.Errorf("failed to decode owned object: %w", err)
			}

			if object.Exists {
				if object.Owner == "" {
					object.Owner = owner
				}
				objects = append(objects, object)
			}
		}

		return objects, nil
	}, instrument.WithLoggerFields(zap.String("owner", owner), zap.String("struct_type", structType)))
}

func (c *clientImpl) GetBalance(ctx context.Context, owner string, coinType string) (*Balance, error) {
	if !utils.IsValidAddress(owner) {
		return nil, xerrors.Errorf("invalid owner address: %q", owner)
	}

	if coinType == "" {
		coinType = CoinTypeSUI
	}

	return instrument.Call(ctx, c.instrument("get_balance"), func(ctx context.Context) (*Balance, error) {
		response, err := c.client.Call(ctx, c.methods.getBalance, jsonrpc.Params{owner, coinType})
		if err != nil {
			return nil, xerrors.Errorf("failed to get balance of %v: %w", owner, err)
		}

		var result balanceResponse
		if err := response.Unmarshal(&result); err != nil {
			return nil, xerrors.Errorf("failed to decode balance of %v: %w", owner, err)
		}

		return &Balance{
			Owner:           owner,
			CoinType:        result.CoinType,
			TotalBalance:    uint64(result.TotalBalance),
			CoinObjectCount: result.CoinObjectCount,
		}, nil
	}, instrument.WithLoggerFields(zap.String("owner", owner)))
}

func (c *clientImpl) instrument(method string) instrument.Instrument {
	tags := map[string]string{"method": method}
	return instrument.New(
		c.metrics.Tagged(tags),
		"request",
		instrument.WithTracer(instrumentName, tags),
		instrument.WithLogger(c.logger.With(zap.String("method", method)), instrumentName),
	)
}

