// Package views is the facade the UI binds to: cached reads, live views and optimistic writes.
package views

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/uber-go/tally/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/cache"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/config"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/dispatcher"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/event"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/overlay"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/projector"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/fxparams"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/log"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/timesource"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/utils/utils"
)

type (
	Params struct {
		fx.In
		fxparams.Params
		Lifecycle   fx.Lifecycle
		Client      client.Client
		Submitter   client.Submitter
		Cache       *cache.Cache
		Projector   *projector.Projector
		Dispatcher  *dispatcher.Dispatcher
		Invalidator overlay.Invalidator
		TimeSource  timesource.TimeSource `optional:"true"`
	}

	Service struct {
		config      *config.Config
		logger      *zap.Logger
		metrics     tally.Scope
		client      client.Client
		submitter   client.Submitter
		cache       *cache.Cache
		projector   *projector.Projector
		dispatcher  *dispatcher.Dispatcher
		invalidator overlay.Invalidator
		timeSource  timesource.TimeSource
		validate    *validator.Validate

		messages *overlay.Overlay[*projector.Message]
		receipts *overlay.Overlay[*projector.ReadReceipt]
		swipes   *overlay.Overlay[*projector.SwipeRecord]
	}
)

var (
	// ErrInvalidArgument is returned before anything is submitted when a write is malformed.
	ErrInvalidArgument = xerrors.New("invalid argument")

	// ErrNotFound is returned when a shared object does not exist on the ledger.
	ErrNotFound = xerrors.New("object not found")
)

func New(params Params) *Service {
	ts := params.TimeSource
	if ts == nil {
		ts = timesource.NewRealTimeSource()
	}

	overlayParams := overlay.Params{
		Params:      params.Params,
		Lifecycle:   params.Lifecycle,
		Invalidator: params.Invalidator,
		TimeSource:  ts,
	}

	return &Service{
		config:      params.Config,
		logger:      log.WithPackage(params.Logger),
		metrics:     params.Metrics.SubScope("views"),
		client:      params.Client,
		submitter:   params.Submitter,
		cache:       params.Cache,
		projector:   params.Projector,
		dispatcher:  params.Dispatcher,
		invalidator: params.Invalidator,
		timeSource:  ts,
		validate:    validator.New(),
		messages:    overlay.New(overlayParams, "messages", messageKey),
		receipts:    overlay.New(overlayParams, "read_receipts", receiptKey),
		swipes:      overlay.New(overlayParams, "swipes", swipeKey),
	}
}

// PendingMessages lists the messages sent by this process that are not settled yet.
func (s *Service) PendingMessages() []*overlay.Record[*projector.Message] {
	return s.messages.Pending()
}

// PendingSwipes lists the swipes issued by this process that are not settled yet.
func (s *Service) PendingSwipes() []*overlay.Record[*projector.SwipeRecord] {
	return s.swipes.Pending()
}

func messageKey(m *projector.Message) string {
	return m.ID
}

func receiptKey(r *projector.ReadReceipt) string {
	return r.MessageID
}

func swipeKey(r *projector.SwipeRecord) string {
	return r.Swiper + "|" + r.Swiped
}

// involves reports whether the viewer sent or received the message.
func involves(viewer string) func(m *projector.Message) bool {
	return func(m *projector.Message) bool {
		return m.Sender == viewer || m.Recipient == viewer
	}
}

func (s *Service) eventType(kind event.Kind) string {
	return kind.Type(s.config.Contracts.PackageFor(kind.Module()))
}

func (s *Service) eventTypes(kinds ...event.Kind) []string {
	types := make([]string, len(kinds))
	for i, kind := range kinds {
		types[i] = s.eventType(kind)
	}

	return types
}

// getObject reads a shared object that must exist.
func (s *Service) getObject(ctx context.Context, id string) (*client.Object, error) {
	object, err := s.client.GetObject(ctx, id)
	if err != nil {
		return nil, xerrors.Errorf("failed to read object %v: %w", id, err)
	}

	if !object.Exists {
		return nil, xerrors.Errorf("object %v: %w", id, ErrNotFound)
	}

	return object, nil
}

func normalizeAddress(name string, address string) (string, error) {
	normalized, err := utils.NormalizeAddress(address)
	if err != nil {
		return "", xerrors.Errorf("%v %q: %w", name, address, ErrInvalidArgument)
	}

	return normalized, nil
}

func normalizeAddresses(name string, addresses []string) ([]string, error) {
	result := make([]string, len(addresses))
	for i, address := range addresses {
		normalized, err := normalizeAddress(name, address)
		if err != nil {
			return nil, err
		}
		result[i] = normalized
	}

	return result, nil
}

func (s *Service) validateRequest(request any) error {
	if err := s.validate.Struct(request); err != nil {
		return xerrors.Errorf("%v: %w", strings.TrimSpace(err.Error()), ErrInvalidArgument)
	}

	return nil
}
