package blockchain

import (
	"go.uber.org/fx"

	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/endpoints"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/jsonrpc"
	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/subscription"
)

var Module = fx.Options(
	client.Module,
	endpoints.Module,
	jsonrpc.Module,
	subscription.Module,
)
