package projector

import (
	"github.com/SeventhOdyssey71/sui-dating-app/internal/blockchain/client"
)

type (
	NFT struct {
		ObjectID    string
		Name        string
		Description string
		ImageURL    string
		Creator     string
		Collection  string
		Attributes  map[string]string
	}

	Balance struct {
		Owner           string
		CoinType        string
		TotalBalance    uint64
		CoinObjectCount int
	}
)

// mistPerSUI is the number of base units in one SUI.
const mistPerSUI = 1_000_000_000

// ProjectNFTs reads the owned NFT objects in the input order.
// Display metadata, when present, overrides the raw fields.
func ProjectNFTs(objects []*client.Object) []*NFT {
	nfts := make([]*NFT, 0, len(objects))
	for _, object := range objects {
		if object == nil || !object.Exists {
			continue
		}

		nft := &NFT{
			ObjectID:    object.ID,
			Name:        firstNonEmpty(object.Display["name"], object.String("name")),
			Description: firstNonEmpty(object.Display["description"], object.String("description")),
			ImageURL:    firstNonEmpty(object.Display["image_url"], object.String("image_url"), object.String("url")),
			Creator:     firstNonEmpty(object.Display["creator"], object.String("creator")),
			Collection:  firstNonEmpty(object.Display["collection"], object.String("collection")),
			Attributes:  object.VecMap("attributes"),
		}
		if nft.Attributes == nil {
			nft.Attributes = map[string]string{}
		}

		nfts = append(nfts, nft)
	}

	return nfts
}

func ProjectBalance(balance *client.Balance) *Balance {
	if balance == nil {
		return &Balance{}
	}

	return &Balance{
		Owner:           balance.Owner,
		CoinType:        balance.CoinType,
		TotalBalance:    balance.TotalBalance,
		CoinObjectCount: balance.CoinObjectCount,
	}
}

// SUI returns the balance in whole SUI.
func (b *Balance) SUI() float64 {
	return float64(b.TotalBalance) / mistPerSUI
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
