package auctions

import (
	"github.com/cloudx-io/openescrow/core"
)

type Stake struct {
	AssetID core.AssetID `json:"asset_id"`
	Bidder  core.Address `json:"bidder"`
	Stake   string       `json:"stake"`
}
