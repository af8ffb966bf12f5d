package escrow

import (
	"github.com/cloudx-io/openescrow/core"
)

type Pool struct {
	Balance        string `json:"balance"`
	ActiveAuctions int    `json:"active_auctions"`
}

type Config struct {
	Policy          string       `json:"policy"`
	FeeRate         string       `json:"fee_rate"`
	FeeRecipient    core.Address `json:"fee_recipient"`
	MinStartPrice   string       `json:"min_start_price"`
	LedgerAddress   core.Address `json:"ledger_address"`
	RegistryAddress core.Address `json:"registry_address"`
	EscrowAddress   core.Address `json:"escrow_address"`
}

type SellerAuctions struct {
	Seller   core.Address   `json:"seller"`
	AssetIDs []core.AssetID `json:"asset_ids"`
	Count    int            `json:"count"`
}

// Credit is a settlement amount held in escrow for an account until it claims it.
type Credit struct {
	Account core.Address `json:"account"`
	Amount  string       `json:"amount"`
}
