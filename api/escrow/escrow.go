package escrow

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/cloudx-io/openescrow/api/utils"
	"github.com/cloudx-io/openescrow/core"
)

type Escrow struct {
	engine *core.Engine
}

func New(engine *core.Engine) *Escrow {
	return &Escrow{engine: engine}
}

func (e *Escrow) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	return utils.WriteJSON(w, &Pool{
		Balance:        e.engine.PoolBalance().String(),
		ActiveAuctions: e.engine.ActiveAuctions(),
	})
}

func (e *Escrow) handleGetConfig(w http.ResponseWriter, req *http.Request) error {
	return utils.WriteJSON(w, &Config{
		Policy:          string(e.engine.Policy()),
		FeeRate:         e.engine.FeeRate().String(),
		FeeRecipient:    e.engine.FeeRecipient(),
		MinStartPrice:   e.engine.MinStartPrice().String(),
		LedgerAddress:   e.engine.LedgerAddress(),
		RegistryAddress: e.engine.RegistryAddress(),
		EscrowAddress:   e.engine.EscrowAddress(),
	})
}

func (e *Escrow) handleGetSellerAuctions(w http.ResponseWriter, req *http.Request) error {
	addr := mux.Vars(req)["seller"]
	if !common.IsHexAddress(addr) {
		return utils.BadRequest(errors.Errorf("seller: %q is not a hex address", addr))
	}
	seller := common.HexToAddress(addr)
	assets := e.engine.AuctionsOf(seller)
	if assets == nil {
		assets = []core.AssetID{}
	}
	return utils.WriteJSON(w, &SellerAuctions{
		Seller:   seller,
		AssetIDs: assets,
		Count:    e.engine.AuctionCountOf(seller),
	})
}

func (e *Escrow) handleGetCredit(w http.ResponseWriter, req *http.Request) error {
	addr := mux.Vars(req)["account"]
	if !common.IsHexAddress(addr) {
		return utils.BadRequest(errors.Errorf("account: %q is not a hex address", addr))
	}
	account := common.HexToAddress(addr)
	return utils.WriteJSON(w, &Credit{
		Account: account,
		Amount:  e.engine.CreditOf(account).String(),
	})
}

// Mount registers /pool, /config, /credits and /sellers below pathPrefix, which may be empty.
func (e *Escrow) Mount(root *mux.Router, pathPrefix string) {
	sub := root
	if pathPrefix != "" {
		sub = root.PathPrefix(pathPrefix).Subrouter()
	}
	sub.Path("/pool").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(e.handleGetPool))
	sub.Path("/config").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(e.handleGetConfig))
	sub.Path("/credits/{account}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(e.handleGetCredit))
	sub.Path("/sellers/{seller}/auctions").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(e.handleGetSellerAuctions))
}
