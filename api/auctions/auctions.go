package auctions

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/cloudx-io/openescrow/api/utils"
	"github.com/cloudx-io/openescrow/core"
)

type Auctions struct {
	engine *core.Engine
}

func New(engine *core.Engine) *Auctions {
	return &Auctions{engine: engine}
}

func (a *Auctions) handleGetLiveAuction(w http.ResponseWriter, req *http.Request) error {
	assetID, err := parseAssetID(mux.Vars(req)["assetID"])
	if err != nil {
		return err
	}
	auction, err := a.engine.GetAuction(assetID)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, auction)
}

func (a *Auctions) handleGetStake(w http.ResponseWriter, req *http.Request) error {
	assetID, err := parseAssetID(mux.Vars(req)["assetID"])
	if err != nil {
		return err
	}
	bidder, err := parseAddress(mux.Vars(req)["bidder"])
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &Stake{
		AssetID: assetID,
		Bidder:  bidder,
		Stake:   a.engine.StakeOfAsset(assetID, bidder).String(),
	})
}

func (a *Auctions) handleGetAuctionByID(w http.ResponseWriter, req *http.Request) error {
	id, err := parseAuctionID(mux.Vars(req)["auctionID"])
	if err != nil {
		return err
	}
	auction, err := a.engine.GetAuctionByID(id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, auction)
}

func (a *Auctions) handleGetBids(w http.ResponseWriter, req *http.Request) error {
	id, err := parseAuctionID(mux.Vars(req)["auctionID"])
	if err != nil {
		return err
	}
	bids, err := a.engine.BidHistory(id)
	if err != nil {
		return err
	}
	if bids == nil {
		bids = []core.BidEntry{}
	}
	return utils.WriteJSON(w, bids)
}

func (a *Auctions) handleGetStandings(w http.ResponseWriter, req *http.Request) error {
	id, err := parseAuctionID(mux.Vars(req)["auctionID"])
	if err != nil {
		return err
	}
	standings, err := a.engine.Standings(id)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, standings)
}

func (a *Auctions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/id/{auctionID}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(a.handleGetAuctionByID))
	sub.Path("/id/{auctionID}/bids").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(a.handleGetBids))
	sub.Path("/id/{auctionID}/standings").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(a.handleGetStandings))
	sub.Path("/{assetID:[0-9]+}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(a.handleGetLiveAuction))
	sub.Path("/{assetID:[0-9]+}/stakes/{bidder}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(a.handleGetStake))
}

func parseAssetID(s string) (core.AssetID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "assetID"))
	}
	return core.AssetID(id), nil
}

func parseAuctionID(s string) (core.AuctionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, utils.BadRequest(errors.WithMessage(err, "auctionID"))
	}
	return id, nil
}

func parseAddress(s string) (core.Address, error) {
	if !common.IsHexAddress(s) {
		return core.Address{}, utils.BadRequest(errors.Errorf("address: %q is not a hex address", s))
	}
	return common.HexToAddress(s), nil
}
