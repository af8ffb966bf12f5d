package server

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/openescrow/core"
	"github.com/cloudx-io/openescrow/escrowapi"
)

// Error codes for requests rejected before reaching the engine.
const (
	CodeBadRequest     = "BadRequest"
	CodeUnknownType    = "UnknownRequestType"
	CodeReceiptFailure = "ReceiptFailure"
)

// errBadRequest marks malformed request fields.
var errBadRequest = errors.New("bad request")

// maxDurationSeconds is the longest duration representable as a time.Duration.
const maxDurationSeconds = math.MaxInt64 / int64(time.Second)

// Handle executes one request and returns its response. It never returns nil.
func (s *Server) Handle(req *escrowapi.Request) *escrowapi.Response {
	start := time.Now()
	resp := &escrowapi.Response{
		Type:      req.Type + escrowapi.ResponseSuffix,
		RequestID: req.RequestID,
	}

	var err error
	switch req.Type {
	case escrowapi.TypePing:
		resp.Type = "pong"
		resp.Message = "escrow server is healthy"
	case escrowapi.TypeCreateAuction:
		err = s.handleCreate(req, resp)
	case escrowapi.TypeBid:
		err = s.handleBid(req, resp)
	case escrowapi.TypeWithdraw:
		err = s.handleWithdraw(req, resp)
	case escrowapi.TypeCancelAuction:
		err = s.handleSettle(req, resp, s.engine.Cancel)
	case escrowapi.TypeCloseAuction:
		err = s.handleSettle(req, resp, s.engine.Close)
	case escrowapi.TypeClaim:
		err = s.handleClaim(req, resp)
	case escrowapi.TypeGetCredit:
		err = s.handleGetCredit(req, resp)
	case escrowapi.TypeGetAuction:
		err = s.handleGetAuction(req, resp)
	case escrowapi.TypeGetStake:
		err = s.handleGetStake(req, resp)
	case escrowapi.TypePoolBalance:
		resp.Amount = s.engine.PoolBalance().String()
	case escrowapi.TypeAuctionsOf:
		err = s.handleAuctionsOf(req, resp)
	case escrowapi.TypeStandings:
		err = s.handleStandings(req, resp)
	case escrowapi.TypePublicKey:
		err = s.handlePublicKey(resp)
	default:
		resp.Type = "error"
		resp.Message = fmt.Sprintf("Unknown request type: %s", req.Type)
		resp.ErrorKind = string(core.KindValidation)
		resp.ErrorCode = CodeUnknownType
		resp.ProcessingTime = time.Since(start).Milliseconds()
		return resp
	}

	if err != nil {
		fillError(resp, err)
		s.log.Info("request rejected", "type", req.Type, "request_id", req.RequestID, "code", resp.ErrorCode, "err", err)
	} else {
		resp.Success = true
		if resp.Message == "" {
			resp.Message = "ok"
		}
	}
	resp.ProcessingTime = time.Since(start).Milliseconds()
	return resp
}

func fillError(resp *escrowapi.Response, err error) {
	resp.Success = false
	resp.Message = err.Error()
	switch {
	case errors.Is(err, errBadRequest):
		resp.ErrorKind = string(core.KindValidation)
		resp.ErrorCode = CodeBadRequest
	case core.KindOf(err) != "":
		resp.ErrorKind = string(core.KindOf(err))
		resp.ErrorCode = core.CodeOf(err)
	default:
		resp.ErrorKind = string(core.KindIntegrity)
		resp.ErrorCode = CodeReceiptFailure
	}
}

func (s *Server) handleCreate(req *escrowapi.Request, resp *escrowapi.Response) error {
	seller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return err
	}
	startPrice, err := parseAmount("start_price", req.StartPrice)
	if err != nil {
		return err
	}
	if req.DurationSeconds < 0 {
		return fmt.Errorf("%w: duration_seconds must not be negative", errBadRequest)
	}
	if req.DurationSeconds > maxDurationSeconds {
		return fmt.Errorf("%w: duration_seconds must not exceed %d", errBadRequest, maxDurationSeconds)
	}
	id, err := s.engine.Create(seller, core.AssetID(req.AssetID), startPrice, time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		return err
	}
	resp.AuctionID = id.String()
	resp.Auction, err = s.engine.GetAuctionByID(id)
	return err
}

func (s *Server) handleBid(req *escrowapi.Request, resp *escrowapi.Response) error {
	bidder, err := parseAddress("caller", req.Caller)
	if err != nil {
		return err
	}
	id, err := s.resolveAuction(req)
	if err != nil {
		return err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return err
	}
	result, err := s.engine.Bid(id, bidder, amount)
	if err != nil {
		return err
	}
	resp.AuctionID = id.String()
	resp.Bid = result
	return nil
}

func (s *Server) handleWithdraw(req *escrowapi.Request, resp *escrowapi.Response) error {
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return err
	}
	id, err := s.resolveAuction(req)
	if err != nil {
		return err
	}
	refund, err := s.engine.Withdraw(id, caller)
	if err != nil {
		return err
	}
	resp.AuctionID = id.String()
	resp.Amount = refund.String()
	return nil
}

func (s *Server) handleClaim(req *escrowapi.Request, resp *escrowapi.Response) error {
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return err
	}
	claimed, err := s.engine.Claim(caller)
	if err != nil {
		return err
	}
	resp.Amount = claimed.String()
	return nil
}

func (s *Server) handleGetCredit(req *escrowapi.Request, resp *escrowapi.Response) error {
	account, err := parseAddress("account", req.Account)
	if err != nil {
		return err
	}
	resp.Amount = s.engine.CreditOf(account).String()
	return nil
}

// handleSettle runs a cancel or close and attaches the signed receipt. A signing failure
// is reported, but the settlement itself has already happened.
func (s *Server) handleSettle(req *escrowapi.Request, resp *escrowapi.Response, settle func(core.AuctionID, core.Address) (*core.Settlement, error)) error {
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		return err
	}
	id, err := s.resolveAuction(req)
	if err != nil {
		return err
	}
	settlement, err := settle(id, caller)
	if err != nil {
		return err
	}
	resp.AuctionID = id.String()
	resp.Settlement = settlement

	raw, payload, err := s.signer.Sign(settlement, s.engine.FeeRate())
	if err != nil {
		s.log.Error("failed to sign settlement receipt", "auction", id, "err", err)
		resp.Message = fmt.Sprintf("settled, but receipt signing failed: %v", err)
		return nil
	}
	resp.Receipt = raw.EncodeBase64()
	s.log.Info("settlement receipt signed", "auction", id, "outcome", payload.Outcome, "hash", payload.SettlementHash)
	return nil
}

func (s *Server) handleGetAuction(req *escrowapi.Request, resp *escrowapi.Response) error {
	var (
		auction *core.Auction
		err     error
	)
	if req.AuctionID != "" {
		id, perr := parseAuctionID(req.AuctionID)
		if perr != nil {
			return perr
		}
		auction, err = s.engine.GetAuctionByID(id)
	} else {
		auction, err = s.engine.GetAuction(core.AssetID(req.AssetID))
	}
	if err != nil {
		return err
	}
	resp.AuctionID = auction.ID.String()
	resp.Auction = auction
	return nil
}

func (s *Server) handleGetStake(req *escrowapi.Request, resp *escrowapi.Response) error {
	account, err := parseAddress("account", req.Account)
	if err != nil {
		return err
	}
	if req.AuctionID != "" {
		id, err := parseAuctionID(req.AuctionID)
		if err != nil {
			return err
		}
		resp.AuctionID = req.AuctionID
		resp.Amount = s.engine.StakeOf(id, account).String()
		return nil
	}
	resp.Amount = s.engine.StakeOfAsset(core.AssetID(req.AssetID), account).String()
	return nil
}

func (s *Server) handleAuctionsOf(req *escrowapi.Request, resp *escrowapi.Response) error {
	account, err := parseAddress("account", req.Account)
	if err != nil {
		return err
	}
	resp.AssetIDs = s.engine.AuctionsOf(account)
	if resp.AssetIDs == nil {
		resp.AssetIDs = []core.AssetID{}
	}
	return nil
}

func (s *Server) handleStandings(req *escrowapi.Request, resp *escrowapi.Response) error {
	id, err := s.resolveAuction(req)
	if err != nil {
		return err
	}
	standings, err := s.engine.Standings(id)
	if err != nil {
		return err
	}
	resp.AuctionID = id.String()
	resp.Standings = standings
	return nil
}

func (s *Server) handlePublicKey(resp *escrowapi.Response) error {
	key, err := s.signer.KeyResponse()
	if err != nil {
		return err
	}
	resp.PublicKey = key.PublicKey
	resp.Message = key.COSEAlgorithm
	return nil
}

// resolveAuction reads auction_id, falling back to the live auction of asset_id.
func (s *Server) resolveAuction(req *escrowapi.Request) (core.AuctionID, error) {
	if req.AuctionID != "" {
		return parseAuctionID(req.AuctionID)
	}
	auction, err := s.engine.GetAuction(core.AssetID(req.AssetID))
	if err != nil {
		return uuid.Nil, err
	}
	return auction.ID, nil
}

func parseAddress(field, value string) (core.Address, error) {
	if !common.IsHexAddress(value) {
		return core.Address{}, fmt.Errorf("%w: %s %q is not a hex address", errBadRequest, field, value)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a decimal", errBadRequest, field, value)
	}
	return d, nil
}

func parseAuctionID(value string) (core.AuctionID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: auction_id %q is not a uuid", errBadRequest, value)
	}
	return id, nil
}
