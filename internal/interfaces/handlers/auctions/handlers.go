package auctions

import (
	"errors"
	"time"

	auctionsvc "hodhod-backend/internal/application/auctions"
	"hodhod-backend/internal/application/queries"
	"hodhod-backend/internal/middleware"
	"hodhod-backend/internal/pkg/auctionerrors"
	"hodhod-backend/internal/pkg/response"
	"hodhod-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *auctionsvc.Service
	Queries *queries.Service
}

// CreateAuctionRequest is the POST /create-auction body.
type CreateAuctionRequest struct {
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	StartPrice           decimal.Decimal  `json:"start_price"`
	MinIncrement         decimal.Decimal  `json:"min_increment"`
	ReservePrice         *decimal.Decimal `json:"reserve_price"`
	BuyNowPrice          *decimal.Decimal `json:"buy_now_price"`
	StartsAt             time.Time        `json:"starts_at"`
	EndsAt               time.Time        `json:"ends_at"`
	AntiSniping          bool             `json:"anti_sniping"`
	ExtendByMinutes      int              `json:"extend_by_minutes"`
	TriggerWindowMinutes int              `json:"trigger_window_minutes"`
	RequireDeposit       bool             `json:"require_deposit"`
	DepositAmount        decimal.Decimal  `json:"deposit_amount"`
}

// POST /api/v1/auctions/create-auction
func (h *Handlers) CreateAuction(c *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req CreateAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	params := validation.AuctionParams{
		StartPrice:           req.StartPrice,
		MinIncrement:         req.MinIncrement,
		StartsAt:             req.StartsAt,
		EndsAt:               req.EndsAt,
		AntiSniping:          req.AntiSniping,
		ExtendByMinutes:      req.ExtendByMinutes,
		TriggerWindowMinutes: req.TriggerWindowMinutes,
		RequireDeposit:       req.RequireDeposit,
		DepositAmount:        req.DepositAmount,
	}
	if req.ReservePrice != nil {
		params.ReservePrice = decimal.NewNullDecimal(*req.ReservePrice)
	}
	if req.BuyNowPrice != nil {
		params.BuyNowPrice = decimal.NewNullDecimal(*req.BuyNowPrice)
	}

	auction, err := h.Service.Create(c.Context(), principal.UserID, auctionsvc.CreateAuctionInput{
		Title:       req.Title,
		Description: req.Description,
		Params:      params,
	})
	if err != nil {
		var vErr *validation.Error
		if errors.As(err, &vErr) {
			return response.Error(c, vErr.Error(), fiber.StatusBadRequest, nil)
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Auction created successfully", auction, nil)
}

// PlaceBidRequest is the POST /place-bid body.
type PlaceBidRequest struct {
	AuctionID string          `json:"auction_id"`
	Amount    decimal.Decimal `json:"amount"`
	IsBuyNow  bool            `json:"is_buy_now"`
}

// POST /api/v1/auctions/place-bid
func (h *Handlers) PlaceBid(c *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req PlaceBidRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		return response.Error(c, "Invalid auction_id format", fiber.StatusBadRequest, nil)
	}

	bid, err := h.Service.PlaceBid(c.Context(), auctionID, principal.UserID, req.Amount, req.IsBuyNow)
	if err != nil {
		return bidError(c, err)
	}
	return response.SuccessCreated(c, "Bid placed successfully", bid, nil)
}

// CancelAuctionRequest is the POST /cancel-auction body.
type CancelAuctionRequest struct {
	AuctionID string `json:"auction_id"`
}

// POST /api/v1/auctions/cancel-auction
func (h *Handlers) CancelAuction(c *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req CancelAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		return response.Error(c, "Invalid auction_id format", fiber.StatusBadRequest, nil)
	}

	if err := h.Service.Cancel(c.Context(), auctionID, principal.UserID, principal.Role); err != nil {
		switch {
		case errors.Is(err, auctionerrors.ErrAuctionNotFound):
			return response.NotFound(c, err.Error())
		case errors.Is(err, auctionerrors.ErrNotSeller):
			return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
		case errors.Is(err, auctionerrors.ErrCancellationNotAllowed):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "Auction cancelled successfully", nil, nil)
}

// POST /api/v1/auctions/close-auction — admin retry/settle hook; the sweeper
// normally drives closing.
func (h *Handlers) CloseAuction(c *fiber.Ctx) error {
	var req CancelAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	auctionID, err := uuid.Parse(req.AuctionID)
	if err != nil {
		return response.Error(c, "Invalid auction_id format", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Close(c.Context(), auctionID); err != nil {
		switch {
		case errors.Is(err, auctionerrors.ErrAuctionNotFound):
			return response.NotFound(c, err.Error())
		case errors.Is(err, auctionerrors.ErrAuctionNotEnded):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "Auction closed successfully", nil, nil)
}

// GET /api/v1/auctions/get-auction/:auction_id
func (h *Handlers) GetAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("auction_id"))
	if err != nil {
		return response.Error(c, "Invalid auction_id format", fiber.StatusBadRequest, nil)
	}
	summary, err := h.Queries.GetSummary(c.Context(), auctionID)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Auction fetched successfully", summary, nil)
}

// GET /api/v1/auctions/get-auction-bids/:auction_id?page=&page_size=
func (h *Handlers) GetAuctionBids(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("auction_id"))
	if err != nil {
		return response.Error(c, "Invalid auction_id format", fiber.StatusBadRequest, nil)
	}
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	history, err := h.Queries.GetHistory(c.Context(), auctionID, page, pageSize)
	if err != nil {
		if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Auction bids fetched successfully", history, nil)
}

// GET /api/v1/auctions/get-all-active-auctions
func (h *Handlers) GetAllActiveAuctions(c *fiber.Ctx) error {
	auctions, err := h.Queries.GetAllActive(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Active auctions fetched successfully", auctions, nil)
}

// GET /api/v1/auctions/get-seller-auctions
func (h *Handlers) GetSellerAuctions(c *fiber.Ctx) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	auctions, err := h.Queries.GetSellerAuctions(c.Context(), principal.UserID)
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Seller auctions fetched successfully", auctions, nil)
}

// bidError maps state-machine rejections to HTTP responses. A BidTooLow
// rejection always reports the authoritative minimum so the UI can re-offer a
// valid amount immediately.
func bidError(c *fiber.Ctx, err error) error {
	if btl, ok := auctionerrors.AsBidTooLow(err); ok {
		return response.Error(c, btl.Error(), fiber.StatusBadRequest, fiber.Map{
			"min_acceptable": btl.MinAcceptable,
		})
	}
	var vErr *validation.Error
	if errors.As(err, &vErr) {
		return response.Error(c, vErr.Error(), fiber.StatusBadRequest, nil)
	}
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, auctionerrors.ErrAuctionClosed),
		errors.Is(err, auctionerrors.ErrSelfBid),
		errors.Is(err, auctionerrors.ErrDepositRequired):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, auctionerrors.ErrConcurrencyConflict):
		// Exhausted internal retries; the client may simply resubmit.
		return response.Error(c, "Auction is busy, please retry", fiber.StatusConflict, nil)
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
