package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hodhod-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookHandler reconciles asynchronous deposit-hold notifications from the
// payment gateway (e.g. a hold expired or was voided on the gateway side).
// Mounted before the session middleware: raw body + signature header only.
type WebhookHandler struct {
	DB            *gorm.DB
	WebhookSecret string
}

type gatewayEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type holdObject struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

// HandleWebhook POST /api/v1/payments/webhook — raw body, signature verification, then process.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get("Gateway-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Payment webhook received empty body (ensure no global body parser consumes the webhook body)")
		return c.Status(400).SendString("Webhook Error: empty body")
	}

	if err := verifyGatewaySignature(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("Payment webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event gatewayEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("Payment webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	switch event.Type {
	case "hold.released", "hold.voided":
		var obj holdObject
		if err := json.Unmarshal(event.Data.Object, &obj); err != nil {
			return c.Status(200).SendString("ok")
		}
		// Domain errors still answer 200 to stop gateway retries.
		if err := wh.handleHoldReleased(obj, event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Payment webhook processing failed")
		}
	}

	return c.Status(200).SendString("ok")
}

// handleHoldReleased marks a still-held deposit released when the gateway
// freed the funds on its side. Already-terminal holds are left untouched,
// which makes redelivered events no-ops.
func (wh *WebhookHandler) handleHoldReleased(obj holdObject, event gatewayEvent) error {
	if obj.Ref == "" {
		return nil
	}
	return wh.DB.Transaction(func(tx *gorm.DB) error {
		var hold domain.DepositHold
		if err := tx.Where("provider_ref = ?", obj.Ref).First(&hold).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // not ours, skip silently
			}
			return err
		}
		if hold.State != domain.DepositHeld {
			return nil // already settled locally
		}
		if err := tx.Model(&hold).Update("state", domain.DepositReleased).Error; err != nil {
			return err
		}

		eventData, _ := json.Marshal(map[string]interface{}{
			"gateway_event_id": event.ID,
			"gateway_type":     event.Type,
			"provider_ref":     obj.Ref,
			"bidder_id":        hold.BidderID,
		})
		return tx.Create(&domain.AuctionEvent{
			AuctionID: hold.AuctionID,
			EventType: "DEPOSIT_RELEASED_BY_GATEWAY",
			EventData: datatypes.JSON(eventData),
		}).Error
	})
}

func verifyGatewaySignature(payload []byte, sigHeader, secret string) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string

	parts := strings.Split(sigHeader, ",")
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	signedPayload := timestamp + "." + string(payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expectedSig)) {
			// Check tolerance (5 minutes)
			ts, err := strconv.ParseInt(timestamp, 10, 64)
			if err != nil {
				return errors.New("invalid timestamp")
			}
			diff := time.Now().Unix() - ts
			if diff < 0 {
				diff = -diff
			}
			if diff > 300 {
				return errors.New("timestamp too old")
			}
			return nil
		}
	}
	return errors.New("signature mismatch")
}
