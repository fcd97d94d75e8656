package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayClient implements Provider against the payment gateway's REST API.
// Amounts are sent as fixed-point strings (KWD has three decimal places).
type GatewayClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type gatewayHoldRequest struct {
	PrincipalID string `json:"principal_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type gatewayHoldResponse struct {
	Ref    string `json:"ref"`
	Status string `json:"status"`
}

func (g *GatewayClient) Hold(ctx context.Context, principalID uuid.UUID, amount decimal.Decimal) (string, error) {
	body := gatewayHoldRequest{
		PrincipalID: principalID.String(),
		Amount:      amount.StringFixed(3),
		Currency:    "KWD",
	}
	var out gatewayHoldResponse
	if err := g.post(ctx, "/v1/holds", body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHoldDeclined, err)
	}
	if out.Ref == "" {
		return "", fmt.Errorf("%w: gateway returned no hold ref", ErrHoldDeclined)
	}
	return out.Ref, nil
}

func (g *GatewayClient) Capture(ctx context.Context, ref string) error {
	return g.post(ctx, "/v1/holds/"+ref+"/capture", nil, nil)
}

func (g *GatewayClient) Release(ctx context.Context, ref string) error {
	return g.post(ctx, "/v1/holds/"+ref+"/release", nil, nil)
}

func (g *GatewayClient) post(ctx context.Context, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway request failed: status %d", resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
