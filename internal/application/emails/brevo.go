package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender sends transactional bidder emails. Nil = no-op.
type Sender interface {
	SendOutbid(ctx context.Context, toEmail, name, auctionTitle, minAcceptable string) error
	SendEndingSoon(ctx context.Context, toEmail, name, auctionTitle string, minutesLeft int, currentPrice string) error
	SendAuctionWon(ctx context.Context, toEmail, name, auctionTitle, finalPrice string) error
}

// BrevoClient sends emails via Brevo (Sendinblue) API. Configured through
// SENDINBLUE_API_KEY and MAIL_FROM; an empty key disables sending entirely.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@elhodhod.com"
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "ElHodhod"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@elhodhod.com", Name: "ElHodhod Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendOutbid notifies the previous top bidder that someone beat their bid.
func (c *BrevoClient) SendOutbid(ctx context.Context, toEmail, name, auctionTitle, minAcceptable string) error {
	if c.APIKey == "" {
		return nil
	}
	if name == "" {
		name = "there"
	}
	content := outbidContent(name, auctionTitle, minAcceptable)
	return c.send(ctx, toEmail, "You've been outbid on "+auctionTitle, EmailLayout(content))
}

// SendEndingSoon reminds the current top bidder that the auction deadline is near.
func (c *BrevoClient) SendEndingSoon(ctx context.Context, toEmail, name, auctionTitle string, minutesLeft int, currentPrice string) error {
	if c.APIKey == "" {
		return nil
	}
	if name == "" {
		name = "there"
	}
	content := endingSoonContent(name, auctionTitle, minutesLeft, currentPrice)
	subject := fmt.Sprintf("Ending soon: %s closes in %d minutes", auctionTitle, minutesLeft)
	return c.send(ctx, toEmail, subject, EmailLayout(content))
}

// SendAuctionWon congratulates the winning bidder after the auction closes sold.
func (c *BrevoClient) SendAuctionWon(ctx context.Context, toEmail, name, auctionTitle, finalPrice string) error {
	if c.APIKey == "" {
		return nil
	}
	if name == "" {
		name = "there"
	}
	content := wonContent(name, auctionTitle, finalPrice)
	return c.send(ctx, toEmail, "You won the auction: "+auctionTitle, EmailLayout(content))
}

func outbidContent(name, auctionTitle, minAcceptable string) string {
	return fmt.Sprintf(`
    <h1>You've Been Outbid</h1>
    <p>Hi %s,</p>
    <p>Another bidder has taken the lead on <strong>%s</strong>. To get back in the running you need to bid at least <strong>%s KWD</strong>.</p>
    <center>
      <a href="https://elhodhod.com/auctions" class="hh-button">Place a New Bid</a>
    </center>
    <p>The auction stays open until its deadline, so there is still time.</p>
`, EscapeHTML(name), EscapeHTML(auctionTitle), EscapeHTML(minAcceptable))
}

func endingSoonContent(name, auctionTitle string, minutesLeft int, currentPrice string) string {
	return fmt.Sprintf(`
    <h1>Auction Ending Soon</h1>
    <p>Hi %s,</p>
    <p><strong>%s</strong> closes in about <strong>%d minutes</strong>. You are currently the highest bidder at <strong>%s KWD</strong>.</p>
    <center>
      <a href="https://elhodhod.com/auctions" class="hh-button">View the Auction</a>
    </center>
    <p>If someone outbids you near the deadline, the closing time may extend to give you a fair chance to respond.</p>
`, EscapeHTML(name), EscapeHTML(auctionTitle), minutesLeft, EscapeHTML(currentPrice))
}

func wonContent(name, auctionTitle, finalPrice string) string {
	return fmt.Sprintf(`
    <h1>Congratulations, You Won!</h1>
    <p>Hi %s,</p>
    <p>Your bid of <strong>%s KWD</strong> won the auction <strong>%s</strong>. Your deposit has been applied and the seller will be in touch to arrange delivery.</p>
    <center>
      <a href="https://elhodhod.com/account" class="hh-button">View Your Orders</a>
    </center>
    <p>Thank you for trading on ElHodhod.</p>
`, EscapeHTML(name), EscapeHTML(finalPrice), EscapeHTML(auctionTitle))
}
