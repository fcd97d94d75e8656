package emails

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailLayout_WrapsContent(t *testing.T) {
	html := EmailLayout("<h1>Hello</h1>")
	assert.Contains(t, html, "<h1>Hello</h1>")
	assert.Contains(t, html, "ELHODHOD")
	assert.Contains(t, html, "support@elhodhod.com")
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "Steel &amp; Rebar &lt;lot&gt;", EscapeHTML(`Steel & Rebar <lot>`))
	assert.Equal(t, "&quot;quoted&quot;", EscapeHTML(`"quoted"`))
}

func TestBrevoClient_NoOpWithoutKey(t *testing.T) {
	c := &BrevoClient{}
	ctx := context.Background()
	require.NoError(t, c.SendOutbid(ctx, "a@b.com", "A", "Crane hire", "150.000"))
	require.NoError(t, c.SendEndingSoon(ctx, "a@b.com", "A", "Crane hire", 5, "140.000"))
	require.NoError(t, c.SendAuctionWon(ctx, "a@b.com", "A", "Crane hire", "150.000"))
}

func TestOutbidContent_EscapesTitle(t *testing.T) {
	content := outbidContent("Ali", `Cement <50 bags> & pallets`, "75.000")
	assert.Contains(t, content, "Cement &lt;50 bags&gt; &amp; pallets")
	assert.Contains(t, content, "75.000")
	assert.NotContains(t, content, "<50 bags>")
}
