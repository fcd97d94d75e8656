package emails

import (
	"fmt"
	"strings"
	"time"
)

// Brand colours shared with the status dashboard.
const (
	themePrimary   = "#C8A24B"
	themeTextMain  = "#1F2937"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F6F4EF"
	themeWhite     = "#FFFFFF"
)

// EmailLayout wraps content in the shared transactional email shell.
func EmailLayout(contentHTML string) string {
	year := time.Now().Year()
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>ElHodhod</title>
  <style>
    body { margin: 0; padding: 0; width: 100%% !important; background-color: %s; }
    table { border-collapse: collapse; }
    body, td, p, a, li { font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: %s; }
    .content-body p { margin: 0 0 24px 0; font-size: 16px; line-height: 1.6; color: #374151; }
    .content-body h1 { color: #111827; font-size: 24px; margin: 0 0 20px 0; font-weight: 700; }
    .content-body a { color: %s; font-weight: 600; text-decoration: none; }
    .hh-button { display: inline-block; background-color: %s; color: #1a1408 !important; padding: 12px 32px; text-decoration: none !important; border-radius: 6px; font-weight: 600; font-size: 15px; margin: 10px 0; }
    .footer-text { color: %s; font-size: 13px; line-height: 1.5; }
  </style>
</head>
<body style="margin: 0; padding: 0; background-color: %s;">
  <table role="presentation" width="100%%" border="0" cellspacing="0" cellpadding="0" style="background-color: %s;">
    <tr>
      <td align="center" style="padding: 40px 0;">
        <table role="presentation" width="600" border="0" cellspacing="0" cellpadding="0" style="width: 600px; background-color: %s; border-radius: 8px; overflow: hidden;">
          <tr>
            <td align="center" style="padding: 44px 0 28px 0;">
              <a href="https://elhodhod.com" style="font-size: 22px; font-weight: 800; letter-spacing: 4px; color: %s; text-decoration: none;">ELHODHOD</a>
            </td>
          </tr>
          <tr>
            <td class="content-body" style="padding: 0 48px 30px 48px;">%s</td>
          </tr>
          <tr>
            <td style="padding: 0 48px;"><div style="height: 1px; background-color: #E5E7EB;"></div></td>
          </tr>
          <tr>
            <td align="center" style="padding: 28px 48px 36px 48px;">
              <p class="footer-text" style="margin: 0 0 10px 0;">Need help? Contact <a href="mailto:support@elhodhod.com" style="color: %s;">support@elhodhod.com</a></p>
              <p class="footer-text" style="margin: 0;">© %d ElHodhod, Kuwait. All rights reserved.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		themeBgBody, themeTextMain, themePrimary, themePrimary, themeTextMuted,
		themeBgBody, themeBgBody, themeWhite, themePrimary, contentHTML, themePrimary, year)
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
