package emails

import (
	"fmt"
	"html"
	"time"
)

const (
	themePrimary   = "#2F6B3A"
	themeTextMain  = "#1F2937"
	themeTextMuted = "#6B7280"
	themeBgBody    = "#F5F3EE"
	themeWhite     = "#FFFFFF"
	supportEmail   = "support@soilofafrica.org"
)

// EmailLayout wraps content in the branded HTML shell.
func EmailLayout(contentHTML string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Soil of Africa</title>
  <style>
    body { margin: 0; padding: 0; background-color: %[1]s; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; color: %[2]s; }
    .content-body p { margin: 0 0 20px 0; font-size: 16px; line-height: 1.6; }
    .content-body h1 { font-size: 22px; margin: 0 0 18px 0; }
    .soa-button { display: inline-block; background-color: %[3]s; color: #ffffff !important; padding: 12px 28px; text-decoration: none; border-radius: 6px; font-weight: 600; }
    .soa-code { display: inline-block; font-family: 'SFMono-Regular', Menlo, monospace; font-size: 22px; letter-spacing: 3px; padding: 10px 18px; border: 2px dashed %[3]s; border-radius: 6px; }
    .footer-text { color: %[4]s; font-size: 13px; }
  </style>
</head>
<body>
  <table role="presentation" width="100%%" cellspacing="0" cellpadding="0" style="background-color: %[1]s;">
    <tr>
      <td align="center" style="padding: 32px 0;">
        <table role="presentation" width="600" cellspacing="0" cellpadding="0" style="width: 600px; background-color: %[5]s; border-radius: 8px;">
          <tr><td class="content-body" style="padding: 40px 48px 24px 48px;">%[6]s</td></tr>
          <tr>
            <td align="center" style="padding: 0 48px 32px 48px;">
              <p class="footer-text">Questions? Contact <a href="mailto:%[7]s" style="color: %[3]s;">%[7]s</a></p>
              <p class="footer-text">&copy; %[8]d Soil of Africa</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`,
		themeBgBody, themeTextMain, themePrimary, themeTextMuted, themeWhite, contentHTML, supportEmail, time.Now().Year())
}

// EscapeHTML escapes HTML specials for safe interpolation.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
