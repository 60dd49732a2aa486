package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/pkg/i18n"
)

type message struct {
	subject string
	html    string
	text    string
}

// resourcePaths maps notification resource types to dashboard routes.
var resourcePaths = map[string]string{
	"alert":            "alerts",
	"str_case":         "str-cases",
	"screening_result": "screening",
	"kyc_request":      "kyc-requests",
	"policy":           "policies",
	"risk_assessment":  "risk-assessments",
}

func resourceLink(base, resourceType string, id uuid.UUID) string {
	path, ok := resourcePaths[resourceType]
	if !ok {
		return strings.TrimRight(base, "/")
	}
	return fmt.Sprintf("%s/%s?id=%s", strings.TrimRight(base, "/"), path, id)
}

func kycLinkMessage(name, link string, locale i18n.Locale, expiresAt time.Time) message {
	expires := expiresAt.UTC().Format("2006-01-02 15:04 UTC")
	if locale == i18n.Arabic {
		heading := "أكمل نموذج اعرف عميلك"
		if name != "" {
			heading = fmt.Sprintf("مرحباً %s", name)
		}
		body := "يرجى استكمال بيانات التحقق من الهوية عبر الرابط أدناه. يمكن استخدام الرابط مرة واحدة فقط."
		note := fmt.Sprintf("ينتهي الرابط في %s", expires)
		return message{
			subject: "استكمال بيانات اعرف عميلك",
			html:    layout("rtl", "ar", heading, body, button(link, "فتح النموذج"), note),
			text:    fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s", heading, body, link, note),
		}
	}

	heading := "Complete your KYC form"
	if name != "" {
		heading = fmt.Sprintf("Hello %s", name)
	}
	body := "Please complete your identity verification using the link below. The link can be used once."
	note := fmt.Sprintf("The link expires on %s.", expires)
	return message{
		subject: "Complete your KYC verification",
		html:    layout("ltr", "en", heading, body, button(link, "Open form"), note),
		text:    fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s", heading, body, link, note),
	}
}

func escalationMessage(n *entities.Notification, link string) message {
	subject := n.Title
	if n.TitleAR != "" {
		subject = fmt.Sprintf("%s | %s", n.Title, n.TitleAR)
	}
	cta := ""
	if link != "" {
		cta = button(link, "Open in dashboard / فتح في لوحة التحكم")
	}

	en := layoutBlock("ltr", n.Title, n.Message)
	ar := ""
	if n.TitleAR != "" || n.MessageAR != "" {
		ar = layoutBlock("rtl", n.TitleAR, n.MessageAR)
	}

	text := fmt.Sprintf("%s\n\n%s", n.Title, n.Message)
	if ar != "" {
		text += fmt.Sprintf("\n\n%s\n\n%s", n.TitleAR, n.MessageAR)
	}
	if link != "" {
		text += "\n\n" + link
	}
	return message{
		subject: "[AML] " + subject,
		html:    page("ltr", "en", en+ar+cta),
		text:    text,
	}
}

func button(link, label string) string {
	return fmt.Sprintf(`<p style="margin:24px 0;"><a href="%s" style="background-color:#0f766e;color:#ffffff;padding:12px 20px;border-radius:8px;text-decoration:none;font-weight:600;">%s</a></p>`,
		html.EscapeString(link), html.EscapeString(label))
}

func layoutBlock(dir, heading, body string) string {
	return fmt.Sprintf(`<div dir="%s" style="margin:0 0 24px 0;"><p style="font-size:20px;font-weight:600;color:#0f172a;margin:0 0 12px 0;">%s</p><p style="font-size:15px;color:#334155;margin:0;line-height:1.6;">%s</p></div>`,
		dir, html.EscapeString(heading), html.EscapeString(body))
}

func layout(dir, lang, heading, body, cta, note string) string {
	content := layoutBlock(dir, heading, body) + cta +
		fmt.Sprintf(`<p dir="%s" style="font-size:12px;color:#64748b;margin:0;">%s</p>`, dir, html.EscapeString(note))
	return page(dir, lang, content)
}

func page(dir, lang, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="%s" dir="%s"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1.0"></head>
<body style="margin:0;padding:0;background-color:#f1f5f9;font-family:Tahoma,Helvetica,Arial,sans-serif;">
<table width="100%%" cellpadding="0" cellspacing="0" style="padding:32px 16px;"><tr><td align="center">
<table width="520" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:12px;"><tr><td style="padding:32px;">
%s
</td></tr></table>
</td></tr></table>
</body></html>`, lang, dir, content)
}
