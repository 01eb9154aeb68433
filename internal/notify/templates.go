package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"payminder/internal/core"
)

type emailData struct {
	Name        string
	Amount      string
	DueDate     string
	PaymentDate string
	Remark      string
	Company     string
}

type emailTemplate struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func mustTemplate(name, subject, text, html string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New(name + "_subject").Parse(subject)),
		text:    texttemplate.Must(texttemplate.New(name + "_text").Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name + "_html").Parse(html)),
	}
}

var templates = map[core.NotificationKind]emailTemplate{
	core.NotifyReminder: mustTemplate("reminder",
		`Payment Reminder - {{.Amount}} due on {{.DueDate}}`,
		`Dear {{.Name}},

This is a friendly reminder that a payment of {{.Amount}} is due on {{.DueDate}}.

Please ensure timely payment to avoid any inconvenience.

If you have already made the payment, please disregard this message.

Best regards,
{{.Company}}
`,
		`<html>
<body>
  <p>Dear {{.Name}},</p>
  <p>This is a friendly reminder that a payment of <strong>{{.Amount}}</strong> is due on <strong>{{.DueDate}}</strong>.</p>
  <p>Please ensure timely payment to avoid any inconvenience.</p>
  <p>If you have already made the payment, please disregard this message.</p>
  <p>Best regards,<br>{{.Company}}</p>
</body>
</html>
`),
	core.NotifyConfirmation: mustTemplate("confirmation",
		`Payment Confirmation - {{.Amount}} received`,
		`Dear {{.Name}},

We have received your payment of {{.Amount}} on {{.PaymentDate}}.

Thank you for your prompt payment.

Best regards,
{{.Company}}
`,
		`<html>
<body>
  <p>Dear {{.Name}},</p>
  <p>We have received your payment of <strong>{{.Amount}}</strong> on <strong>{{.PaymentDate}}</strong>.</p>
  <p>Thank you for your prompt payment.</p>
  <p>Best regards,<br>{{.Company}}</p>
</body>
</html>
`),
	core.NotifyReschedule: mustTemplate("reschedule",
		`Payment Rescheduled - {{.Amount}} now due on {{.DueDate}}`,
		`Dear {{.Name}},

Your payment of {{.Amount}} has been rescheduled and is now due on {{.DueDate}}.
{{if .Remark}}
Note: {{.Remark}}
{{end}}
Best regards,
{{.Company}}
`,
		`<html>
<body>
  <p>Dear {{.Name}},</p>
  <p>Your payment of <strong>{{.Amount}}</strong> has been rescheduled and is now due on <strong>{{.DueDate}}</strong>.</p>
  {{if .Remark}}<p>Note: {{.Remark}}</p>{{end}}
  <p>Best regards,<br>{{.Company}}</p>
</body>
</html>
`),
}

// FormatMoney renders an amount the way emails show it: "$1234.50".
func FormatMoney(d decimal.Decimal) string {
	return "$" + core.FormatAmount(d)
}

// Render builds the email of kind for a payment. amount is the figure the
// message talks about: the outstanding balance for reminders and
// reschedules, the amount received for confirmations.
func Render(kind core.NotificationKind, p core.PaymentRecord, amount decimal.Decimal, paidOn core.Date, remark, company string) (Message, error) {
	tpl, ok := templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("no email template for %q", kind)
	}
	data := emailData{
		Name:        p.Name,
		Amount:      FormatMoney(amount),
		DueDate:     p.DueDate.String(),
		PaymentDate: paidOn.String(),
		Remark:      remark,
		Company:     company,
	}

	var subject, text, html bytes.Buffer
	if err := tpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := tpl.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := tpl.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", kind, err)
	}

	return Message{
		Recipient: strings.TrimSpace(p.Email),
		Subject:   subject.String(),
		Text:      text.String(),
		HTML:      html.String(),
	}, nil
}
