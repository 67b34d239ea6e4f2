package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"
)

const receiptHTMLTemplate = `<!doctype html>
<html lang="ja">
<head>
  <meta charset="utf-8" />
  <title>Parking Receipt {{.Session.Token}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 24px;
      font-family: "Helvetica Neue", Arial, sans-serif;
      color: #111827;
      background: #ffffff;
    }
    .receipt {
      max-width: 420px;
      margin: 0 auto;
      border: 1px solid #e5e7eb;
      padding: 24px;
    }
    .header {
      border-bottom: 2px solid #111827;
      padding-bottom: 12px;
      margin-bottom: 16px;
    }
    .header .address {
      color: #6b7280;
      font-size: 12px;
    }
    .label {
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.04em;
      font-size: 11px;
    }
    table {
      width: 100%;
      border-collapse: collapse;
      font-size: 14px;
    }
    td {
      padding: 6px 0;
    }
    td.value {
      text-align: right;
    }
    .total {
      border-top: 1px solid #e5e7eb;
      margin-top: 12px;
      padding-top: 12px;
      display: flex;
      justify-content: space-between;
      font-size: 18px;
    }
    .footer {
      margin-top: 16px;
      font-size: 11px;
      color: #6b7280;
      text-align: center;
    }
  </style>
</head>
<body>
  <div class="receipt">
    <div class="header">
      <div><strong>{{.Lot.Name}}</strong></div>
      {{if .Lot.Address}}<div class="address">{{.Lot.Address}}</div>{{end}}
    </div>

    <table>
      <tr><td class="label">Space</td><td class="value">No. {{.Session.SpaceNumber}}</td></tr>
      <tr><td class="label">Entry</td><td class="value">{{formatTime .Session.EntryTime .Session.Location}}</td></tr>
      <tr><td class="label">Exit</td><td class="value">{{formatTime .Session.ExitTime .Session.Location}}</td></tr>
      <tr><td class="label">Duration</td><td class="value">{{formatDuration .Payment.DurationMinutes}}</td></tr>
      <tr><td class="label">Method</td><td class="value">{{formatMethod .Payment.Method .Payment.Provider}}</td></tr>
      <tr><td class="label">Status</td><td class="value">{{.Payment.Status}}</td></tr>
    </table>

    <div class="total">
      <span>Total</span>
      <strong>{{formatYen .Payment.Amount}}</strong>
    </div>

    <div class="footer">
      <div>Receipt {{.Session.Token}}</div>
      <div>Thank you for parking with us.</div>
    </div>
  </div>
</body>
</html>
`

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatYen":      formatYen,
		"formatTime":     formatTime,
		"formatDuration": formatDuration,
		"formatMethod":   formatMethod,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("receipt").Funcs(funcs).Parse(receiptHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	if input.Lot.Name == "" {
		input.Lot.Name = "Parking Receipt"
	}
	if input.Session.Location == nil {
		input.Session.Location = time.UTC
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatYen renders a whole-yen amount with thousands separators.
func formatYen(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)

	formatted := "¥" + strings.Join(parts, ",")
	if negative {
		return "-" + formatted
	}
	return formatted
}

func formatTime(value time.Time, loc *time.Location) string {
	if value.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return value.In(loc).Format("2006-01-02 15:04")
}

func formatDuration(minutes int64) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dmin", hours, rest)
}

func formatMethod(method, provider string) string {
	if provider == "" {
		return method
	}
	return method + " (" + provider + ")"
}
