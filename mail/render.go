package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"badgereq/badge"
)

// Message is a rendered e-mail ready to hand to a provider.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

const cellStyle = "border:1px solid #ddd; padding:8px;"

var batchTemplate = template.Must(template.New("batch").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`<h2>New Badge Request</h2>
<h3><strong>Requester:</strong> {{.Batch.RequesterName}}</h3>

<h3>Entries:</h3>
<table style="width:100%; border-collapse:collapse; font-family:Arial, sans-serif;">
  <thead>
    <tr style="background-color:#f2f2f2;">
      <th style="{{.Cell}} text-align:left;">#</th>
      <th style="{{.Cell}} text-align:left;">Employee Name</th>
      <th style="{{.Cell}} text-align:left;">ID Type</th>
      <th style="{{.Cell}} text-align:left;">ID Value</th>
      <th style="{{.Cell}} text-align:left;">Company</th>
    </tr>
  </thead>
  <tbody>
{{- range $i, $e := .Batch.Entries}}
    <tr>
      <td style="{{$.Cell}}">{{inc $i}}</td>
      <td style="{{$.Cell}}">{{$e.EmployeeName}}</td>
      <td style="{{$.Cell}}">{{$e.IDType}}</td>
      <td style="{{$.Cell}}">{{$e.IDValue}}</td>
      <td style="{{$.Cell}}">{{$e.Company}}</td>
    </tr>
{{- end}}
  </tbody>
</table>
`))

// RenderBatch builds the notification for a submitted batch. Every user value
// is HTML-escaped.
func RenderBatch(batch badge.Batch) (Message, error) {
	var html bytes.Buffer
	err := batchTemplate.Execute(&html, struct {
		Batch badge.Batch
		Cell  template.CSS
	}{Batch: batch, Cell: template.CSS(cellStyle)})
	if err != nil {
		return Message{}, fmt.Errorf("render batch mail: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "New Badge Request\nRequester: %s\n\n", batch.RequesterName)
	for i, entry := range batch.Entries {
		fmt.Fprintf(&text, "%d. %s | %s | %s | %s\n", i+1, entry.EmployeeName, entry.IDType, entry.IDValue, entry.Company)
	}

	return Message{
		Subject: "Badge Request from " + batch.RequesterName,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// TestMessage is the plain-text message used to check mail delivery.
func TestMessage(now time.Time) Message {
	return Message{
		Subject: "Resend test - Badge Request app",
		Text: fmt.Sprintf(
			"This is a test message sent by your Badge Request app at %s.",
			now.UTC().Format(time.RFC3339),
		),
	}
}
