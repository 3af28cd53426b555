package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"gitlab.com/golang-commonmark/markdown"
)

// Raw HTML in comments is escaped, not passed through.
var commentRenderer = markdown.New(markdown.HTML(false), markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

const layoutStart = `<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">`
const layoutEnd = `<p style="color: #999; font-size: 12px; margin-top: 24px;">Partnership Hub</p>
</div>`
const buttonStyle = `display: inline-block; background: #1a1a2e; color: white; padding: 10px 24px; border-radius: 6px; text-decoration: none; margin-top: 8px;`

var reviewRequestTmpl = template.Must(template.New("review_request").Parse(layoutStart + `
<h2 style="color: #1a1a2e;">Review Requested</h2>
<p>Hi {{.RecipientName}},</p>
<p>A new asset has been submitted for your review:</p>
<div style="background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 16px 0;">
  <p style="margin: 0; font-weight: 600;">{{.AssetTitle}}</p>
  <p style="margin: 4px 0 0; color: #666; font-size: 14px;">Due: {{.DueDate}}</p>
</div>
<a href="{{.URL}}" style="` + buttonStyle + `">Review Now</a>
` + layoutEnd))

var statusChangeTmpl = template.Must(template.New("status_change").Parse(layoutStart + `
<h2 style="color: #1a1a2e;">Approval Update</h2>
<p>Hi {{.RecipientName}},</p>
<p><strong>{{.ApproverName}}</strong> {{.Action}} <strong>"{{.AssetTitle}}"</strong>.</p>
{{- if .Comment}}
<div style="background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 16px 0; color: #333; font-size: 14px;">
{{.Comment}}
</div>
{{- end}}
<a href="{{.URL}}" style="` + buttonStyle + `">View Asset</a>
` + layoutEnd))

type reviewRequestData struct {
	RecipientName string
	AssetTitle    string
	DueDate       string
	URL           string
}

type statusChangeData struct {
	RecipientName string
	ApproverName  string
	Action        string
	AssetTitle    string
	Comment       template.HTML
	URL           string
}

// RenderComment renders a markdown comment to HTML. Embedded HTML is escaped.
func RenderComment(comment string) template.HTML {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return ""
	}
	return template.HTML(commentRenderer.RenderToString([]byte(comment)))
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
