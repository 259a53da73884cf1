package mail

import (
	"bytes"
	"html/template"
	"time"
)

// DigestData fills the weekly flower email.
type DigestData struct {
	FlowerName      string
	ImageURL        string
	DescriptionHTML template.HTML
	Uses            []string
	SupportURL      string
	UnsubscribeURL  string
	SiteName        string
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"year": func() int { return time.Now().Year() },
}).Parse(digestTpl))

// RenderDigest renders the digest body. DescriptionHTML is trusted and
// inserted verbatim; every other field is escaped.
func RenderDigest(data DigestData) (string, error) {
	if data.SiteName == "" {
		data.SiteName = "Edge Flower Gallery"
	}
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const digestTpl = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
  <title>{{.FlowerName}}</title>
</head>
<body style="background-color:#fdfaf6;margin:0 auto;font-family:ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Helvetica Neue,Arial,sans-serif;padding:.5rem">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:100%;width:560px;margin:40px auto;padding:24px;border:1px solid #e8dccb;border-radius:.5rem;background:#fff">
    <tbody>
      <tr><td>
        <p style="font-size:12px;letter-spacing:.08em;text-transform:uppercase;color:#8a7660;margin:0 0 8px">Flower of the week</p>
        <h1 style="font-size:24px;font-weight:600;color:#2f2a24;margin:0 0 16px">{{.FlowerName}}</h1>
        {{if .ImageURL}}<img src="{{.ImageURL}}" alt="{{.FlowerName}}" width="512" style="display:block;max-width:100%;border-radius:.5rem;margin:0 0 20px" />{{end}}
        <div style="font-size:15px;line-height:24px;color:#3d362e">{{.DescriptionHTML}}</div>
        {{if .Uses}}
        <h2 style="font-size:16px;font-weight:600;color:#2f2a24;margin:24px 0 8px">Ideal uses</h2>
        <ul style="font-size:15px;line-height:24px;color:#3d362e;padding-left:20px;margin:0">
          {{range .Uses}}<li>{{.}}</li>{{end}}
        </ul>
        {{end}}
        {{if .SupportURL}}
        <p style="margin:28px 0 0"><a href="{{.SupportURL}}" style="display:inline-block;background:#b5651d;color:#fff;text-decoration:none;padding:10px 18px;border-radius:.375rem;font-size:14px">Support the gallery</a></p>
        {{end}}
        <p style="font-size:12px;color:#8a7660;margin:32px 0 0">&copy; {{year}} {{.SiteName}} &middot; <a href="{{.UnsubscribeURL}}" style="color:#8a7660">Unsubscribe</a></p>
      </td></tr>
    </tbody>
  </table>
</body>
</html>
`
