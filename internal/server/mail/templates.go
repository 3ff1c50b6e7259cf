package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

var templates = map[Kind]*template.Template{
	KindOTP: template.Must(template.New("otp").Parse(`
<p>Hello,</p>
<p>Your one-time code is:</p>
<h2 style="letter-spacing:4px">{{.Code}}</h2>
<p>The code is valid for one hour. If you did not request it, ignore this email.</p>
`)),
}

func render(kind Kind, code string) (string, error) {
	t, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("unknown template %q", kind)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Code string }{code}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
