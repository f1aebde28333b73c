// internal/service/template_service.go
package service

import (
	"bytes"
	"html/template"
	"time"
)

const logoURL = "https://geniusmarketingai.netlify.app/Nikson%20Marketing%20Logo%20V1.png"

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "features"}}
<ul>
    <li>AI-Powered Marketing Analysis</li>
    <li>Custom Campaign Strategies</li>
    <li>Social Media Recommendations</li>
    <li>ROI Tracking &amp; Analytics</li>
</ul>
{{end}}

{{define "welcome"}}
<div style="text-align:center;">
    <img src="{{.LogoURL}}" alt="Nikson Marketing Logo" style="max-width:180px; margin-bottom:20px;"/>
</div>
<h2>Welcome to Marketing Genius!</h2>
<p>{{if .Name}}Hi {{.Name}},{{else}}Hello,{{end}}</p>
<p>Thank you for starting your {{.TrialDays}}-day free trial. You now have full access to all features:</p>
{{template "features"}}
<p>Your trial ends on {{.TrialEnd}}.</p>
<p>To continue using the service after your trial, simply subscribe for $20/month.</p>
{{end}}

{{define "trial_ending"}}
<h2>Your access to the Nikson Marketing NZ's - Marketing Genius product Trial is Ending Soon</h2>
<p>Your {{.TrialDays}}-day free trial will end in {{.DaysLeft}} days. Don't lose access to your valuable marketing insights!</p>
<p>Invest in marketing that runs while you dont for just $20/month to continue using ALL features:</p>
{{template "features"}}
<p><a href="{{.FrontendURL}}/subscribe">Click here to subscribe now</a></p>
{{end}}

{{define "confirmation"}}
<h2>Welcome to Nikson Marketing NZ's - Marketing Genius Premium!</h2>
<p>Thank you for subscribing to Marketing Genius. You now have full access to all premium features.</p>
<p>Your subscription will automatically renew each month for $20.</p>
<p>If you have any questions, please don't hesitate to contact us.</p>
{{end}}
`))

type emailData struct {
	LogoURL     string
	FrontendURL string
	Name        string
	TrialDays   int
	DaysLeft    int
	TrialEnd    string
}

// renderEmail executes one of the named email templates. Values are HTML
// escaped.
func renderEmail(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatTrialEnd(t time.Time) string {
	return t.Format("January 2, 2006 15:04 MST")
}
