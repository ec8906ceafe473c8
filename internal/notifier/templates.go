package notifier

import (
	"fmt"

	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
)

func submittedEmail(p DocumentSubmittedPayload) mailer.Email {
	return mailer.Email{
		ToName:  p.FirmName,
		ToEmail: p.FirmEmail,
		Subject: fmt.Sprintf("New document submitted: %s", p.DocumentName),
		HTMLBody: fmt.Sprintf(
			"<p>Hello %s,</p>"+
				"<p><strong>%s</strong> has uploaded <strong>%s</strong> and it is now awaiting your review.</p>"+
				"<p>Log in to your dashboard to verify or reject the submission.</p>",
			p.FirmName, p.ClientName, p.DocumentName),
	}
}

func rejectedEmail(p DocumentRejectedPayload) mailer.Email {
	return mailer.Email{
		ToName:  p.ClientName,
		ToEmail: p.ClientEmail,
		Subject: fmt.Sprintf("Action required: %s was rejected", p.DocumentName),
		HTMLBody: fmt.Sprintf(
			"<p>Hello %s,</p>"+
				"<p>Your submission <strong>%s</strong> was rejected for the following reason:</p>"+
				"<blockquote>%s</blockquote>"+
				"<p>Please upload a corrected file.</p>",
			p.ClientName, p.DocumentName, p.Reason),
	}
}
