package scheduler

import (
	"fmt"

	"github.com/Hrideshsrivastava/audit-bridge/internal/mailer"
	"github.com/Hrideshsrivastava/audit-bridge/internal/repository"
)

func reminderEmail(c repository.ReminderCandidate) mailer.Email {
	return mailer.Email{
		ToName:  c.ClientName,
		ToEmail: c.ClientEmail,
		Subject: "Document Due Reminder",
		HTMLBody: fmt.Sprintf(
			"<p>Dear %s,</p>"+
				"<p>This is a reminder to upload the following document:</p>"+
				"<p><b>%s</b><br/>Due Date: <b>%s</b></p>"+
				"<p>Please log in to your portal to upload the document.</p>",
			c.ClientName, c.DocumentName, c.DueDate.Format("2006-01-02")),
	}
}

func escalationEmail(c repository.EscalationCandidate) mailer.Email {
	return mailer.Email{
		ToName:  c.FirmName,
		ToEmail: c.FirmEmail,
		Subject: "Client Missed Document Deadline",
		HTMLBody: fmt.Sprintf(
			"<p>Hello %s,</p>"+
				"<p>The following document has <b>missed its due date</b>:</p>"+
				"<p><b>Client:</b> %s<br/><b>Document:</b> %s<br/><b>Due Date:</b> %s</p>"+
				"<p>Please follow up with the client.</p>",
			c.FirmName, c.ClientName, c.DocumentName, c.DueDate.Format("2006-01-02")),
	}
}
