package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/milehighpros/lead-intake/internal/leads"
)

const createdAtLayout = "January 2, 2006 at 3:04 PM MST"

// operationsMessage is the internal alert with the whole submission and the
// request metadata.
func operationsMessage(lead *leads.Lead, to, siteName string) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "New quote request received on %s.\n\n", siteName)

	b.WriteString("PROJECT\n")
	writeLine(&b, "Project type", lead.ProjectType)
	writeLine(&b, "Timeline", lead.Timeline)
	writeLine(&b, "Budget", orDash(lead.BudgetRange))
	writeLine(&b, "ZIP code", lead.ZipCode)
	fmt.Fprintf(&b, "Description:\n%s\n\n", lead.Description)

	b.WriteString("CONTACT\n")
	writeLine(&b, "Name", lead.FullName)
	writeLine(&b, "Email", lead.Email)
	writeLine(&b, "Phone", orDash(lead.Phone))
	writeLine(&b, "Preferred contact", lead.PreferredContact)
	b.WriteString("\n")

	b.WriteString("TECHNICAL\n")
	writeLine(&b, "Lead ID", lead.ID)
	writeLine(&b, "Submitted", lead.CreatedAt.Format(createdAtLayout))
	writeLine(&b, "Source page", orDash(lead.SourcePage))
	writeLine(&b, "IP address", lead.IP)
	writeLine(&b, "User agent", orDash(lead.UserAgent))

	return EmailMessage{
		To:      to,
		ReplyTo: lead.Email,
		Subject: fmt.Sprintf("New Lead: %s in %s - %s", lead.ProjectType, lead.ZipCode, lead.FullName),
		Body:    b.String(),
	}
}

// confirmationMessage acknowledges the request to the homeowner.
func confirmationMessage(lead *leads.Lead, siteName, replyTo string) EmailMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", firstName(lead.FullName))
	fmt.Fprintf(&b, "Thanks for requesting quotes for your %s project. We've received your request and are matching you with licensed, insured contractors who serve %s.\n\n", lead.ProjectType, lead.ZipCode)
	b.WriteString("What happens next:\n")
	b.WriteString("1. We review your project details.\n")
	fmt.Fprintf(&b, "2. Up to three qualified contractors will reach out by %s within 24 hours.\n", lead.PreferredContact)
	b.WriteString("3. You compare quotes and choose who to hire. There is no obligation.\n\n")
	b.WriteString("Your request:\n")
	writeLine(&b, "Project", lead.ProjectType)
	writeLine(&b, "Timeline", lead.Timeline)
	if lead.BudgetRange != "" {
		writeLine(&b, "Budget", lead.BudgetRange)
	}
	writeLine(&b, "Reference", lead.ID)
	fmt.Fprintf(&b, "\nIf anything changes, just reply to this email.\n\nThe %s team\n", siteName)

	return EmailMessage{
		To:      lead.Email,
		ToName:  lead.FullName,
		ReplyTo: replyTo,
		Subject: fmt.Sprintf("We received your %s request", lead.ProjectType),
		Body:    b.String(),
	}
}

func writeLine(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

// plainToHTML renders a plain text body as escaped HTML with line breaks.
func plainToHTML(body string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(body), "\n", "<br>") + "</p>"
}
