package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/gigmatch/gigmatch/internal/model"
	"github.com/gigmatch/gigmatch/internal/store"
)

const maxSummarySkills = 8

// summaryHTML renders the short job card delivered when a match is found.
func summaryHTML(job model.JobListing) string {
	parts := []string{fmt.Sprintf("<b>%s</b>", html.EscapeString(job.Title))}
	if job.PreviewDescription != "" {
		parts = append(parts, html.EscapeString(job.PreviewDescription))
	} else {
		parts = append(parts, "<i>No preview available.</i>")
	}
	parts = append(parts, fmt.Sprintf("<b>Bids:</b> %d", job.BidCount))
	if price := formatBudget(job); price != "" {
		parts = append(parts, fmt.Sprintf("<b>Budget:</b> %s", price))
	}
	if job.Duration != nil && *job.Duration > 0 {
		parts = append(parts, fmt.Sprintf("<b>Duration:</b> %d days", *job.Duration))
	}
	if len(job.Skills) > 0 {
		skills := job.Skills
		if len(skills) > maxSummarySkills {
			skills = skills[:maxSummarySkills]
		}
		parts = append(parts, fmt.Sprintf("<b>Skills:</b> %s", html.EscapeString(strings.Join(skills, ", "))))
	}
	if job.URL != "" {
		parts = append(parts, fmt.Sprintf(`<a href="https://www.freelancer.com/%s">View on Freelancer</a>`, job.URL))
	}
	return strings.Join(parts, "\n")
}

// detailsHTML renders the full job view shown when the user opens a job for
// bidding.
func detailsHTML(job model.JobListing) string {
	duration := "n/a"
	if job.Duration != nil && *job.Duration > 0 {
		duration = strconv.Itoa(*job.Duration)
	}
	skills := "not provided"
	if len(job.Skills) > 0 {
		skills = html.EscapeString(strings.Join(job.Skills, ", "))
	}
	budget := formatBudget(job)
	if budget == "" {
		budget = "not listed"
	}
	return fmt.Sprintf(
		"<b>%s</b>\n<b>Job ID:</b> <code>%d</code>\n%s\n\n<b>Budget:</b> %s\n<b>Job type:</b> %s\n<b>Duration:</b> %s days\n<b>Skills:</b> %s",
		html.EscapeString(job.Title),
		job.ID,
		html.EscapeString(job.Description()),
		budget,
		html.EscapeString(titleCase(job.Type)),
		duration,
		skills,
	)
}

// draftHTML renders a bid draft for review before confirmation.
func draftHTML(job model.JobListing, draft store.BidDraft) string {
	return fmt.Sprintf(
		"<b>Bid draft for %s</b>\n<b>Amount:</b> %s %s\n<b>Period:</b> %d days\n\n<b>Proposal:</b>\n%s",
		html.EscapeString(job.Title),
		html.EscapeString(job.Currency),
		formatAmount(draft.Amount),
		draft.Period,
		html.EscapeString(draft.CoverLetter),
	)
}

// confirmedHTML renders the success message after a bid is placed.
func confirmedHTML(job model.JobListing, draft store.BidDraft) string {
	return fmt.Sprintf(
		"✅ Bid submitted for <b>%s</b>\n<b>Amount:</b> %s %s\n<b>Period:</b> %d days\n\n<b>Proposal:</b>\n%s",
		html.EscapeString(job.Title),
		html.EscapeString(job.Currency),
		formatAmount(draft.Amount),
		draft.Period,
		html.EscapeString(draft.CoverLetter),
	)
}

// profileHTML renders the stored profile as preformatted JSON-ish text.
func profileHTML(raw string) string {
	return fmt.Sprintf("<b>Profile data:</b>\n<pre>%s</pre>", html.EscapeString(raw))
}

// formatBudget formats the job's budget range, or returns "" when no bounds
// are listed.
func formatBudget(job model.JobListing) string {
	switch {
	case job.BudgetMin != nil && job.BudgetMax != nil:
		return html.EscapeString(fmt.Sprintf("%s %s-%s", job.Currency, formatAmount(*job.BudgetMin), formatAmount(*job.BudgetMax)))
	case job.BudgetMin != nil:
		return html.EscapeString(fmt.Sprintf("%s %s+", job.Currency, formatAmount(*job.BudgetMin)))
	case job.BudgetMax != nil:
		return html.EscapeString(fmt.Sprintf("%s up to %s", job.Currency, formatAmount(*job.BudgetMax)))
	}
	return ""
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
