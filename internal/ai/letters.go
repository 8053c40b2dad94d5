package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gigmatch/gigmatch/internal/model"
)

const (
	letterSystemPrompt = "You are a professional freelancer writing creative proposals for job applications."

	letterMaxTokens   = 200
	letterTemperature = 0.7

	// fallbackLetter is used whenever generation fails; a bid draft always
	// carries a usable cover letter.
	fallbackLetter = "Experienced in similar projects. I propose using proven technologies " +
		"and best practices to deliver optimal results."

	minSampleLinkLen = 10
)

// junkSampleLinks are placeholder values users type into the sample-link
// field that must never reach a proposal.
var junkSampleLinks = map[string]bool{
	"": true, " ": true, "-": true, "_": true, ".": true, ",": true, "x": true, "X": true,
}

type completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float64) (string, error)
}

// Generator composes bid cover letters. It implements model.LetterWriter.
type Generator struct {
	client completer
	logger *slog.Logger
}

// NewGenerator creates a cover-letter generator backed by the given client.
func NewGenerator(client *Client, logger *slog.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// ComposeLetter generates a proposal for the job. Valid sample links are
// appended as a links section. Any generation failure degrades to the canned
// fallback letter; callers never handle an error.
func (g *Generator) ComposeLetter(ctx context.Context, req model.LetterRequest) string {
	links := validSampleLinks(req.SampleLinks)

	var b strings.Builder
	b.WriteString("Summarize relevant experience and suggest technical solutions for this job. ")
	b.WriteString("Do not include any personal information, names, addresses, or references to the client. ")
	b.WriteString("Focus only on professional experience and how to approach the project in the best way.\n")
	fmt.Fprintf(&b, "Project Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Project Description: %s\n", req.Description)
	if req.Experience != "" {
		fmt.Fprintf(&b, "My Relevant Experience: %s\n", req.Experience)
	}
	for _, link := range links {
		fmt.Fprintf(&b, "Here is a sample project I have worked on: %s\n", link)
	}
	b.WriteString("Keep it concise, professional, and solution-oriented.")

	letter, err := g.client.Complete(ctx, letterSystemPrompt, b.String(), letterMaxTokens, letterTemperature)
	if err != nil {
		g.logger.Warn("cover letter generation failed, using fallback", "title", req.Title, "error", err)
		return fallbackLetter
	}

	if len(links) > 0 {
		var l strings.Builder
		l.WriteString(letter)
		l.WriteString("\n\nYou can view my sample project(s) here:\n")
		for _, link := range links {
			fmt.Fprintf(&l, "- %s\n", link)
		}
		letter = l.String()
	}
	return letter
}

// validSampleLinks drops placeholder junk and anything shorter than a
// plausible URL.
func validSampleLinks(links []string) []string {
	var out []string
	for _, link := range links {
		link = strings.TrimSpace(link)
		if len(link) < minSampleLinkLen || junkSampleLinks[link] {
			continue
		}
		out = append(out, link)
	}
	return out
}
