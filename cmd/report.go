package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/spigell/cv-matcher/internal/decision"
	"github.com/spigell/cv-matcher/internal/pipeline"
)

func decisionColor(o decision.Outcome) *color.Color {
	switch o {
	case decision.Shortlist:
		return color.New(color.FgGreen, color.Bold)
	case decision.Review:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

// matchLabel is a single line used in tables and in the interactive browser.
func matchLabel(rank int, res pipeline.MatchResult) string {
	company := res.Company
	if company == "" {
		company = "-"
	}
	return fmt.Sprintf("%2d. %-10s %s %.3f  %s / %s",
		rank,
		decisionColor(res.Decision.Outcome).Sprint(res.Decision.Outcome),
		res.JobID,
		res.FinalScore(),
		res.JobTitle,
		company,
	)
}

func renderReport(w io.Writer, report pipeline.BatchReport) {
	name := report.Candidate.Name
	if name == "" {
		name = report.Candidate.ID
	}
	header := color.New(color.Bold)
	fmt.Fprintf(w, "%s %s\n", header.Sprint("Candidate:"), name)
	fmt.Fprintf(w, "%s %d submitted, %d scored, %d failed, %.1f ms\n\n",
		header.Sprint("Jobs:"), report.Submitted, report.Processed, len(report.Failures), report.LatencyMillis)

	if len(report.Results) == 0 {
		fmt.Fprintln(w, "No matches.")
	}
	for i, res := range report.Results {
		fmt.Fprintln(w, matchLabel(i+1, res))
	}

	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "\n%s\n", color.New(color.FgHiBlack).Sprint("Skipped jobs:"))
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.JobID, f.Error)
		}
	}
}

func renderDetails(w io.Writer, res pipeline.MatchResult) {
	s := res.Scores
	fmt.Fprintf(w, "%s  %s (%s)\n", decisionColor(res.Decision.Outcome).Sprint(res.Decision.Outcome), res.JobTitle, res.JobID)
	fmt.Fprintf(w, "  final %.3f  rule %.3f  model %s  confidence %.2f\n", s.FinalScore, s.RuleScore, s.ModelScore, res.Decision.Confidence)
	fmt.Fprintf(w, "  skill %.2f  experience %.2f  education %.2f  keyword %.2f\n", s.Skill, s.Experience, s.Education, s.Keyword)
	fmt.Fprintf(w, "  reason: %s\n", res.Decision.Reason)
	printList(w, "matched skills", s.MatchedSkills)
	printList(w, "missing skills", s.MissingSkills)
	printList(w, "strengths", res.Decision.Strengths)
	printList(w, "red flags", res.Decision.RedFlags)
	printList(w, "recommendations", res.Decision.Recommendations)
	if res.Decision.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", res.Decision.Explanation)
	}
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: %s\n", label, strings.Join(items, ", "))
}
