package ai

import (
	_ "embed"
	"strings"
)

// ReportInstruction is the question sent along with the analysis prompt.
const ReportInstruction = "Write the CV vs JD report now."

var (
	//go:embed prompts/answer.md
	answerTemplate string

	//go:embed prompts/report.md
	reportTemplate string
)

// BuildAnswerPrompt wraps a user question and its supporting context.
func BuildAnswerPrompt(question, contextBlock string) string {
	r := strings.NewReplacer(
		"{{CONTEXT}}", contextBlock,
		"{{QUESTION}}", question,
	)
	return strings.TrimSpace(r.Replace(answerTemplate))
}

// BuildReportPrompt renders the fixed Markdown report template for a resume
// and a job description.
func BuildReportPrompt(resume, jobDescription string) string {
	r := strings.NewReplacer(
		"{{RESUME}}", resume,
		"{{JOB_DESCRIPTION}}", jobDescription,
	)
	return strings.TrimSpace(r.Replace(reportTemplate))
}
