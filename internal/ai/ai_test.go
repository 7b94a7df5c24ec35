package ai

import (
	"strings"
	"testing"
)

func TestParseMatchScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		report string
		expect int
		none   bool
	}{
		{name: "empty", report: "", none: true},
		{name: "labelled", report: "Match score: 82/100\n\n### Strengths", expect: 82},
		{name: "markdown between label and number", report: "**MATCH  SCORE:** 7", none: true},
		{name: "case insensitive", report: "match score:   64 / 100", expect: 64},
		{name: "fraction fallback", report: "Overall I'd say 55/100 fit.", expect: 55},
		{name: "label wins over fraction", report: "10/100 earlier\nMatch score: 90/100", expect: 90},
		{name: "clamped", report: "Match score: 150/100", expect: 100},
		{name: "no score", report: "### Strengths\n- Go", none: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ParseMatchScore(tt.report)
			if tt.none {
				if got != nil {
					t.Fatalf("expected no score, got %d", *got)
				}
				return
			}
			if got == nil || *got != tt.expect {
				t.Fatalf("expected %d, got %v", tt.expect, got)
			}
		})
	}
}

func TestBuildReportPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildReportPrompt("5 years of Python backend development", "Looking for a senior Python backend engineer")

	for _, expected := range []string{
		"You are an expert HR evaluator.",
		"Match score: <0-100>/100",
		"### Strengths",
		"### Gaps",
		"### Suggested resume improvements",
		"RESUME:\n5 years of Python backend development",
		"JOB DESCRIPTION:\nLooking for a senior Python backend engineer",
	} {
		if !strings.Contains(prompt, expected) {
			t.Fatalf("prompt is missing %q:\n%s", expected, prompt)
		}
	}

	if strings.Contains(prompt, "{{") {
		t.Fatalf("prompt has unresolved placeholders:\n%s", prompt)
	}
}

func TestBuildReportPromptDoesNotExpandUserText(t *testing.T) {
	t.Parallel()

	prompt := BuildReportPrompt("resume mentions {{JOB_DESCRIPTION}}", "jd")
	if !strings.Contains(prompt, "resume mentions {{JOB_DESCRIPTION}}") {
		t.Fatalf("placeholder inside user text must be left alone:\n%s", prompt)
	}
}

func TestBuildAnswerPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildAnswerPrompt("Do I know Kafka?", "CV CONTEXT:\nKafka streams")
	expect := "You are a helpful assistant.\nAnswer using the context below.\n\nContext:\nCV CONTEXT:\nKafka streams\n\nUser question:\nDo I know Kafka?"
	if prompt != expect {
		t.Fatalf("unexpected prompt:\n%q\nexpected:\n%q", prompt, expect)
	}
}
