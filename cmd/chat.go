package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/smart-resume/internal/logger"
	"github.com/spigell/smart-resume/internal/service"
	"github.com/spigell/smart-resume/internal/store"
)

const (
	PromptAsk          = "Ask a question"
	PromptSearchResume = "Search resume"
	PromptSearchJD     = "Search job description"
	PromptAnalyze      = "Run analysis"
	PromptHistory      = "Show history"
	PromptExit         = "Exit"

	searchLimit = 5
)

var errExit = errors.New("exit requested")

var chatMenu = promptui.Select{
	Label: "What next?",
	Items: []string{PromptAsk, PromptSearchResume, PromptSearchJD, PromptAnalyze, PromptHistory, PromptExit},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant about the stored resume and job description",
	RunE:  chat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func chat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	log, err := logger.NewStderr(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}

	svc, cleanup, err := newService(ctx, config, log)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	for {
		_, action, err := chatMenu.Run()
		if err != nil {
			if isPromptExit(err) {
				return nil
			}
			return err
		}

		err = runChatAction(ctx, svc, action, out)
		switch {
		case errors.Is(err, errExit):
			return nil
		case err != nil:
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func runChatAction(ctx context.Context, svc *service.Service, action string, out io.Writer) error {
	switch action {
	case PromptAsk:
		question, err := ask("Question")
		if err != nil {
			return err
		}
		reply, err := svc.Chat(ctx, question)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n\n", reply)
	case PromptSearchResume, PromptSearchJD:
		source := store.SourceResume
		if action == PromptSearchJD {
			source = store.SourceJobDescription
		}
		query, err := ask("Search for")
		if err != nil {
			return err
		}
		hits, err := svc.Search(ctx, source, query, searchLimit)
		if err != nil {
			return err
		}
		printHits(out, hits)
	case PromptAnalyze:
		entry, err := svc.Analyze(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n\n", entry.Report)
	case PromptHistory:
		logs, err := svc.History(ctx, 10)
		if err != nil {
			return err
		}
		printHistory(out, logs)
	case PromptExit:
		return errExit
	}
	return nil
}

func ask(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return service.ErrEmptyMessage
			}
			return nil
		},
	}

	answer, err := prompt.Run()
	if err != nil {
		if isPromptExit(err) {
			return "", errExit
		}
		return "", err
	}
	return answer, nil
}

func isPromptExit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}

func printHits(out io.Writer, hits []store.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(out, "nothing found")
		return
	}
	for _, h := range hits {
		fmt.Fprintf(out, "#%d  score %.3f\n%s\n\n", h.Index, h.Score, h.Text)
	}
}

func printHistory(out io.Writer, logs []*store.AnalysisLog) {
	if len(logs) == 0 {
		fmt.Fprintln(out, "no history yet")
		return
	}
	for _, l := range logs {
		score := "N/A"
		if l.MatchScore != nil {
			score = fmt.Sprintf("%d/100", *l.MatchScore)
		}
		fmt.Fprintf(out, "%s  %s  %s\n", l.AnalysisTime.Format("2006-01-02 15:04"), score, strings.ReplaceAll(l.JDPreview, "\n", " "))
	}
}
