package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/extract"
	"github.com/spigell/smart-resume/internal/logger"
	"github.com/spigell/smart-resume/internal/service"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print a fit report for the stored resume and job description",
	RunE:  analyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("resume", "r", "", "resume file (pdf, docx or text) to store before the analysis")
	analyzeCmd.Flags().StringP("job-description", "J", "", "job description file to store before the analysis")
}

func analyze(cmd *cobra.Command, _ []string) error {
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

	if path, _ := cmd.Flags().GetString("resume"); path != "" {
		text, err := readDocument(path)
		if err != nil {
			return err
		}
		stats, err := svc.ReplaceResume(ctx, text)
		if err != nil {
			return err
		}
		log.Info("resume stored", zap.String("file", path), zap.Any("stats", stats))
	}

	if path, _ := cmd.Flags().GetString("job-description"); path != "" {
		text, err := readDocument(path)
		if err != nil {
			return err
		}
		stats, err := svc.ReplaceJobDescription(ctx, text)
		if err != nil {
			return err
		}
		log.Info("job description stored", zap.String("file", path), zap.Any("stats", stats))
	}

	entry, err := svc.Analyze(ctx)
	if err != nil {
		if errors.Is(err, service.ErrMissingDocuments) {
			return fmt.Errorf("%w: pass --resume and --job-description", err)
		}
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), entry.Report)
	return nil
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	text, err := extract.FromUpload(filepath.Base(path), data)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", path, err)
	}
	return text, nil
}
