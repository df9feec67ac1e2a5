package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/decision"
	"github.com/spigell/cv-matcher/internal/filtering"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/profile"
)

const (
	PromptExit            = "Exit"
	PromptExcludeRejected = "Append rejected jobs to exclude file"
	PromptReportToFile    = "Dump report to file"
	closeTimeout          = 30 * time.Second
	excludeRejectedReason = "rejected by cv-matcher"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a resume or candidate features against the job catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("resume", "r", "", "resume text file to extract the candidate from ('-' reads stdin)")
	matchCmd.Flags().StringP("candidate", "c", "", "json file with already extracted candidate features")
	matchCmd.Flags().String("jobs", "", "job catalog file (default is catalog.path)")
	matchCmd.Flags().IntP("top-k", "k", 0, "number of matches to return (default is pipeline.top-k)")
	matchCmd.Flags().BoolP("yes", "y", false, "print the results and exit without the interactive browser")
	matchCmd.Flags().BoolP("rematch", "f", false, "do not exclude jobs already matched for this candidate")
	matchCmd.Flags().StringP("output", "o", "text", "output format: text or json")
	matchCmd.Flags().StringP("exclude-file", "e", "", "file with job ids to exclude (default is catalog.exclude-file)")

	viper.BindPFlag("catalog.exclude-file", matchCmd.Flags().Lookup("exclude-file"))
}

func runMatch(cmd *cobra.Command) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := logger.NewStderr(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	config, err := getConfig()
	if err != nil {
		return err
	}
	log.Info("starting the cv-matcher", zap.String("version", version))

	resumePath, _ := cmd.Flags().GetString("resume")
	candidatePath, _ := cmd.Flags().GetString("candidate")
	if (resumePath == "") == (candidatePath == "") {
		return errors.New("exactly one of --resume or --candidate is required")
	}
	output, _ := cmd.Flags().GetString("output")
	if output != "text" && output != "json" {
		return fmt.Errorf("unknown output format %q", output)
	}

	a, err := newMatcherApp(ctx, config, log)
	if err != nil {
		return err
	}
	defer a.closeWithTimeout()

	jobsPath, _ := cmd.Flags().GetString("jobs")
	jobs, err := a.loadJobs(jobsPath)
	if err != nil {
		return err
	}

	var candidate *profile.CandidateFeatures
	if candidatePath != "" {
		c, err := readCandidate(candidatePath)
		if err != nil {
			return err
		}
		candidate = &c
	}

	candidateID := ""
	if candidate != nil {
		candidateID = candidate.ID
	}
	rematch, _ := cmd.Flags().GetBool("rematch")
	jobs, err = filtering.Run(ctx, log, a.filters(candidateID, rematch), jobs)
	if err != nil {
		return fmt.Errorf("filtering failed: %w", err)
	}
	if len(jobs) == 0 {
		log.Info("exiting", zap.String("reason", "no jobs left after filters"))
		return nil
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	var report pipeline.BatchReport
	if candidate != nil {
		report, err = a.pipeline.MatchBatchReport(ctx, *candidate, jobs, topK)
	} else {
		text, rerr := readText(resumePath, cmd.InOrStdin())
		if rerr != nil {
			return rerr
		}
		report, err = a.pipeline.MatchText(ctx, text, jobs, topK)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	renderReport(out, report)
	if yes, _ := cmd.Flags().GetBool("yes"); yes || len(report.Results) == 0 {
		return nil
	}

	for {
		if err := browse(out, log, config, report); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

func browse(out io.Writer, log *zap.Logger, config *Config, report pipeline.BatchReport) error {
	items := make([]string, 0, len(report.Results)+3)
	for i, res := range report.Results {
		items = append(items, matchLabel(i+1, res))
	}

	rejected := rejectedJobs(report.Results)
	if config.Catalog.ExcludeFile != "" && len(rejected) > 0 {
		items = append(items, PromptExcludeRejected)
	}
	items = append(items, PromptReportToFile, PromptExit)

	prompt := promptui.Select{
		Label: "Choose a match and press ENTER",
		Items: items,
		Size:  min(len(items), 15),
	}
	idx, selected, err := prompt.Run()
	if err != nil {
		return err
	}

	switch selected {
	case PromptExit:
		log.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptExcludeRejected:
		if err := filtering.AppendExcludeFile(config.Catalog.ExcludeFile, rejected...); err != nil {
			return fmt.Errorf("append to exclude file: %w", err)
		}
		log.Info("appended to exclude file",
			zap.String("filename", config.Catalog.ExcludeFile),
			zap.Int("jobs", len(rejected)),
		)
		return nil
	case PromptReportToFile:
		filename, err := dumpReport(report)
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		log.Info("dumping report to file", zap.String("filename", filename))
		return nil
	default:
		fmt.Fprintln(out)
		renderDetails(out, report.Results[idx])
		fmt.Fprintln(out)
		return nil
	}
}

func rejectedJobs(results []pipeline.MatchResult) []filtering.ExcludedJob {
	var out []filtering.ExcludedJob
	for _, res := range results {
		if res.Decision.Outcome == decision.Reject {
			out = append(out, filtering.ExcludedJob{JobID: res.JobID, Reason: excludeRejectedReason})
		}
	}
	return out
}

func dumpReport(report pipeline.BatchReport) (string, error) {
	f, err := os.CreateTemp("", app+"-report-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func readText(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading resume: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func readCandidate(path string) (profile.CandidateFeatures, error) {
	var c profile.CandidateFeatures
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading candidate: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("decoding candidate %s: %w", path, err)
	}
	if c.ID == "" {
		return c, fmt.Errorf("candidate %s has no id", path)
	}
	return c, nil
}
