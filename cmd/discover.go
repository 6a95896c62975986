package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/jobs"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/pipeline"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes             = "Yes"
	PromptNo              = "No"
	PromptReportByCompany = "Report by company"
	PromptPostingsToFile  = "Dump postings to file"
)

var prompt = promptui.Select{
	Label: "Push qualified postings to Notion?",
	Items: []string{PromptYes, PromptNo, PromptReportByCompany, PromptPostingsToFile},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scrape job boards, score postings and push the qualified ones to Notion",
	Run: func(cmd *cobra.Command, _ []string) {
		discover(cmd)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before pushing")
	discoverCmd.Flags().Bool("dump", false, "dump qualified postings to a temporary file")
	discoverCmd.Flags().StringP("exclude-file", "e", "", "postings dump whose urls are skipped. Default is unset.")

	viper.BindPFlag("filters.exclude-file", discoverCmd.Flags().Lookup("exclude-file"))
}

func discover(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobhunter", zap.String("version", version), zap.String("command", "discover"))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	d, err := newDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing dependencies", zap.Error(err), zap.String("hint", hintOf(err)))
	}
	defer d.Close()

	autoApprove, _ := cmd.Flags().GetBool("yes")
	dump, _ := cmd.Flags().GetBool("dump")

	discovery, err := newDiscovery(config, d, confirmPush(autoApprove, dump, logger), logger)
	if err != nil {
		logger.Fatal("preparing discovery", zap.Error(err), zap.String("hint", hintOf(err)))
	}

	err = runLocked(ctx, d.locker, pipeline.KindDiscover, logger, func(ctx context.Context) error {
		_, err := discovery.Run(ctx)
		return err
	})
	if err != nil {
		logger.Fatal("discovery failed", zap.Error(err))
	}
}

// confirmPush asks before pushing unless autoApprove is set. The report and
// dump actions return to the prompt.
func confirmPush(autoApprove, dump bool, logger *zap.Logger) pipeline.Confirm {
	return func(_ context.Context, qualified []*jobs.Posting) (bool, error) {
		postings := jobs.NewPostings(qualified)

		if dump {
			if err := handleAction(PromptPostingsToFile, postings, logger); err != nil {
				return false, err
			}
		}
		if autoApprove {
			return true, nil
		}

		for {
			logger.Info("current list of qualified postings", zap.Int("count", postings.Len()))

			_, action, err := prompt.Run()
			if err != nil {
				return false, errors.Wrap(err, "prompt")
			}

			switch action {
			case PromptYes:
				return true, nil
			case PromptNo:
				logger.Info("skipping push", zap.String("reason", "got no from prompt"))
				return false, nil
			}

			if err := handleAction(action, postings, logger); err != nil {
				return false, err
			}
		}
	}
}

func handleAction(action string, postings *jobs.Postings, logger *zap.Logger) error {
	switch action {
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(postings.ReportByCompany(), "", "  ")
		logger.Info(string(pretty), zap.Int("postings count", postings.Len()))
		return nil
	case PromptPostingsToFile:
		filename, err := postings.DumpToTmpFile()
		if err != nil {
			return errors.Wrap(err, "dump postings to file")
		}
		logger.Info("dumping postings to file", zap.String("filename", filename))
		return nil
	default:
		return errors.Newf("invalid action: %s", action)
	}
}

func hintOf(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}
