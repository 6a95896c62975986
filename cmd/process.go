package cmd

import (
	"context"
	"log"

	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Generate materials for jobs moved to Apply and prep for jobs moved to Interview",
	Run: func(cmd *cobra.Command, _ []string) {
		process(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Bool("refresh-prep", false, "regenerate interview prep even when an entry exists")
}

func process(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobhunter", zap.String("version", version), zap.String("command", "process"))

	d, err := newDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing dependencies", zap.Error(err), zap.String("hint", hintOf(err)))
	}
	defer d.Close()

	processing, err := newProcessing(config, d, logger)
	if err != nil {
		logger.Fatal("preparing processing", zap.Error(err), zap.String("hint", hintOf(err)))
	}
	processing.RefreshPrep, _ = cmd.Flags().GetBool("refresh-prep")

	err = runLocked(ctx, d.locker, pipeline.KindProcess, logger, func(ctx context.Context) error {
		_, err := processing.Run(ctx)
		return err
	})
	if err != nil {
		logger.Fatal("processing failed", zap.Error(err))
	}
}
