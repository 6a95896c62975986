package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/jevancousins/jobhunter/internal/logger"
	"github.com/jevancousins/jobhunter/internal/pipeline"
	"github.com/jevancousins/jobhunter/internal/runlock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run discovery and status processing on a cron schedule until interrupted",
	Run: func(cmd *cobra.Command, _ []string) {
		schedule(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().Bool("now", false, "run discovery once immediately after start")
}

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) (*pipeline.RunReport, error)
}

func schedule(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobhunter", zap.String("version", version), zap.String("command", "schedule"))

	d, err := newDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing dependencies", zap.Error(err), zap.String("hint", hintOf(err)))
	}
	defer d.Close()

	// Scheduled runs never prompt.
	discovery, err := newDiscovery(config, d, nil, logger)
	if err != nil {
		logger.Fatal("preparing discovery", zap.Error(err), zap.String("hint", hintOf(err)))
	}
	jobs := []job{{name: pipeline.KindDiscover, spec: config.Schedule.Discover, run: discovery.Run}}

	processing, err := newProcessing(config, d, logger)
	if err != nil {
		logger.Warn("status processing disabled", zap.Error(err))
	} else {
		jobs = append(jobs, job{name: pipeline.KindProcess, spec: config.Schedule.Process, run: processing.Run})
	}

	clog := cronLogger{log: logger.Named("cron").Sugar()}
	c := cron.New(cron.WithLogger(clog))
	chain := cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog))

	// The same wrapped job serves cron and --now so runs never overlap.
	wrapped := make([]cron.Job, len(jobs))
	for i, j := range jobs {
		wrapped[i] = chain.Then(cron.FuncJob(scheduledRun(ctx, d.locker, j, logger)))
		if _, err := c.AddJob(j.spec, wrapped[i]); err != nil {
			logger.Fatal("adding cron job",
				zap.String("job", j.name),
				zap.String("spec", j.spec),
				zap.Error(errors.Wrap(err, "parsing schedule")),
			)
		}
		logger.Info("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}

	c.Start()

	if now, _ := cmd.Flags().GetBool("now"); now {
		go wrapped[0].Run()
	}

	<-ctx.Done()
	logger.Info("stopping scheduler, waiting for running jobs")
	<-c.Stop().Done()
}

func scheduledRun(ctx context.Context, locker runlock.Locker, j job, logger *zap.Logger) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		err := runLocked(ctx, locker, j.name, logger, func(ctx context.Context) error {
			_, err := j.run(ctx)
			return err
		})
		if err != nil {
			logger.Error("scheduled run failed", zap.String("job", j.name), zap.Error(err))
		}
	}
}
