package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/careform/medextract/constants"
	"github.com/careform/medextract/internal/api"
	"github.com/careform/medextract/internal/common"
	"github.com/careform/medextract/internal/jobsync"
)

func main() {
	var (
		jobID    = flag.String("job", "", "job id to watch (required)")
		poll     = flag.Bool("poll", false, "force polling instead of the push stream")
		interval = flag.Duration("interval", 0, "poll interval override, e.g. 2s")
	)
	flag.Parse()

	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	if *jobID == "" {
		log.Error("usage: medwatch -job <job-id> [-poll] [-interval 3s]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := api.NewClient(cfg.API.BaseURL, api.WithLogger(log))

	opts := []jobsync.Option{
		jobsync.WithLogger(log),
		jobsync.WithPollInterval(cfg.Sync.PollInterval),
	}
	if *interval > 0 {
		opts = append(opts, jobsync.WithPollInterval(*interval))
	}
	if *poll {
		opts = append(opts, jobsync.WithPolling())
	}

	engine := jobsync.New(client, *jobID, opts...)
	defer engine.Close()

	for update := range engine.Open(ctx) {
		if update.Err != nil {
			log.Errorw("watch.update_error", "job_id", *jobID, "error", update.Err)
			continue
		}
		fmt.Printf("%s  %s  %s\n", update.Job.UpdatedAt, update.Job.JobID, update.Job.Status)
	}

	job := engine.Current()
	if job == nil {
		log.Warnw("watch.no_snapshot", "job_id", *jobID)
		os.Exit(1)
	}

	switch job.Status {
	case constants.JobStatusFailed:
		msg := "unknown failure"
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		fmt.Printf("job failed: %s\n", msg)
		os.Exit(1)
	case constants.JobStatusAwaitingVerification:
		fmt.Println("job is awaiting human verification — run medreview to correct the extraction")
	case constants.JobStatusCompleted:
		fmt.Println("job completed")
		if doc := engine.Extracted(); doc != nil {
			fmt.Printf("extracted sections: %d\n", len(doc.Data))
		}
	default:
		// The stream was lost before a terminal status; the caller decides
		// whether to rerun.
		fmt.Printf("stopped while job was still %s\n", job.Status)
		os.Exit(1)
	}
}
