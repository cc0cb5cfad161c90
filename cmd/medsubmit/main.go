package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/careform/medextract/constants"
	"github.com/careform/medextract/internal/api"
	"github.com/careform/medextract/internal/common"
	"github.com/careform/medextract/internal/jobsync"
)

func main() {
	var (
		file    = flag.String("file", "", "document to submit (required)")
		docType = flag.String("type", "", "document type hint: discharge_summary | diagnostic_report")
		watch   = flag.Bool("watch", false, "keep watching the job after submission")
	)
	flag.Parse()

	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	if *file == "" {
		log.Error("usage: medsubmit -file <path> [-type discharge_summary] [-watch]")
		os.Exit(2)
	}
	dt := constants.DocumentType(*docType)
	if *docType != "" && !dt.Valid() {
		log.Errorf("unknown document type %q", *docType)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("open document: %v", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			log.Warnw("close document", "error", cerr)
		}
	}()

	client := api.NewClient(cfg.API.BaseURL, api.WithLogger(log))

	job, err := client.Upload(ctx, filepath.Base(*file), f, dt)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	fmt.Printf("submitted %s as job %s (status %s)\n", job.Filename, job.JobID, job.Status)

	if !*watch {
		return
	}

	engine := jobsync.New(client, job.JobID,
		jobsync.WithLogger(log),
		jobsync.WithPollInterval(cfg.Sync.PollInterval),
	)
	defer engine.Close()

	for update := range engine.Open(ctx) {
		if update.Err != nil {
			log.Errorw("submit.watch_error", "job_id", job.JobID, "error", update.Err)
			continue
		}
		fmt.Printf("%s  %s\n", update.Job.UpdatedAt, update.Job.Status)
	}
	if cur := engine.Current(); cur != nil && cur.Status == constants.JobStatusFailed && cur.ErrorMessage != nil {
		fmt.Printf("job failed: %s\n", *cur.ErrorMessage)
		os.Exit(1)
	}
}
