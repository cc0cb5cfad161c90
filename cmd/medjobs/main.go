package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/careform/medextract/constants"
	"github.com/careform/medextract/internal/api"
	"github.com/careform/medextract/internal/common"
	"github.com/careform/medextract/internal/joblist"
)

func main() {
	var (
		docType  = flag.String("type", "", "filter by document type (empty = all)")
		page     = flag.Int("page", 1, "1-based page number")
		pageSize = flag.Int("page-size", 0, "page size override")
		sortKey  = flag.String("sort", "created_at", "sort key: created_at | status | filename")
		asc      = flag.Bool("asc", false, "sort ascending (default descending)")
		deleteID = flag.String("delete", "", "delete this job id, then list")
	)
	flag.Parse()

	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if *pageSize <= 0 {
		*pageSize = cfg.List.PageSize
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := api.NewClient(cfg.API.BaseURL, api.WithLogger(log))
	engine := joblist.New(client,
		joblist.WithLogger(log),
		joblist.WithPageSize(*pageSize),
	)

	if err := engine.SetFilter(ctx, constants.DocumentType(*docType)); err != nil {
		log.Fatalf("list jobs: %v", err)
	}
	if *page > 1 {
		if err := engine.SetPage(ctx, *page); err != nil {
			log.Fatalf("list jobs: %v", err)
		}
	}

	key := joblist.SortKey(*sortKey)
	switch key {
	case joblist.SortByCreatedAt, joblist.SortByStatus, joblist.SortByFilename:
	default:
		log.Errorf("unknown sort key %q", *sortKey)
		os.Exit(2)
	}
	// created_at descending is already the engine default; selecting it
	// again would toggle direction.
	if key != joblist.SortByCreatedAt {
		if err := engine.SortBy(ctx, key); err != nil {
			log.Fatalf("sort: %v", err)
		}
	}
	if *asc {
		// A second selection of the same key toggles direction.
		if err := engine.SortBy(ctx, key); err != nil {
			log.Fatalf("sort: %v", err)
		}
	}

	if *deleteID != "" {
		if err := engine.Delete(ctx, *deleteID); err != nil {
			log.Fatalf("delete job %s: %v", *deleteID, err)
		}
		fmt.Printf("deleted %s\n", *deleteID)
	}

	printPage(engine)
}

func printPage(engine *joblist.Engine) {
	page := engine.Page()
	if page == nil {
		fmt.Println("no jobs")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tSTATUS\tTYPE\tFILE\tSUBMITTED")
	for _, job := range engine.Jobs() {
		dt := "-"
		if job.DocumentType != nil {
			dt = string(*job.DocumentType)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", job.JobID, job.Status, dt, job.Filename, job.CreatedAt)
	}
	_ = w.Flush()
	fmt.Printf("page %d/%d — %d job(s) total\n", page.Page, page.TotalPages, page.Total)
}
