package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/careform/medextract/internal/api"
	"github.com/careform/medextract/internal/common"
	"github.com/careform/medextract/internal/export"
)

func main() {
	var (
		jobID    = flag.String("job", "", "job id (required)")
		generate = flag.Bool("generate", false, "(re)generate the FHIR bundle before fetching")
		excelOut = flag.String("excel", "", "download the verification workbook to this path")
	)
	flag.Parse()

	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	if *jobID == "" {
		log.Error("usage: medoutput -job <job-id> [-generate] [-excel out.xlsx]")
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

	if *generate {
		if _, err := client.GenerateFHIR(ctx, *jobID); err != nil {
			log.Fatalf("generate bundle: %v", err)
		}
		fmt.Println("bundle regenerated — previous validation report is stale")
	}

	// Bundle and validation report are independent reads.
	var (
		bundle *api.FHIRBundle
		report *api.ValidationReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := client.GetFHIR(gctx, *jobID)
		if err != nil {
			return err
		}
		bundle = b
		return nil
	})
	g.Go(func() error {
		r, err := client.GetValidation(gctx, *jobID)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, api.ErrNotReady) {
			fmt.Println("no bundle generated yet — rerun with -generate")
			os.Exit(1)
		}
		log.Fatalf("fetch artifacts: %v", err)
	}

	fmt.Printf("bundle for job %s: %d bytes\n", bundle.JobID, len(bundle.Bundle))
	verdict := "INVALID"
	if report.IsValid {
		verdict = "valid"
	}
	fmt.Printf("validation: %s — %d resource(s), %d error(s), %d warning(s)\n",
		verdict, report.ResourceCount, len(report.Errors), len(report.Warnings))
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}

	if *excelOut == "" {
		return
	}

	svc := export.NewService(client, log)
	data, err := svc.Fetch(ctx, *jobID)
	if err != nil {
		if errors.Is(err, api.ErrNotReady) {
			fmt.Println("verification workbook not produced yet")
			return
		}
		log.Fatalf("download workbook: %v", err)
	}
	summary, err := export.Inspect(data)
	if err != nil {
		log.Fatalf("inspect workbook: %v", err)
	}
	if err := export.Save(*excelOut, data); err != nil {
		log.Fatalf("save workbook: %v", err)
	}
	fmt.Printf("workbook saved to %s\n", *excelOut)
	for _, sheet := range summary.Sheets {
		fmt.Printf("  sheet %q: %d row(s), %d column(s)\n", sheet.Name, sheet.Rows, sheet.Columns)
	}
	if summary.Empty() {
		fmt.Println("  warning: workbook has no data rows")
	}
}
