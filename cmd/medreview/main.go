package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/careform/medextract/internal/api"
	"github.com/careform/medextract/internal/common"
	"github.com/careform/medextract/internal/review"
)

func main() {
	var (
		jobID    = flag.String("job", "", "job id to review (required)")
		section  = flag.String("section", "", "section to operate on; empty lists sections")
		inFile   = flag.String("in", "", "JSON file with the corrected value; triggers a save")
		wholeDoc = flag.Bool("doc", false, "treat the whole document as a single section")
		showText = flag.Bool("text", false, "print the raw pipeline text instead of editing")
	)
	flag.Parse()

	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	if *jobID == "" {
		log.Error("usage: medreview -job <job-id> [-section medications] [-in fixed.json] [-doc]")
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

	if *showText {
		printRawText(ctx, client, *jobID, log)
		return
	}

	doc, err := client.GetExtracted(ctx, *jobID)
	if err != nil {
		if errors.Is(err, api.ErrNotReady) {
			fmt.Println("extraction is not ready yet — the pipeline is still running")
			os.Exit(1)
		}
		log.Fatalf("fetch extracted document: %v", err)
	}

	rec, err := review.New(client, doc, review.WithLogger(log))
	if err != nil {
		log.Fatalf("reviewer: %v", err)
	}

	switch {
	case *wholeDoc && *inFile != "":
		saveDocument(ctx, rec, *inFile, log)
	case *wholeDoc:
		text, err := rec.LoadDocumentDraft()
		if err != nil {
			log.Fatalf("load document draft: %v", err)
		}
		fmt.Println(text)
	case *section != "" && *inFile != "":
		saveSection(ctx, rec, *section, *inFile, log)
	case *section != "":
		text, err := rec.LoadDraft(*section)
		if err != nil {
			log.Fatalf("load draft: %v", err)
		}
		fmt.Println(text)
	default:
		fmt.Printf("editable sections of job %s:\n", *jobID)
		for _, key := range rec.Sections() {
			fmt.Printf("  %s\n", key)
		}
	}
}

// printRawText shows what the pipeline actually read, useful when a
// suspicious extraction needs to be checked against its source.
func printRawText(ctx context.Context, client *api.Client, jobID string, log *zap.SugaredLogger) {
	jt, err := client.JobText(ctx, jobID)
	if err != nil {
		log.Fatalf("fetch job text: %v", err)
	}
	if jt.RawText == nil {
		fmt.Println("no text extracted yet")
		os.Exit(1)
	}
	method := "-"
	if jt.OCRMethod != nil {
		method = *jt.OCRMethod
	}
	pages := 0
	if jt.PageCount != nil {
		pages = *jt.PageCount
	}
	fmt.Printf("ocr method: %s, pages: %d\n\n", method, pages)
	fmt.Println(*jt.RawText)
}

func saveSection(ctx context.Context, rec *review.Reconciler, section, inFile string, log *zap.SugaredLogger) {
	text, err := os.ReadFile(inFile)
	if err != nil {
		log.Fatalf("read %s: %v", inFile, err)
	}
	value, err := rec.ValidateDraft(section, string(text))
	if err != nil {
		if errors.Is(err, review.ErrMalformedInput) {
			fmt.Printf("not saved: %v\n", err)
			os.Exit(1)
		}
		log.Fatalf("validate: %v", err)
	}
	if _, err := rec.Save(ctx, section, value); err != nil {
		log.Fatalf("save %s: %v", section, err)
	}
	fmt.Printf("saved section %s — document refreshed from server\n", section)
}

func saveDocument(ctx context.Context, rec *review.Reconciler, inFile string, log *zap.SugaredLogger) {
	text, err := os.ReadFile(inFile)
	if err != nil {
		log.Fatalf("read %s: %v", inFile, err)
	}
	sections, err := rec.ValidateDocumentDraft(string(text))
	if err != nil {
		if errors.Is(err, review.ErrMalformedInput) {
			fmt.Printf("not saved: %v\n", err)
			os.Exit(1)
		}
		log.Fatalf("validate: %v", err)
	}
	if _, err := rec.SaveDocument(ctx, sections); err != nil {
		log.Fatalf("save document: %v", err)
	}
	fmt.Printf("saved %d section(s) — document refreshed from server\n", len(sections))
}
