package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/osvaldoandrade/docprov/pkg/docprovsdk"
)

func main() {
	cfg := docprovsdk.DefaultConfig()
	if uri := os.Getenv("DOCPROV_MONGODB_URI"); uri != "" {
		cfg.URI = uri
	}
	if os.Getenv("DOCPROV_STORE") == string(docprovsdk.StoreMemory) {
		cfg.Store = docprovsdk.StoreMemory
	}
	cfg.JournalPath = os.Getenv("DOCPROV_JOURNAL_PATH")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := docprovsdk.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	results, err := client.Apply(ctx, client.Catalogs()...)
	for _, result := range results {
		fmt.Printf("apply %s.%s action=%s indexes=+%d/=%d fingerprint=%s\n",
			result.Database, result.Collection, result.Action,
			result.IndexesCreated, result.IndexesExisting, result.Fingerprint)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "apply: %v\n", err)
		return
	}

	verified, err := client.Verify(ctx, client.Catalogs()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify: %v\n", err)
		return
	}
	fmt.Printf("verify %d/%d indexes used by the planner\n", verified.Verified, verified.Indexes)
	for _, issue := range verified.Issues {
		fmt.Printf("issue %s.%s [%s] %s\n", issue.Namespace, issue.Field, issue.Code, issue.Message)
	}

	runs, err := client.History(ctx, 5)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history: %v\n", err)
		return
	}
	for _, run := range runs {
		fmt.Printf("run %s %s.%s %s\n", run.RunID, run.Database, run.Collection, run.Status)
	}
}
