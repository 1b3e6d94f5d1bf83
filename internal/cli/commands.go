package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	historyapp "github.com/osvaldoandrade/docprov/internal/app/history"
	inspectapp "github.com/osvaldoandrade/docprov/internal/app/inspect"
	"github.com/osvaldoandrade/docprov/internal/app/provision"
	verifyapp "github.com/osvaldoandrade/docprov/internal/app/verify"
	"github.com/osvaldoandrade/docprov/internal/catalog"
	"github.com/osvaldoandrade/docprov/internal/domain"
	"github.com/osvaldoandrade/docprov/internal/infra/canonicaljson"
	"github.com/osvaldoandrade/docprov/internal/infra/hash"
	"github.com/osvaldoandrade/docprov/internal/infra/schema"
	"github.com/osvaldoandrade/docprov/internal/infra/schemadiff"
	"github.com/spf13/cobra"
)

const catalogArgs = "<catalog>..."

func newApplyCmd(opts *RootOptions) *cobra.Command {
	var onConflict string
	var targetDatabase string
	cmd := &cobra.Command{
		Use:   "apply " + catalogArgs,
		Short: "Create collections, validators and indexes declared by catalogs",
		Long: "Each catalog is a built-in name (see `docprov catalog list`), a YAML/JSON file, or - for stdin.\n" +
			"Collections are created with their validator, then indexes are created in declared order.",
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			policy, err := domain.ParseConflictPolicy(opts.cfg.Provision.OnConflict)
			if err != nil {
				return err
			}
			specs, err := loadSpecs(ctx, cmd, opts.cfg, args, targetDatabase)
			if err != nil {
				return err
			}

			store, err := openBackend(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer closeBackend(store)

			sinks, err := openRunSinks(opts.cfg)
			if err != nil {
				return err
			}
			defer sinks.close()

			service := newProvisionService(store, policy, sinks)
			var results []provision.Result
			progress := newRenderer(cmd.ErrOrStderr(), opts.JSONOutput)
			runErr := progress.busy(ctx, "Provisioning", func() error {
				var err error
				results, err = service.ProvisionAll(ctx, specs)
				return err
			})
			if len(results) > 0 || runErr == nil {
				if err := writeApplyResult(cmd, results, runErr, opts.JSONOutput); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&onConflict, "on-conflict", "", "What to do when a live validator differs (reject, overwrite)")
	cmd.Flags().StringVar(&targetDatabase, "target-database", "", "Provision every collection into this database")
	return cmd
}

func newPlanCmd(opts *RootOptions) *cobra.Command {
	var targetDatabase string
	cmd := &cobra.Command{
		Use:   "plan " + catalogArgs,
		Short: "Show what apply would change without writing",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			specs, err := loadSpecs(ctx, cmd, opts.cfg, args, targetDatabase)
			if err != nil {
				return err
			}
			store, err := openBackend(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer closeBackend(store)

			service := inspectapp.NewService(store, schema.Renderer{}, canonicaljson.Canonicalizer{}, schemadiff.Differ{})
			var plan inspectapp.Plan
			progress := newRenderer(cmd.ErrOrStderr(), opts.JSONOutput)
			err = progress.busy(ctx, "Comparing", func() error {
				var err error
				plan, err = service.Plan(ctx, specs)
				return err
			})
			if err != nil {
				return err
			}
			return writePlanResult(cmd, plan, opts.JSONOutput)
		},
	}
	cmd.Flags().StringVar(&targetDatabase, "target-database", "", "Compare every collection in this database")
	return cmd
}

func newVerifyCmd(opts *RootOptions) *cobra.Command {
	var targetDatabase string
	cmd := &cobra.Command{
		Use:   "verify " + catalogArgs,
		Short: "Check that the planner uses each declared index for range queries",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			specs, err := loadSpecs(ctx, cmd, opts.cfg, args, targetDatabase)
			if err != nil {
				return err
			}
			store, err := openBackend(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer closeBackend(store)

			service := verifyapp.NewService(store)
			var result verifyapp.Result
			progress := newRenderer(cmd.ErrOrStderr(), opts.JSONOutput)
			err = progress.busy(ctx, "Verifying indexes", func() error {
				var err error
				result, err = service.Verify(ctx, specs)
				return err
			})
			if err != nil {
				return err
			}
			if err := writeVerifyResult(cmd, result, opts.JSONOutput); err != nil {
				return err
			}
			if len(result.Issues) > 0 {
				return ExitError{
					Code:    ExitIndex,
					Kind:    KindIndex,
					Message: fmt.Sprintf("%d of %d index(es) not used by the planner", len(result.Issues), result.Indexes),
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&targetDatabase, "target-database", "", "Verify every collection in this database")
	return cmd
}

func newCatalogCmd(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect built-in and file catalogs",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  runHelp,
	}
	cmd.AddCommand(newCatalogListCmd(opts), newCatalogShowCmd(opts))
	return cmd
}

func newCatalogListCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List built-in catalogs",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := catalog.Builtins{}.Names()
			out := cmd.OutOrStdout()
			if opts.JSONOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(catalogListOutput{Catalogs: names})
			}
			ui := newRenderer(out, false)
			for _, name := range names {
				if _, err := fmt.Fprintln(out, ui.key(name)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCatalogShowCmd(opts *RootOptions) *cobra.Command {
	var targetDatabase string
	cmd := &cobra.Command{
		Use:   "show " + catalogArgs,
		Short: "Print the validators and indexes a catalog declares",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			specs, err := loadSpecs(ctx, cmd, opts.cfg, args, targetDatabase)
			if err != nil {
				return err
			}
			entries := make([]catalogEntryOutput, 0, len(specs))
			for _, spec := range specs {
				entry, err := describeSpec(ctx, spec)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			return writeCatalogShow(cmd, entries, opts.JSONOutput)
		},
	}
	cmd.Flags().StringVar(&targetDatabase, "target-database", "", "Show every collection in this database")
	return cmd
}

func newHistoryCmd(opts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded provisioning runs, newest first",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			journal, err := openJournal(opts.cfg)
			if err != nil {
				return err
			}
			var reader historyapp.Reader
			if journal != nil {
				defer journal.Close()
				reader = journal
			}

			records, err := historyapp.NewService(reader).List(ctx, limit)
			if err != nil {
				return err
			}
			return writeHistoryResult(cmd, records, opts.JSONOutput)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", historyapp.DefaultLimit, "Maximum number of runs to show")
	return cmd
}

func describeSpec(ctx context.Context, spec domain.CollectionSpec) (catalogEntryOutput, error) {
	rendered, err := schema.Renderer{}.Render(ctx, spec.Validator)
	if err != nil {
		return catalogEntryOutput{}, err
	}
	canonical, err := canonicaljson.Canonicalizer{}.Canonicalize(ctx, rendered)
	if err != nil {
		return catalogEntryOutput{}, err
	}
	entry := catalogEntryOutput{
		Database:    spec.Database,
		Collection:  spec.Collection,
		Fingerprint: hash.SHA256{}.SumHex(canonical),
		Validator:   rawJSON(rendered),
		Indexes:     make([]indexOutput, 0, len(spec.Indexes)),
	}
	for _, index := range spec.Indexes {
		entry.Indexes = append(entry.Indexes, indexOutput{
			Name:      index.Name(),
			Field:     index.Field,
			Direction: int(index.Direction),
		})
	}
	return entry, nil
}

type indexOutput struct {
	Name      string `json:"name"`
	Field     string `json:"field"`
	Direction int    `json:"direction"`
	Action    string `json:"action,omitempty"`
	Status    string `json:"status,omitempty"`
	LiveName  string `json:"live_name,omitempty"`
}

type applyOutput struct {
	Results []applyResultOutput `json:"results"`
	Failed  bool                `json:"failed,omitempty"`
}

type applyResultOutput struct {
	RunID       string        `json:"run_id,omitempty"`
	Database    string        `json:"database"`
	Collection  string        `json:"collection"`
	Action      string        `json:"action,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	DurationMS  int64         `json:"duration_ms"`
	Indexes     []indexOutput `json:"indexes"`
}

type planOutput struct {
	InSync      bool                 `json:"in_sync"`
	Collections []planCollectionJSON `json:"collections"`
}

type planCollectionJSON struct {
	Database   string          `json:"database"`
	Collection string          `json:"collection"`
	Status     string          `json:"status"`
	Diff       json.RawMessage `json:"diff,omitempty"`
	Indexes    []indexOutput   `json:"indexes"`
	Extra      []string        `json:"extra_indexes,omitempty"`
}

type verifyOutput struct {
	Indexes  int                 `json:"indexes"`
	Verified int                 `json:"verified"`
	Issues   []verifyIssueOutput `json:"issues,omitempty"`
}

type verifyIssueOutput struct {
	Namespace string `json:"namespace"`
	Field     string `json:"field"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type catalogListOutput struct {
	Catalogs []string `json:"catalogs"`
}

type catalogShowOutput struct {
	Collections []catalogEntryOutput `json:"collections"`
}

type catalogEntryOutput struct {
	Database    string          `json:"database"`
	Collection  string          `json:"collection"`
	Fingerprint string          `json:"fingerprint"`
	Validator   json.RawMessage `json:"validator"`
	Indexes     []indexOutput   `json:"indexes"`
}

type historyOutput struct {
	Runs []historyRunOutput `json:"runs"`
}

type historyRunOutput struct {
	RunID           string `json:"run_id"`
	StartedAt       string `json:"started_at"`
	DurationMS      int64  `json:"duration_ms"`
	Database        string `json:"database"`
	Collection      string `json:"collection"`
	Action          string `json:"action,omitempty"`
	IndexesCreated  int    `json:"indexes_created"`
	IndexesExisting int    `json:"indexes_existing"`
	Fingerprint     string `json:"fingerprint,omitempty"`
	Status          string `json:"status"`
	Error           string `json:"error,omitempty"`
}

func writeApplyResult(cmd *cobra.Command, results []provision.Result, runErr error, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := applyOutput{
			Results: make([]applyResultOutput, 0, len(results)),
			Failed:  runErr != nil,
		}
		for _, result := range results {
			entry := applyResultOutput{
				RunID:       result.RunID,
				Database:    result.Database,
				Collection:  result.Collection,
				Action:      string(result.CollectionAction),
				Fingerprint: result.Fingerprint,
				DurationMS:  result.Duration.Milliseconds(),
				Indexes:     make([]indexOutput, 0, len(result.Indexes)),
			}
			for _, index := range result.Indexes {
				entry.Indexes = append(entry.Indexes, indexOutput{
					Name:      index.Name,
					Field:     index.Field,
					Direction: int(index.Direction),
					Action:    string(index.Action),
				})
			}
			payload.Results = append(payload.Results, entry)
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	ui := newRenderer(out, asJSON)
	for _, result := range results {
		namespace := result.Database + "." + result.Collection
		if result.CollectionAction == "" {
			if _, err := fmt.Fprintf(out, "%s %s\n", ui.key(namespace), ui.err("failed")); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %s %s\n", ui.key(namespace), colorAction(ui, string(result.CollectionAction)), ui.dim(hash.Short(result.Fingerprint))); err != nil {
			return err
		}
		for _, index := range result.Indexes {
			if _, err := fmt.Fprintf(out, "  index %s %s\n", index.Name, colorAction(ui, string(index.Action))); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		return nil
	}
	_, err := fmt.Fprintf(out, "%s: %d collection(s) provisioned\n", ui.ok("OK"), len(results))
	return err
}

func writePlanResult(cmd *cobra.Command, plan inspectapp.Plan, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := planOutput{
			InSync:      plan.InSync(),
			Collections: make([]planCollectionJSON, 0, len(plan.Collections)),
		}
		for _, coll := range plan.Collections {
			entry := planCollectionJSON{
				Database:   coll.Database,
				Collection: coll.Collection,
				Status:     string(coll.Status),
				Diff:       rawJSON(coll.Diff),
				Indexes:    make([]indexOutput, 0, len(coll.Indexes)),
				Extra:      coll.Extra,
			}
			for _, index := range coll.Indexes {
				entry.Indexes = append(entry.Indexes, indexOutput{
					Name:      index.Name,
					Field:     index.Field,
					Direction: int(index.Direction),
					Status:    string(index.Status),
					LiveName:  index.LiveName,
				})
			}
			payload.Collections = append(payload.Collections, entry)
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	ui := newRenderer(out, asJSON)
	for _, coll := range plan.Collections {
		if _, err := fmt.Fprintf(out, "%s %s\n", ui.key(coll.Namespace()), colorStatus(ui, string(coll.Status))); err != nil {
			return err
		}
		if len(coll.Diff) > 0 {
			if _, err := fmt.Fprintf(out, "  diff %s\n", ui.dim(string(coll.Diff))); err != nil {
				return err
			}
		}
		for _, index := range coll.Indexes {
			name := index.Name
			if index.LiveName != "" && index.LiveName != index.Name {
				name = fmt.Sprintf("%s (as %s)", index.Name, index.LiveName)
			}
			if _, err := fmt.Fprintf(out, "  index %s %s\n", name, colorStatus(ui, string(index.Status))); err != nil {
				return err
			}
		}
		for _, extra := range coll.Extra {
			if _, err := fmt.Fprintf(out, "  extra %s\n", ui.dim(extra)); err != nil {
				return err
			}
		}
	}
	if plan.InSync() {
		_, err := fmt.Fprintf(out, "%s: nothing to change\n", ui.ok("OK"))
		return err
	}
	if conflicts := plan.Conflicts(); conflicts > 0 {
		_, err := fmt.Fprintf(out, "%s: %d conflicting validator(s); apply needs --on-conflict overwrite\n", ui.warn("Conflicts"), conflicts)
		return err
	}
	_, err := fmt.Fprintf(out, "%s: apply would make changes\n", ui.warn("Pending"))
	return err
}

func writeVerifyResult(cmd *cobra.Command, result verifyapp.Result, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := verifyOutput{
			Indexes:  result.Indexes,
			Verified: result.Verified,
			Issues:   make([]verifyIssueOutput, 0, len(result.Issues)),
		}
		for _, issue := range result.Issues {
			payload.Issues = append(payload.Issues, verifyIssueOutput{
				Namespace: issue.Namespace,
				Field:     issue.Field,
				Code:      issue.Code,
				Message:   issue.Message,
			})
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	ui := newRenderer(out, asJSON)
	if result.Indexes > 0 {
		if _, err := fmt.Fprintf(out, "%s %s %d/%d\n", ui.key("Indexes"), ui.coverage(result.Verified, result.Indexes, 24), result.Verified, result.Indexes); err != nil {
			return err
		}
	}
	if len(result.Issues) == 0 {
		_, err := fmt.Fprintf(out, "%s: %d index(es) used by the planner\n", ui.ok("OK"), result.Indexes)
		return err
	}
	for _, issue := range result.Issues {
		code := issue.Code
		if ui.color {
			code = ui.err(code)
		}
		if _, err := fmt.Fprintf(out, "- %s.%s [%s] %s\n", issue.Namespace, issue.Field, code, issue.Message); err != nil {
			return err
		}
	}
	return nil
}

func writeCatalogShow(cmd *cobra.Command, entries []catalogEntryOutput, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(catalogShowOutput{Collections: entries})
	}

	ui := newRenderer(out, asJSON)
	for _, entry := range entries {
		if err := writeKV(out, ui, "Collection", entry.Database+"."+entry.Collection); err != nil {
			return err
		}
		if err := writeKV(out, ui, "Fingerprint", hash.Short(entry.Fingerprint)); err != nil {
			return err
		}
		validator, err := json.MarshalIndent(entry.Validator, "", "  ")
		if err != nil {
			return err
		}
		if err := writeKV(out, ui, "Validator", string(validator)); err != nil {
			return err
		}
		for _, index := range entry.Indexes {
			if err := writeKV(out, ui, "Index", index.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeHistoryResult(cmd *cobra.Command, records []domain.RunRecord, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		payload := historyOutput{Runs: make([]historyRunOutput, 0, len(records))}
		for _, record := range records {
			payload.Runs = append(payload.Runs, historyRunOutput{
				RunID:           record.RunID,
				StartedAt:       record.StartedAt.Format(time.RFC3339Nano),
				DurationMS:      record.Duration.Milliseconds(),
				Database:        record.Database,
				Collection:      record.Collection,
				Action:          string(record.CollectionAction),
				IndexesCreated:  record.IndexesCreated,
				IndexesExisting: record.IndexesExisting,
				Fingerprint:     record.Fingerprint,
				Status:          string(record.Status),
				Error:           record.Error,
			})
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	}

	ui := newRenderer(out, asJSON)
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, ui.dim("(no runs recorded)"))
		return err
	}
	for _, record := range records {
		status := ui.ok(string(record.Status))
		if record.Status == domain.RunFailed {
			status = ui.err(string(record.Status))
		}
		line := fmt.Sprintf("%s %s %s.%s %s", ui.dim(record.RunID), record.StartedAt.Format(time.RFC3339), record.Database, record.Collection, status)
		if record.CollectionAction != "" {
			line += fmt.Sprintf(" %s +%d/=%d", colorAction(ui, string(record.CollectionAction)), record.IndexesCreated, record.IndexesExisting)
		}
		if record.Error != "" {
			line += " " + ui.dim(record.Error)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func writeKV(out io.Writer, ui renderer, key, value string) error {
	_, err := fmt.Fprintf(out, "%s: %s\n", ui.key(key), value)
	return err
}

func colorAction(ui renderer, action string) string {
	switch action {
	case string(domain.CollectionCreated):
		return ui.ok(action)
	case string(domain.CollectionUpdated):
		return ui.warn(action)
	default:
		return ui.dim(action)
	}
}

func colorStatus(ui renderer, status string) string {
	switch status {
	case string(inspectapp.CollectionMatch), string(inspectapp.IndexPresent):
		return ui.ok(status)
	case string(inspectapp.CollectionConflict):
		return ui.err(status)
	default:
		return ui.warn(status)
	}
}

func rawJSON(data []byte) json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	return json.RawMessage(data)
}

func runHelp(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}
