package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/config"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/index"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/priority"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/processor"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/resolver"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/schema"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/store"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/watcher"
)

var (
	// Global flags
	verbose     bool
	workspace   string
	templateDir string
	configPath  string
	timeout     time.Duration

	// resolve flags
	mergeStrategy string
	params        []string
	processed     bool

	// batch flags
	batchConcurrency int
	batchTimeout     time.Duration

	// search flags
	searchCategories []string
	searchTags       []string
	searchAuthor     string
	searchMinPrio    int
	searchMaxPrio    int
	searchActiveOnly bool

	// validate flags
	schemaPath    string
	hierarchyPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rtb",
	Short: "RTB - priority-based RAN template inheritance and merge engine",
	Long: `rtb resolves hierarchical RAN configuration templates.

Templates carry a priority level (0-80, lower wins) and may inherit from
parents. Resolution walks the inheritance chain depth-first, merges
parameters child-wins, records conflicts, and surfaces non-fatal
irregularities (cycles, missing parents, priority inversions) as
warnings.

Templates are loaded from the template directory (--templates, default
<workspace>/.rtb/templates) before each command runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if workspace == "" {
			workspace, _ = os.Getwd()
		}
		return logging.Initialize(workspace)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// resolveCmd resolves one template's inheritance chain
var resolveCmd = &cobra.Command{
	Use:   "resolve [template]",
	Short: "Resolve a template's inheritance chain to a merged configuration",
	Long: `Resolves the named template: walks its parents depth-first, merges
parameters child-wins, and prints the resolved chain as JSON.

Examples:
  rtb resolve urban_site
  rtb resolve urban_site --strategy merge --param environment=production
  rtb resolve urban_site --processed`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

// batchCmd resolves several templates concurrently
var batchCmd = &cobra.Command{
	Use:   "batch [templates...]",
	Short: "Resolve multiple templates concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

// searchCmd searches the template indexes
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search registered templates by facet",
	Long: `Searches the facet indexes and prints ranked results with facet
counts.

Examples:
  rtb search --category radio --tag urban
  rtb search --min-priority 0 --max-priority 30`,
	RunE: runSearch,
}

// validateCmd checks template files and optionally a resolved chain
var validateCmd = &cobra.Command{
	Use:   "validate [template]",
	Short: "Validate template files, optionally against a parameter schema",
	Long: `Without arguments, parses and registers every template file and
reports failures. With a template name plus --schema/--hierarchy,
additionally resolves the template and validates the merged
configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

// functionsCmd lists built-in evaluation functions
var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List built-in evaluation functions",
	RunE:  runFunctions,
}

// statusCmd summarizes the loaded store
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show registered templates and cache statistics",
	RunE:  runStatus,
}

// watchCmd keeps the store synchronized with the template directory
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the template directory and reload templates on change",
	RunE:  runWatch,
}

// initCmd writes a default configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .rtb workspace directory",
	RunE:  runInit,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&templateDir, "templates", "", "Template directory (default: <workspace>/.rtb/templates)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.rtb/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Minute, "Operation timeout")

	resolveCmd.Flags().StringVar(&mergeStrategy, "strategy", "", "Context merge strategy: override, merge, append")
	resolveCmd.Flags().StringSliceVar(&params, "param", nil, "Context parameter key=value (repeatable)")
	resolveCmd.Flags().BoolVar(&processed, "processed", false, "Apply conditionals and evaluations to the resolved configuration")

	batchCmd.Flags().StringVar(&mergeStrategy, "strategy", "", "Context merge strategy: override, merge, append")
	batchCmd.Flags().StringSliceVar(&params, "param", nil, "Context parameter key=value (repeatable)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "Max concurrent resolutions (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "item-timeout", 0, "Per-item timeout (default from config)")

	searchCmd.Flags().StringSliceVar(&searchCategories, "category", nil, "Filter by category (repeatable, OR within)")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "Filter by tag (repeatable, OR within)")
	searchCmd.Flags().StringVar(&searchAuthor, "author", "", "Filter by author")
	searchCmd.Flags().IntVar(&searchMinPrio, "min-priority", -1, "Minimum priority level")
	searchCmd.Flags().IntVar(&searchMaxPrio, "max-priority", -1, "Maximum priority level")
	searchCmd.Flags().BoolVar(&searchActiveOnly, "active", false, "Only active templates")

	validateCmd.Flags().StringVar(&schemaPath, "schema", "", "Parameter schema JSON file")
	validateCmd.Flags().StringVar(&hierarchyPath, "hierarchy", "", "MO hierarchy JSON file")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// engine bundles the components a command needs.
type engine struct {
	cfg   *config.Config
	store *store.TemplateStore
	res   *resolver.Resolver
	proc  *processor.Processor
}

// setup loads configuration, opens the store, and registers every
// template file from the template directory.
func setup(loadTemplates bool) (*engine, error) {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = workspace + "/.rtb/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	opts := store.Options{
		CacheSize: cfg.Cache.MaxSize,
		CacheTTL:  cfg.Cache.TTLDuration(),
	}
	if cfg.Audit.Enabled {
		opts.AuditPath = cfg.Audit.DatabasePath
	}
	st, err := store.NewStore(opts)
	if err != nil {
		return nil, err
	}

	eng := &engine{
		cfg:   cfg,
		store: st,
		res:   resolver.New(st),
		proc:  processor.New(processor.WithFunctionTimeout(cfg.Functions.TimeoutDuration())),
	}

	if loadTemplates {
		dir := eng.templateDir()
		tpls, prios, err := processor.LoadTemplateDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("template directory missing", zap.String("dir", dir))
				return eng, nil
			}
			return nil, err
		}
		for i, tpl := range tpls {
			if err := st.Register(tpl.Name, tpl, prios[i]); err != nil {
				logger.Warn("skipping template", zap.String("name", tpl.Name), zap.Error(err))
			}
		}
		logger.Debug("templates loaded", zap.Int("count", st.Len()), zap.String("dir", dir))
	}
	return eng, nil
}

func (e *engine) templateDir() string {
	if templateDir != "" {
		return templateDir
	}
	if e.cfg.Watcher.Dir != "" {
		return e.cfg.Watcher.Dir
	}
	return workspace + "/.rtb/templates"
}

func (e *engine) close() {
	if err := e.store.Close(); err != nil {
		logger.Warn("closing store", zap.Error(err))
	}
}

// parseContext builds a ResolutionContext from --strategy and --param
// flags. Values parse as JSON first, falling back to plain strings.
func parseContext() (rtbtypes.ResolutionContext, error) {
	rctx := rtbtypes.ResolutionContext{MergeStrategy: mergeStrategy}
	if len(params) > 0 {
		rctx.Params = make(map[string]rtbtypes.ConfigValue, len(params))
	}
	for _, p := range params {
		key, raw, found := strings.Cut(p, "=")
		if !found || key == "" {
			return rctx, fmt.Errorf("invalid --param %q (expected key=value)", p)
		}
		var v rtbtypes.ConfigValue
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = rtbtypes.String(raw)
		}
		rctx.Params[key] = v
	}
	return rctx, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	eng, err := setup(true)
	if err != nil {
		return err
	}
	defer eng.close()

	rctx, err := parseContext()
	if err != nil {
		return err
	}

	chain, err := eng.res.ResolveInheritanceChain(ctx, args[0], rctx)
	if err != nil {
		return err
	}
	logger.Info("template resolved",
		zap.String("template", args[0]),
		zap.Int("chain", len(chain.Chain)),
		zap.Int("conflicts", len(chain.Conflicts)),
		zap.Int("warnings", len(chain.Warnings)))

	if !processed {
		return printJSON(chain)
	}

	final, warnings, err := eng.proc.Process(ctx, chain, rctx)
	if err != nil {
		return err
	}
	out := struct {
		TemplateName  string                          `json:"template_name"`
		Chain         []rtbtypes.PriorityInfo         `json:"chain"`
		Configuration map[string]rtbtypes.ConfigValue `json:"configuration"`
		Conflicts     []rtbtypes.ConflictRecord       `json:"conflicts"`
		Warnings      []rtbtypes.Warning              `json:"warnings"`
	}{chain.TemplateName, chain.Chain, final, chain.Conflicts, append(chain.Warnings, warnings...)}
	return printJSON(out)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	eng, err := setup(true)
	if err != nil {
		return err
	}
	defer eng.close()

	rctx, err := parseContext()
	if err != nil {
		return err
	}

	opts := resolver.BatchOptions{
		Concurrency: eng.cfg.Batch.Concurrency,
		ItemTimeout: eng.cfg.Batch.ItemTimeoutDuration(),
	}
	if batchConcurrency > 0 {
		opts.Concurrency = batchConcurrency
	}
	if batchTimeout > 0 {
		opts.ItemTimeout = batchTimeout
	}

	result := eng.res.ResolveBatch(ctx, args, rctx, opts)
	logger.Info("batch finished",
		zap.Int("resolved", result.Resolved),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", result.Duration))

	type batchOut struct {
		Name     string                     `json:"name"`
		Error    string                     `json:"error,omitempty"`
		Duration time.Duration              `json:"duration_ns"`
		Chain    *rtbtypes.InheritanceChain `json:"chain,omitempty"`
	}
	out := make([]batchOut, len(result.Items))
	for i, item := range result.Items {
		out[i] = batchOut{Name: item.Name, Duration: item.Duration, Chain: item.Chain}
		if item.Err != nil {
			out[i].Error = item.Err.Error()
		}
	}
	return printJSON(out)
}

func runSearch(cmd *cobra.Command, args []string) error {
	eng, err := setup(true)
	if err != nil {
		return err
	}
	defer eng.close()

	f := index.Filter{
		Categories: searchCategories,
		Tags:       searchTags,
		Author:     searchAuthor,
	}
	if searchMinPrio >= 0 {
		f.PriorityMin = &searchMinPrio
	}
	if searchMaxPrio >= 0 {
		f.PriorityMax = &searchMaxPrio
	}
	if searchActiveOnly {
		t := true
		f.IsActive = &t
	}

	res := eng.store.Search(f)
	logger.Info("search finished", zap.Int("results", res.Total))
	return printJSON(res)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	eng, err := setup(false)
	if err != nil {
		return err
	}
	defer eng.close()

	dir := eng.templateDir()
	tpls, prios, err := processor.LoadTemplateDir(dir)
	if err != nil {
		return err
	}

	failures := 0
	for i, tpl := range tpls {
		if err := eng.store.Register(tpl.Name, tpl, prios[i]); err != nil {
			failures++
			fmt.Printf("FAIL  %s: %v\n", tpl.Name, err)
			continue
		}
		fmt.Printf("OK    %s (level %d)\n", tpl.Name, prios[i].Level)
	}
	fmt.Printf("%d templates, %d failures\n", len(tpls), failures)

	if len(args) == 0 {
		if failures > 0 {
			return fmt.Errorf("%d templates failed validation", failures)
		}
		return nil
	}

	// Resolve the named template and validate the merged configuration.
	chain, err := eng.res.ResolveInheritanceChain(ctx, args[0], rtbtypes.ResolutionContext{})
	if err != nil {
		return err
	}
	provider, hierarchy, err := loadValidationInputs()
	if err != nil {
		return err
	}
	result := schema.Validate(chain, provider, hierarchy)
	for _, e := range result.Errors {
		fmt.Printf("ERROR %s\n", e)
	}
	for _, w := range result.Warnings {
		fmt.Printf("WARN  %s\n", w.Message)
	}
	if !result.Valid {
		return fmt.Errorf("resolved configuration for %s is invalid", args[0])
	}
	fmt.Printf("resolved configuration for %s is valid\n", args[0])
	return nil
}

// loadValidationInputs reads optional --schema and --hierarchy files.
func loadValidationInputs() (schema.Provider, schema.HierarchyValidator, error) {
	var provider schema.Provider
	var hierarchy schema.HierarchyValidator
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading schema: %w", err)
		}
		var schemas map[string]schema.ParameterSchema
		if err := json.Unmarshal(data, &schemas); err != nil {
			return nil, nil, fmt.Errorf("parsing schema: %w", err)
		}
		provider = schema.StaticProvider{Schemas: schemas}
	}
	if hierarchyPath != "" {
		data, err := os.ReadFile(hierarchyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading hierarchy: %w", err)
		}
		var h schema.MOHierarchy
		if err := json.Unmarshal(data, &h); err != nil {
			return nil, nil, fmt.Errorf("parsing hierarchy: %w", err)
		}
		hierarchy = &h
	}
	return provider, hierarchy, nil
}

func runFunctions(cmd *cobra.Command, args []string) error {
	p := processor.New()
	for _, name := range p.Builtins() {
		fmt.Println(name)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := setup(true)
	if err != nil {
		return err
	}
	defer eng.close()

	names := eng.store.Names()
	sort.Strings(names)
	fmt.Printf("templates: %d\n", len(names))
	for _, name := range names {
		prio, _ := eng.store.Priority(name)
		line := fmt.Sprintf("  %-30s level %-3d %s", name, prio.Level, priority.Name(prio.Level))
		if len(prio.InheritsFrom) > 0 {
			line += " <- " + strings.Join(prio.InheritsFrom, ", ")
		}
		fmt.Println(line)
	}

	stats := eng.store.Cache().Stats()
	fmt.Printf("cache: %d entries, %d hits, %d misses, %d evictions\n",
		eng.store.Cache().Len(), stats.Hits, stats.Misses, stats.Evictions)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	eng, err := setup(false)
	if err != nil {
		return err
	}
	defer eng.close()

	tw, err := watcher.New(eng.templateDir(), eng.store, eng.cfg.Watcher.DebounceDuration())
	if err != nil {
		return err
	}
	if err := tw.Start(ctx); err != nil {
		return err
	}
	defer tw.Stop()

	logger.Info("watching", zap.String("dir", eng.templateDir()))
	<-ctx.Done()
	stats := tw.GetStats()
	logger.Info("watcher exiting",
		zap.Int("loaded", stats.FilesLoaded),
		zap.Int("removed", stats.FilesRemoved),
		zap.Int("failures", stats.LoadFailures))
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := workspace + "/.rtb"
	if err := os.MkdirAll(dir+"/templates", 0755); err != nil {
		return err
	}
	cfgPath := dir + "/config.yaml"
	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("config already exists: %s\n", cfgPath)
		return nil
	}
	cfg := config.DefaultConfig()
	if err := cfg.Save(cfgPath); err != nil {
		return err
	}
	fmt.Printf("initialized %s\n", dir)
	return nil
}

// signalContext derives a context cancelled by the timeout flag or an
// interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
