// Command formexpr resolves the expressions embedded in a form layout page
// against form data, instance context and application settings, and prints
// the resolved layout as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/torbjokv/formexpr/internal/expressions"
	"github.com/torbjokv/formexpr/internal/formdata"
	"github.com/torbjokv/formexpr/internal/layout"
	"github.com/torbjokv/formexpr/internal/logging"
	"github.com/torbjokv/formexpr/internal/rules"
	"github.com/torbjokv/formexpr/internal/store"
	"github.com/torbjokv/formexpr/internal/validation"
	"github.com/torbjokv/formexpr/pkg/schema"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "formexpr:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		layoutPath   = flag.String("layout", "", "layout page JSON file (required)")
		dataPath     = flag.String("data", "", "form data JSON file (flat path->value map)")
		defaultsPath = flag.String("defaults", "", "default value map JSON file")
		instancePath = flag.String("instance", "", "instance JSON file")
		instanceID   = flag.String("instance-id", "", "load instance with this id from the store")
		settingsFile = flag.String("settings", "", "application settings JSON file")
		rulesPath    = flag.String("rules", "", "legacy conditional rendering rules JSON file")
		dbPath       = flag.String("db", "", "store path (overrides config)")
		save         = flag.Bool("save", false, "persist the given instance and settings to the store")
		queryExpr    = flag.String("query", "", "jq filter applied to the resolved output")
		logLevel     = flag.String("log-level", "", "log level (overrides config)")
	)
	flag.Parse()

	cfg := loadConfig()
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if *layoutPath == "" {
		return fmt.Errorf("-layout is required")
	}

	ctx := context.Background()

	rawLayout, err := os.ReadFile(*layoutPath)
	if err != nil {
		return err
	}

	validator, err := validation.NewLayoutValidator()
	if err != nil {
		return err
	}
	if err := validator.ValidatePage(rawLayout); err != nil {
		return err
	}

	var page schema.LayoutPage
	if err := json.Unmarshal(rawLayout, &page); err != nil {
		return fmt.Errorf("decode layout page: %w", err)
	}

	fd, err := loadFormData(*dataPath)
	if err != nil {
		return err
	}
	defaults, err := loadDefaults(*defaultsPath)
	if err != nil {
		return err
	}

	inst, settings, err := loadInstanceAndSettings(ctx, cfg, *instancePath, *settingsFile, *instanceID, *save)
	if err != nil {
		return err
	}
	if inst != nil {
		ctx = logging.WithInstanceID(ctx, inst.ID)
	}

	tree, err := layout.Generate(&page, fd)
	if err != nil {
		return err
	}

	sources := &expressions.Sources{
		FormData: fd,
		Instance: inst,
		Settings: expressions.SettingsMap(settings),
	}

	resolved, err := resolvePage(tree, defaults, sources, logger)
	if err != nil {
		return err
	}

	if *rulesPath != "" {
		resolved, err = applyRules(ctx, *rulesPath, resolved, fd)
		if err != nil {
			return err
		}
	}

	var out any = map[string]any{"layout": resolved}
	if *queryExpr != "" {
		out, err = runQuery(ctx, *queryExpr, out)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// resolvePage resolves every generated node's configuration, binding each
// node so component and dataModel lookups work.
func resolvePage(tree *layout.Tree, defaults map[string]any, sources *expressions.Sources, logger *slog.Logger) ([]any, error) {
	var resolved []any
	for _, node := range tree.All() {
		raw, err := json.Marshal(node.Component())
		if err != nil {
			return nil, err
		}
		var config map[string]any
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, err
		}
		config["id"] = node.ID()

		out, err := expressions.Resolve(config, defaults, expressions.NodeBinding(node), sources,
			expressions.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, out)
	}
	return resolved, nil
}

// rowSuffixPattern strips the "-{row}" suffixes repeating groups append to
// node identifiers.
var rowSuffixPattern = regexp.MustCompile(`(-\d+)+$`)

// applyRules evaluates legacy conditional rendering rules against the form
// data and overrides the hidden property of the targeted components. Rule
// targets address components by their layout id; row-expanded nodes match on
// the id prefix before the row suffixes.
func applyRules(ctx context.Context, path string, resolved []any, fd formdata.FormData) ([]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ruleSet []rules.Rule
	if err := json.Unmarshal(raw, &ruleSet); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	hidden, err := rules.NewEngine().Hidden(ctx, ruleSet, fd.AsAnyMap())
	if err != nil {
		return nil, err
	}

	for _, entry := range resolved {
		config, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, _ := config["id"].(string)
		verdict, ok := hidden[id]
		if !ok {
			verdict, ok = hidden[rowSuffixPattern.ReplaceAllString(id, "")]
			if !ok {
				continue
			}
		}
		config["hidden"] = verdict
	}
	return resolved, nil
}

func loadFormData(path string) (formdata.FormData, error) {
	if path == "" {
		return formdata.New(nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode form data: %w", err)
	}
	return formdata.New(m), nil
}

func loadDefaults(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode defaults map: %w", err)
	}
	return m, nil
}

// loadInstanceAndSettings reads the instance and settings from files when
// given, otherwise from the store. With -save, file contents are persisted
// to the store for later runs.
func loadInstanceAndSettings(ctx context.Context, cfg Config, instancePath, settingsFile, instanceID string, save bool) (*schema.Instance, map[string]string, error) {
	var inst *schema.Instance
	settings := map[string]string{}

	if instancePath != "" {
		raw, err := os.ReadFile(instancePath)
		if err != nil {
			return nil, nil, err
		}
		inst = &schema.Instance{}
		if err := json.Unmarshal(raw, inst); err != nil {
			return nil, nil, fmt.Errorf("decode instance: %w", err)
		}
		if err := inst.Validate(); err != nil {
			return nil, nil, err
		}
	}
	if settingsFile != "" {
		raw, err := os.ReadFile(settingsFile)
		if err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal(raw, &settings); err != nil {
			return nil, nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	needsStore := save || (inst == nil && instanceID != "") || (settingsFile == "" && instanceID != "")
	if !needsStore {
		return inst, settings, nil
	}

	s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	if save {
		if inst != nil {
			if err := s.PutInstance(ctx, inst); err != nil {
				return nil, nil, err
			}
		}
		for k, v := range settings {
			if err := s.PutSetting(ctx, k, v); err != nil {
				return nil, nil, err
			}
		}
	}

	if inst == nil && instanceID != "" {
		inst, err = s.GetInstance(ctx, instanceID)
		if err != nil {
			return nil, nil, err
		}
	}
	if settingsFile == "" {
		stored, err := s.Settings(ctx)
		if err != nil {
			return nil, nil, err
		}
		settings = stored
	}

	return inst, settings, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(handler))
}
