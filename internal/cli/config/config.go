package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/net/html/charset"

	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
	"github.com/stackvity/mcp-discovery/pkg/util"
)

const (
	EnvPrefix         = "MCPDISCOVERY"
	DefaultConfigName = "mcp-discovery"
)

// LevelTrace sits below debug and is selected with --log-level trace.
const LevelTrace = slog.LevelDebug - 4

// logLevels maps the accepted --log-level values to slog levels.
var logLevels = map[string]slog.Level{
	"error": slog.LevelError,
	"warn":  slog.LevelWarn,
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
	"trace": LevelTrace,
}

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"verbose":         "verbose",
	"log-level":       "logLevel",
	"template":        "template",
	"template-file":   "templateFile",
	"template-string": "templateString",
	"transport":       "transport",
	"endpoint":        "endpoint",
	"env-file":        "envFile",
	"startup-timeout": "startupTimeout",
	"snapshot":        "snapshot.load",
	"save-snapshot":   "snapshot.save",
	"snapshot-format": "snapshot.format",
	"filename":        "filename",
	"output-format":   "outputFormat",
}

// LoadAndValidate loads configuration from all sources (defaults, file, profile, env, flags),
// validates the merged configuration and sets up the logger.
// serverArgs, when non-empty, replace any configured server command.
func LoadAndValidate(cfgFile, profileName, appVersion string, mode discovery.Mode, serverArgs []string, flags *pflag.FlagSet) (discovery.Options, *slog.Logger, error) {
	var opts discovery.Options
	v := viper.New()

	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	// --- Load Config File ---
	if cfgFile != "" {
		v.SetConfigFile(util.ExpandHome(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			tempLogger.Error("Failed to get user home directory", slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) && cfgFile == "" {
			tempLogger.Debug("No configuration file found, using defaults/env/flags.")
		} else {
			configFileUsed := cfgFile
			if configFileUsed == "" {
				configFileUsed = fmt.Sprintf("searched locations for %s.yaml", DefaultConfigName)
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", configFileUsed), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error reading config file '%s': %w", configFileUsed, err)
		}
	} else {
		opts.ConfigFilePath = v.ConfigFileUsed()
	}

	// --- Apply Profile ---
	opts.ProfileName = profileName
	if profileName != "" {
		profileKey := "profiles." + profileName
		profileSettings := v.Sub(profileKey)
		if profileSettings == nil {
			configPath := v.ConfigFileUsed()
			if configPath == "" {
				configPath = "(no config file found)"
			}
			err := fmt.Errorf("%w: profile '%s' not found in config file '%s'", discovery.ErrConfigValidation, profileName, configPath)
			tempLogger.Error(err.Error())
			return opts, tempLogger, err
		}
		if err := v.MergeConfigMap(profileSettings.AllSettings()); err != nil {
			tempLogger.Error("Error merging profile", slog.String("profile", profileName), slog.Any("error", err))
			return opts, tempLogger, fmt.Errorf("error merging profile '%s': %w", profileName, err)
		}
	}

	// --- Bind Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Bind Flags (Highest Priority) ---
	if flags != nil {
		for flagName, key := range flagKeys {
			flag := flags.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				tempLogger.Error("Error binding flag", slog.String("flag", flagName), slog.Any("error", err))
				return opts, tempLogger, fmt.Errorf("error binding flag '--%s': %w", flagName, err)
			}
		}
	}

	opts.AppVersion = appVersion
	opts.Mode = mode
	if err := v.Unmarshal(&opts); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return opts, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	if len(serverArgs) > 0 {
		opts.Command = slices.Clone(serverArgs)
	}

	// Map-valued keys are read separately from Unmarshal.
	var err error
	if opts.Headers, err = parsePairs(v.Get("headers"), headerPairs); err != nil {
		return opts, tempLogger, configError(tempLogger, "headers", err)
	}
	if opts.Env, err = parsePairs(v.Get("env"), envPairs); err != nil {
		return opts, tempLogger, configError(tempLogger, "env", err)
	}
	if flags != nil {
		if err := applyPairFlag(flags, "header", headerPairs, opts.Headers); err != nil {
			return opts, tempLogger, configError(tempLogger, "headers", err)
		}
		if err := applyPairFlag(flags, "env", envPairs, opts.Env); err != nil {
			return opts, tempLogger, configError(tempLogger, "env", err)
		}
		if flags.Changed("verbose") {
			opts.Verbose, _ = flags.GetBool("verbose")
		}
		if flags.Changed("no-tui") {
			if noTui, _ := flags.GetBool("no-tui"); noTui {
				opts.TuiEnabled = false
			}
		}
	}

	// --- Setup Final Logger ---
	logLevel, ok := logLevels[strings.ToLower(opts.LogLevel)]
	if !ok {
		err := fmt.Errorf("%w: invalid value '%s' for key 'logLevel' (flag --log-level). Allowed: %v", discovery.ErrConfigValidation, opts.LogLevel, levelNames())
		tempLogger.Error(err.Error(), slog.String("key", "logLevel"), slog.String("value", opts.LogLevel))
		return opts, tempLogger, err
	}
	if opts.Verbose && logLevel > slog.LevelDebug {
		logLevel = slog.LevelDebug
	}
	logHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logHandler)
	opts.Logger = logHandler

	if opts.ConfigFilePath != "" {
		logger.Debug("Using configuration file", slog.String("path", opts.ConfigFilePath))
	}
	if opts.ProfileName != "" {
		logger.Debug("Applied configuration profile", slog.String("profile", opts.ProfileName))
	}

	if err := validateAndDeriveOptions(&opts, logger); err != nil {
		return opts, logger, err
	}

	logger.Debug("Configuration loading and validation complete",
		slog.String("mode", string(opts.Mode)),
		slog.String("transport", string(opts.Transport)),
		slog.Any("command", opts.Command),
		slog.String("filename", opts.Filename),
		slog.Duration("startupTimeout", opts.StartupTimeout),
		slog.Bool("tuiEnabled", opts.TuiEnabled),
	)
	return opts, logger, nil
}

// setDefaults establishes the default values for configuration options in Viper.
func setDefaults(v *viper.Viper) {
	// --- Server Launch ---
	v.SetDefault("command", []string{})
	v.SetDefault("transport", string(discovery.DefaultTransport))
	v.SetDefault("endpoint", "")
	v.SetDefault("envFile", "")
	v.SetDefault("startupTimeout", discovery.DefaultStartupTimeoutString)

	// --- Output & Templates ---
	v.SetDefault("filename", "")
	v.SetDefault("template", "")
	v.SetDefault("templateFile", "")
	v.SetDefault("templateString", "")
	v.SetDefault("outputFormat", string(discovery.DefaultOutputFormat))
	v.SetDefault("defaultEncoding", discovery.DefaultEncoding)

	// --- Behavior & Logging ---
	v.SetDefault("logLevel", discovery.DefaultLogLevel)
	v.SetDefault("verbose", discovery.DefaultVerbose)
	v.SetDefault("tuiEnabled", discovery.DefaultTuiEnabled)

	// --- Snapshots ---
	v.SetDefault("snapshot.load", "")
	v.SetDefault("snapshot.save", "")
	v.SetDefault("snapshot.format", "")
}

// isValidEnumValue checks if a given string value is present in a slice of allowed enum values.
// Case-sensitive comparison.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

// validateAndDeriveOptions checks the merged options and fills derived fields.
// Every returned error wraps discovery.ErrConfigValidation.
func validateAndDeriveOptions(opts *discovery.Options, logger *slog.Logger) error {
	if !isValidEnumValue(opts.Mode, []discovery.Mode{discovery.ModePrint, discovery.ModeCreate, discovery.ModeUpdate}) {
		err := fmt.Errorf("%w: unknown mode '%s'", discovery.ErrConfigValidation, opts.Mode)
		logger.Error(err.Error())
		return err
	}

	// --- Templates ---
	sources := 0
	for _, s := range []string{opts.Template, opts.TemplateFile, opts.TemplateString} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		err := fmt.Errorf("%w: only one of 'template' (--template), 'templateFile' (--template-file) and 'templateString' (--template-string) may be set", discovery.ErrConfigValidation)
		logger.Error(err.Error())
		return err
	}
	if opts.Template != "" {
		if _, err := template.ParseName(opts.Template); err != nil {
			err = fmt.Errorf("%w: invalid value '%s' for key 'template' (flag --template). Allowed: %v", discovery.ErrConfigValidation, opts.Template, template.NameStrings())
			logger.Error(err.Error(), slog.String("key", "template"), slog.String("value", opts.Template))
			return err
		}
	}
	opts.TemplateFile = util.ExpandHome(opts.TemplateFile)

	// --- Output ---
	opts.Filename = util.ExpandHome(opts.Filename)
	if opts.Mode != discovery.ModePrint && opts.Filename == "" {
		err := fmt.Errorf("%w: a filename (--filename) is required for %s", discovery.ErrConfigValidation, opts.Mode)
		logger.Error(err.Error(), slog.String("key", "filename"))
		return err
	}
	if !isValidEnumValue(opts.OutputFormat, []discovery.OutputFormat{discovery.OutputFormatText, discovery.OutputFormatJSON, discovery.OutputFormatYAML}) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'outputFormat' (flag --output-format). Allowed: [text json yaml]", discovery.ErrConfigValidation, opts.OutputFormat)
		logger.Error(err.Error(), slog.String("key", "outputFormat"), slog.String("value", string(opts.OutputFormat)))
		return err
	}
	if opts.DefaultEncoding != "" {
		if enc, _ := charset.Lookup(opts.DefaultEncoding); enc == nil {
			err := fmt.Errorf("%w: unknown encoding '%s' for key 'defaultEncoding'", discovery.ErrConfigValidation, opts.DefaultEncoding)
			logger.Error(err.Error(), slog.String("key", "defaultEncoding"), slog.String("value", opts.DefaultEncoding))
			return err
		}
	}

	// --- Snapshots ---
	if opts.Snapshot.Format != "" && !isValidEnumValue(opts.Snapshot.Format, []discovery.SnapshotFormat{discovery.SnapshotGob, discovery.SnapshotJSON}) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'snapshot.format' (flag --snapshot-format). Allowed: [gob json]", discovery.ErrConfigValidation, opts.Snapshot.Format)
		logger.Error(err.Error(), slog.String("key", "snapshot.format"), slog.String("value", string(opts.Snapshot.Format)))
		return err
	}
	opts.Snapshot.Load = util.ExpandHome(opts.Snapshot.Load)
	opts.Snapshot.Save = util.ExpandHome(opts.Snapshot.Save)

	// --- Server Launch ---
	if opts.Transport == "" {
		opts.Transport = discovery.DefaultTransport
	}
	if !isValidEnumValue(opts.Transport, []discovery.TransportKind{discovery.TransportCommand, discovery.TransportSSE, discovery.TransportStreamable}) {
		err := fmt.Errorf("%w: invalid value '%s' for key 'transport' (flag --transport). Allowed: [command sse streamable]", discovery.ErrConfigValidation, opts.Transport)
		logger.Error(err.Error(), slog.String("key", "transport"), slog.String("value", string(opts.Transport)))
		return err
	}
	opts.EnvFile = util.ExpandHome(opts.EnvFile)

	if opts.Snapshot.Load != "" {
		if len(opts.Command) > 0 || opts.Endpoint != "" {
			logger.Warn("Snapshot given, server command and endpoint are ignored", slog.String("snapshot", opts.Snapshot.Load))
		}
	} else if opts.Transport == discovery.TransportCommand && len(opts.Command) == 0 {
		err := fmt.Errorf("%w: no server command given (pass it after '--' or set 'command'), or use --snapshot", discovery.ErrConfigValidation)
		logger.Error(err.Error(), slog.String("key", "command"))
		return err
	} else if opts.Transport != discovery.TransportCommand && opts.Endpoint == "" {
		err := fmt.Errorf("%w: transport '%s' requires an endpoint (--endpoint)", discovery.ErrConfigValidation, opts.Transport)
		logger.Error(err.Error(), slog.String("key", "endpoint"))
		return err
	}

	timeout, parseErr := time.ParseDuration(opts.StartupTimeoutString)
	if parseErr != nil || timeout <= 0 {
		err := fmt.Errorf("%w: invalid duration '%s' for key 'startupTimeout' (flag --startup-timeout)", discovery.ErrConfigValidation, opts.StartupTimeoutString)
		logger.Error(err.Error(), slog.String("key", "startupTimeout"), slog.String("value", opts.StartupTimeoutString))
		return err
	}
	opts.StartupTimeout = timeout

	if opts.Verbose && opts.TuiEnabled {
		logger.Debug("Verbose mode enabled, TUI disabled")
		opts.TuiEnabled = false
	}
	return nil
}

// pairSyntax describes a map-valued key that may also be given as a list of
// "key<sep>value" strings.
type pairSyntax struct {
	sep       string
	mapKey    func(string) string // applied to keys of the mapping form; viper folds them to lower case
	listKey   func(string) string
	trimValue bool
}

var (
	headerPairs = pairSyntax{sep: ":", mapKey: http.CanonicalHeaderKey, listKey: http.CanonicalHeaderKey, trimValue: true}
	envPairs    = pairSyntax{sep: "=", mapKey: strings.ToUpper, listKey: func(s string) string { return s }}
)

// parsePairs reads a map-valued key given either as a mapping or as a list of pairs.
func parsePairs(raw any, syntax pairSyntax) (map[string]string, error) {
	out := map[string]string{}
	switch val := raw.(type) {
	case nil:
	case map[string]any:
		for k, item := range val {
			out[syntax.mapKey(k)] = fmt.Sprint(item)
		}
	case map[string]string:
		for k, item := range val {
			out[syntax.mapKey(k)] = item
		}
	case []any:
		for _, item := range val {
			if err := addPair(out, fmt.Sprint(item), syntax); err != nil {
				return nil, err
			}
		}
	case []string:
		for _, item := range val {
			if err := addPair(out, item, syntax); err != nil {
				return nil, err
			}
		}
	case string:
		if strings.TrimSpace(val) == "" {
			break
		}
		if err := addPair(out, val, syntax); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported value of type %T", raw)
	}
	return out, nil
}

func addPair(out map[string]string, pair string, syntax pairSyntax) error {
	key, value, ok := strings.Cut(pair, syntax.sep)
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("expected 'KEY%sVALUE', got '%s'", syntax.sep, pair)
	}
	if syntax.trimValue {
		value = strings.TrimSpace(value)
	}
	out[syntax.listKey(key)] = value
	return nil
}

// applyPairFlag merges a repeated pair flag over into.
func applyPairFlag(flags *pflag.FlagSet, name string, syntax pairSyntax, into map[string]string) error {
	if flags.Lookup(name) == nil || !flags.Changed(name) {
		return nil
	}
	values, err := flags.GetStringArray(name)
	if err != nil {
		return err
	}
	for _, pair := range values {
		if err := addPair(into, pair, syntax); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	return nil
}

func configError(logger *slog.Logger, key string, err error) error {
	err = fmt.Errorf("%w: invalid value for key '%s': %w", discovery.ErrConfigValidation, key, err)
	logger.Error(err.Error(), slog.String("key", key))
	return err
}

func levelNames() []string {
	names := make([]string, 0, len(logLevels))
	for name := range logLevels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
