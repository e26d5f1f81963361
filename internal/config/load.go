package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// EnvPrefix prefixes every environment variable, e.g. DAOGEN_DATABASE_DSN.
const EnvPrefix = "DAOGEN"

// stdin lets tests replace standard input for @- file sources.
var stdin io.Reader = os.Stdin

// promptPassword asks for the database password without echo.
var promptPassword = func() (string, error) {
	fmt.Fprint(os.Stderr, "Enter database password: ")
	pwd, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// Load resolves the configuration. Precedence, highest first: flags that
// were explicitly set, DAOGEN_* environment variables, the config file, and
// defaults. The config file is --config when given, otherwise daogen.yaml
// looked up in the working directory and $HOME/.daogen.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	cfgPath := ""
	if flags != nil {
		cfgPath, _ = flags.GetString("config")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("daogen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.daogen")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindChangedFlags(v, flags)

	if v.GetString("database.dsn_file") == "@-" && v.GetString("database.password_file") == "@-" {
		return nil, errors.New("only one of database.dsn_file and database.password_file may read stdin")
	}
	if v.GetString("database.dsn") == "" && v.GetString("database.dsn_file") != "" {
		dsn, err := readSecretFile(v.GetString("database.dsn_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database DSN file: %w", err)
		}
		v.Set("database.dsn", dsn)
	}
	if v.GetString("database.password") == "" && v.GetString("database.password_file") != "" {
		pwd, err := readSecretFile(v.GetString("database.password_file"))
		if err != nil {
			return nil, fmt.Errorf("failed to read database password file: %w", err)
		}
		v.Set("database.password", pwd)
	}
	if v.GetString("database.dsn") == "" && v.GetString("database.password") == "" && v.GetBool("database.password_prompt") {
		pwd, err := promptPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		v.Set("database.password", pwd)
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToStringSliceHookFunc(","),
		),
	)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// DefineFlags registers a flag per scalar configuration key, named by its
// canonical dotted key, plus --config.
func DefineFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "Config file path")

	flags.String("database.dialect", "", "Database dialect (postgres, mysql, sqlite)")
	flags.String("database.dsn", "", "Complete data source name")
	flags.String("database.dsn_file", "", "Path to file containing the DSN (use @- for stdin)")
	flags.String("database.host", "", "Database host")
	flags.Int("database.port", 0, "Database port (default per dialect)")
	flags.String("database.user", "", "Database user")
	flags.String("database.password", "", "Database password")
	flags.String("database.password_file", "", "Path to file containing the password (use @- for stdin)")
	flags.Bool("database.password_prompt", false, "Prompt for the database password")
	flags.String("database.database", "", "Database name, or file path for sqlite")
	flags.Int("database.pool.max_open", 0, "Maximum open connections")
	flags.Int("database.pool.max_idle", 0, "Maximum idle connections")
	flags.Duration("database.pool.max_lifetime", 0, "Connection max lifetime (e.g. 5m)")

	flags.Bool("dao.camel_case", true, "Name record fields in camelCase")
	flags.Bool("dao.decimal_numerics", true, "Hydrate numeric columns as decimals")
	flags.StringSlice("dao.optimistic_concurrency.columns", nil, "Version columns refreshed on every update")
	flags.String("dao.optimistic_concurrency.value", "", "Version value strategy (now, uuid)")

	flags.String("observability.logging.level", "", "Log level (debug, info, warn, error)")
	flags.String("observability.logging.format", "", "Log format (json, text)")
	flags.Bool("observability.logging.exports_enabled", false, "Export logs over OTLP")
	flags.Bool("observability.metrics_enabled", false, "Collect DAO metrics")
	flags.Bool("observability.tracing_enabled", false, "Export traces over OTLP")
	flags.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio from 0.0 to 1.0")
	flags.String("observability.otlp.endpoint", "", "OTLP endpoint (e.g. localhost:4317)")
	flags.String("observability.otlp.protocol", "", "OTLP protocol (grpc, http/protobuf)")
	flags.Bool("observability.otlp.insecure", false, "Disable TLS for OTLP")
}

// bindChangedFlags copies only explicitly set flags into v so an unset
// flag's zero value never masks the environment or config file.
func bindChangedFlags(v *viper.Viper, flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || !strings.Contains(f.Name, ".") {
			return
		}
		switch f.Value.Type() {
		case "int":
			val, _ := flags.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := flags.GetBool(f.Name)
			v.Set(f.Name, val)
		case "float64":
			val, _ := flags.GetFloat64(f.Name)
			v.Set(f.Name, val)
		case "duration":
			val, _ := flags.GetDuration(f.Name)
			v.Set(f.Name, val)
		case "stringSlice":
			val, _ := flags.GetStringSlice(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dialect", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_file", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.password_prompt", false)
	v.SetDefault("database.database", "")
	v.SetDefault("database.pool.max_open", 10)
	v.SetDefault("database.pool.max_idle", 5)
	v.SetDefault("database.pool.max_lifetime", "30m")

	v.SetDefault("dao.camel_case", true)
	v.SetDefault("dao.decimal_numerics", true)
	v.SetDefault("dao.optimistic_concurrency.columns", []string{"updated_at"})
	v.SetDefault("dao.optimistic_concurrency.value", "now")
	v.SetDefault("dao.casts", map[string]map[string]string{})

	v.SetDefault("naming.singular_overrides", map[string]string{})
	v.SetDefault("naming.type_overrides", map[string]string{})

	v.SetDefault("observability.service_name", "daogen")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", false)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "text")
	v.SetDefault("observability.logging.exports_enabled", false)
	v.SetDefault("observability.otlp.endpoint", "")
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.tls_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_key_file", "")
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.otlp.timeout", "10s")
	v.SetDefault("observability.otlp.compression", "")
	v.SetDefault("observability.otlp.retry", true)
}

// readSecretFile reads a trimmed secret from path, or from stdin for "@-".
func readSecretFile(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "@-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}
