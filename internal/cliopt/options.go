package cliopt

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nonibytes/scanhint/scanhint"
)

// EnvPrefix prefixes environment overrides: SCANHINT_PG_DSN sets --pg-dsn.
const EnvPrefix = "SCANHINT"

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	Backend      string `validate:"oneof=sqlite postgres"`
	SQLitePath   string `validate:"required_if=Backend sqlite"`
	SQLiteDriver string `validate:"oneof=sqlite sqlite3"`

	PostgresDSN    string `validate:"required_if=Backend postgres"`
	PostgresSchema string `validate:"omitempty,max=63"`

	LogLevel  string `validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `validate:"oneof=json console"`
	Format    string `validate:"oneof=pretty json"`
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Backend:      "sqlite",
		SQLitePath:   ".",
		SQLiteDriver: "sqlite",
		LogLevel:     "warn",
		LogFormat:    "console",
		Format:       "pretty",
	}
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.Backend, "backend", g.Backend, "catalog backend: sqlite|postgres")

	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "snapshot directory or explicit .db file path")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")

	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema searched first for relation names")

	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level")
	fs.StringVar(&g.LogFormat, "log-format", g.LogFormat, "log format: json|console")
	fs.StringVar(&g.Format, "format", g.Format, "output format: pretty|json")
}

// Load fills g from the flags in fs, letting SCANHINT_* variables override
// any flag not given on the command line, then validates the result.
func Load(fs *pflag.FlagSet, g *GlobalOptions) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return scanhint.Wrap(scanhint.ErrConfig, "bind flags", err)
	}

	g.Backend = strings.ToLower(v.GetString("backend"))
	g.SQLitePath = v.GetString("sqlite-path")
	g.SQLiteDriver = v.GetString("sqlite-driver")
	g.PostgresDSN = v.GetString("pg-dsn")
	g.PostgresSchema = v.GetString("pg-schema")
	g.LogLevel = strings.ToLower(v.GetString("log-level"))
	g.LogFormat = v.GetString("log-format")
	g.Format = v.GetString("format")
	if g.Backend == "pg" {
		g.Backend = "postgres"
	}
	return Validate(g)
}

var validate = validator.New()

func Validate(g *GlobalOptions) error {
	if err := validate.Struct(g); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return scanhint.ConfigError(flagName(verrs[0].Field()), verrs[0].Error())
		}
		return scanhint.Wrap(scanhint.ErrConfig, "invalid options", err)
	}
	return nil
}

var flagNames = map[string]string{
	"Backend":        "backend",
	"SQLitePath":     "sqlite-path",
	"SQLiteDriver":   "sqlite-driver",
	"PostgresDSN":    "pg-dsn",
	"PostgresSchema": "pg-schema",
	"LogLevel":       "log-level",
	"LogFormat":      "log-format",
	"Format":         "format",
}

func flagName(field string) string {
	if n, ok := flagNames[field]; ok {
		return n
	}
	return field
}
