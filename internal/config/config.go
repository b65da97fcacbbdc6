// Package config reads the command line options, environment and optional config file.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is put in front of every option that has no variable of its own.
const EnvPrefix = "BOOKSHELF"

// Options whose variable names predate the BOOKSHELF prefix.
var envAliases = map[string][]string{
	"user_id":    {"USER_ID"},
	"user_pwd":   {"USER_PWD"},
	"db_url":     {"DB_URL"},
	"auth_token": {"REACT_APP_GITHUB_AUTH_TOKEN"},
}

type Config struct {
	Port  int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Store string `mapstructure:"store" validate:"oneof=memory sqlite postgres mysql badger dynamodb"`

	DBURL   string `mapstructure:"db_url" validate:"required_if=Store postgres,required_if=Store mysql"`
	UserID  string `mapstructure:"user_id"`
	UserPwd string `mapstructure:"user_pwd"`
	DBName  string `mapstructure:"db_name"`

	BadgerDir string `mapstructure:"badger_dir"`

	DynamoTable    string `mapstructure:"dynamo_table" validate:"required_if=Store dynamodb"`
	DynamoRegion   string `mapstructure:"dynamo_region"`
	DynamoEndpoint string `mapstructure:"dynamo_endpoint" validate:"omitempty,url"`

	Seed        bool     `mapstructure:"seed"`
	GraphiQL    bool     `mapstructure:"graphiql"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Dev      bool   `mapstructure:"dev"`

	MaxDepth       int `mapstructure:"max_depth" validate:"min=0"`
	MaxParallelism int `mapstructure:"max_parallelism" validate:"min=0"`
}

type ClientConfig struct {
	Endpoint  string `mapstructure:"endpoint" validate:"required,url"`
	AuthToken string `mapstructure:"auth_token"`
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Dev       bool   `mapstructure:"dev"`
}

// RegisterStoreFlags adds the options that select and reach a backend.
func RegisterStoreFlags(fs *pflag.FlagSet) {
	fs.String("store", "memory", "Backend to keep records in, one of [memory, sqlite, postgres, mysql, badger, dynamodb].")
	fs.String("db_url", "", "Database host (postgres, mysql), full connection URL, or sqlite file.")
	fs.String("user_id", "", "Database user.")
	fs.String("user_pwd", "", "Database password.")
	fs.String("db_name", "bookshelf", "Database name.")
	fs.String("badger_dir", "", "Directory of the badger store. Empty keeps it in memory.")
	fs.String("dynamo_table", "bookshelf", "DynamoDB table name.")
	fs.String("dynamo_region", "", "DynamoDB region. Defaults to the AWS configuration chain.")
	fs.String("dynamo_endpoint", "", "DynamoDB endpoint override, e.g. http://localhost:8000.")
	fs.Bool("seed", true, "Insert the sample library at start. Records already present are kept.")
}

func RegisterServerFlags(fs *pflag.FlagSet) {
	fs.Int("port", 4000, "Port to listen on.")
	fs.Bool("graphiql", true, "Serve the GraphiQL explorer on GET /graphql.")
	fs.StringSlice("cors_origins", nil, "Allowed CORS origins. Empty allows any.")
	fs.Int("max_depth", 0, "Maximum query depth. 0 disables the limit.")
	fs.Int("max_parallelism", 10, "Maximum number of resolvers run in parallel per request.")
}

func RegisterClientFlags(fs *pflag.FlagSet) {
	fs.String("endpoint", "http://localhost:4000/graphql", "GraphQL endpoint to query.")
	fs.String("auth_token", "", "Bearer token sent with every query.")
}

// RegisterLogFlags adds the options every command shares.
func RegisterLogFlags(fs *pflag.FlagSet) {
	fs.String("log_level", "info", "Log level, one of [debug, info, warn, error].")
	fs.Bool("dev", false, "Human readable development logging.")
	fs.String("config", "", "Configuration file. Overridden by environment variables and flags.")
}

// Bind makes v read fs, then the environment, then the config file named by --config.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key, EnvPrefix + "_" + strings.ToUpper(key)}, names...)...); err != nil {
			return err
		}
	}

	if cfg := v.GetString("config"); cfg != "" {
		v.SetConfigFile(cfg)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

var validate = validator.New()

func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, check(cfg)
}

func LoadClient(v *viper.Viper) (ClientConfig, error) {
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, check(cfg)
}

func check(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// DSN is the driver connection string for the sql backends.
func (c Config) DSN() (string, error) {
	switch c.Store {
	case "sqlite":
		if c.DBURL == "" {
			return "bookshelf.db", nil
		}
		return c.DBURL, nil

	case "postgres":
		if strings.HasPrefix(c.DBURL, "postgres://") || strings.HasPrefix(c.DBURL, "postgresql://") {
			return c.DBURL, nil
		}
		u := url.URL{
			Scheme:   "postgres",
			Host:     c.DBURL,
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=disable",
		}
		if c.UserID != "" {
			u.User = url.UserPassword(c.UserID, c.UserPwd)
		}
		return u.String(), nil

	case "mysql":
		if strings.Contains(c.DBURL, "@") {
			return c.DBURL, nil
		}
		mc := mysql.NewConfig()
		mc.User = c.UserID
		mc.Passwd = c.UserPwd
		mc.Net = "tcp"
		mc.Addr = c.DBURL
		mc.DBName = c.DBName
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	}
	return "", fmt.Errorf("store %s has no dsn", c.Store)
}
