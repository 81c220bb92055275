package config

import (
	"github.com/spf13/viper"

	aws_handler "reporter/src/utils/aws"
)

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Superset SupersetConfig `mapstructure:"superset"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Database DatabaseConfig `mapstructure:"database"`
	Report   ReportConfig   `mapstructure:"report"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	AWS      AWSConfig      `mapstructure:"aws"`
}

type ServiceConfig struct {
	Port string `mapstructure:"port"`
}

// SupersetConfig holds the host coordinates and the identity used for token
// brokerage against the host's security endpoints.
type SupersetConfig struct {
	BaseURL    string `mapstructure:"baseUrl"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	FirstName  string `mapstructure:"firstName"`
	LastName   string `mapstructure:"lastName"`
	DatabaseID int    `mapstructure:"databaseId"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Sender      string `mapstructure:"sender"`
	AppPassword string `mapstructure:"appPassword"`
	// AppPasswordSecretID, when set, names an AWS Secrets Manager secret that
	// replaces AppPassword at load time.
	AppPasswordSecretID string `mapstructure:"appPasswordSecretId"`
}

type DatabaseConfig struct {
	// URI discriminates the scheduler store backend by its scheme.
	URI        string `mapstructure:"uri"`
	SQLitePath string `mapstructure:"sqlitePath"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
}

type ReportConfig struct {
	// LinkExpiryTime is the download link TTL in seconds. Populated via
	// viper.GetInt64 so a string value from the environment still casts.
	LinkExpiryTime int64 `mapstructure:"-"`
}

type LoggerConfig struct {
	Path string `mapstructure:"path"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// envBindings maps the environment variables the deployment exports onto
// config keys. Environment values override file values.
var envBindings = map[string]string{
	"superset.baseUrl":      "BASE_URL",
	"superset.username":     "USER_NAME",
	"superset.password":     "USER_PASSWORD",
	"superset.firstName":    "FIRST_NAME",
	"superset.lastName":     "LAST_NAME",
	"smtp.sender":           "SENDER",
	"smtp.appPassword":      "APP_PASSWORD",
	"report.linkExpiryTime": "LINK_EXPIRY_TIME",
	"logger.path":           "LOGGER_PATH",
	"database.uri":          "SQLALCHEMY_DATABASE_URI",
	"database.host":         "DB_HOST",
	"database.name":         "DB_NAME",
	"database.user":         "DB_USER",
	"database.password":     "DB_PASSWORD",
}

func LoadConfig(path string) (*Config, error) {
	var cfg Config

	viper.Reset()
	viper.AddConfigPath(path)
	viper.SetConfigName("appsettings")
	viper.SetConfigType("yaml")

	viper.SetDefault("service.port", "8000")
	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("report.linkExpiryTime", 86400)
	viper.SetDefault("logger.path", "./logs")
	viper.SetDefault("database.sqlitePath", "./superset.db")

	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing settings file is fine, everything can come from the
		// environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// Numeric env values arrive as strings; Get casts them, Unmarshal does not.
	cfg.Report.LinkExpiryTime = viper.GetInt64("report.linkExpiryTime")

	if err := resolveSecrets(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveSecrets swaps secret references for their Secrets Manager values.
func resolveSecrets(cfg *Config) error {
	if cfg.SMTP.AppPasswordSecretID == "" {
		return nil
	}
	handler, err := aws_handler.NewAWSHandler(cfg.AWS.Region)
	if err != nil {
		return err
	}
	value, err := handler.SecretManager.GetSecretValue(cfg.SMTP.AppPasswordSecretID)
	if err != nil {
		return err
	}
	cfg.SMTP.AppPassword = value
	return nil
}
