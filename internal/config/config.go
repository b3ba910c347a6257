package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config is built once at startup and passed by reference to everything
// that needs it. Nothing reads viper after Load returns.
type Config struct {
	Env         string
	Port        string
	StaticDir   string
	CertFile    string
	KeyFile     string
	CORSOrigins []string

	TrelloAPIKey  string
	TrelloToken   string
	TrelloBaseURL string
	DoneListName  string
	DoingListName string

	DatabasePath string

	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	EmailRecipient string
	EmailSubject   string
}

// Load reads config.toml if present, then applies environment overrides.
// The Trello credentials are the only hard requirement.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.static_dir", "web")
	viper.SetDefault("trello.base_url", "https://api.trello.com/1")
	viper.SetDefault("trello.done_list", "Done")
	viper.SetDefault("trello.doing_list", "Doing")
	viper.SetDefault("database.path", "reports.db")
	viper.SetDefault("email.subject", "Weekly Trello Report")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, env := range map[string]string{
		"trello.api_key":  "TRELLO_API_KEY",
		"trello.token":    "TRELLO_TOKEN",
		"server.port":     "PORT",
		"server.env":      "APP_ENV",
		"email.smtp_host": "EMAIL_SMTP_SERVER",
		"email.smtp_port": "EMAIL_SMTP_PORT",
		"email.username":  "EMAIL_USERNAME",
		"email.password":  "EMAIL_PASSWORD",
		"email.recipient": "EMAIL_RECIPIENT",
		"email.subject":   "EMAIL_SUBJECT",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Env:         viper.GetString("server.env"),
		Port:        viper.GetString("server.port"),
		StaticDir:   viper.GetString("server.static_dir"),
		CertFile:    viper.GetString("server.cert_file"),
		KeyFile:     viper.GetString("server.key_file"),
		CORSOrigins: viper.GetStringSlice("server.cors_origins"),

		TrelloAPIKey:  viper.GetString("trello.api_key"),
		TrelloToken:   viper.GetString("trello.token"),
		TrelloBaseURL: viper.GetString("trello.base_url"),
		DoneListName:  viper.GetString("trello.done_list"),
		DoingListName: viper.GetString("trello.doing_list"),

		DatabasePath: viper.GetString("database.path"),

		SMTPHost:       viper.GetString("email.smtp_host"),
		SMTPPort:       viper.GetString("email.smtp_port"),
		SMTPUsername:   viper.GetString("email.username"),
		SMTPPassword:   viper.GetString("email.password"),
		EmailRecipient: viper.GetString("email.recipient"),
		EmailSubject:   viper.GetString("email.subject"),
	}

	if cfg.TrelloAPIKey == "" || cfg.TrelloToken == "" {
		return nil, errors.New("TRELLO_API_KEY and TRELLO_TOKEN must be set")
	}

	return cfg, nil
}

// EmailEnabled reports whether enough SMTP settings exist to send reports.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailRecipient != ""
}

// Production reports whether the service runs behind its own TLS listener.
func (c *Config) Production() bool {
	return c.Env == "production"
}
