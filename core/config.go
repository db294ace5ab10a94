package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Conf is the app-wide configuration. It is set once by NewConfig at startup.
var Conf *Config

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default), TEST, QA, PROD
		AppName  string
		Build    string

		SecretKey       []byte
		FrontendBaseURL string
		DefaultFromName string
		DefaultFromAddr string
		SendgridAPIKey  string
		RollbarToken    string
		AdminAccounts   string // "email:displayName:bcryptHash" entries, comma separated

		TokenExpirationDelta     time.Duration
		RefreshExpirationDelta   time.Duration
		VerificationTimeoutDelta time.Duration
		SessionResolveTimeout    time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		OIDC     OIDCConfig
	}

	ServerConfig struct {
		Host string
		Addr string
	}

	DatabaseConfig struct {
		Engine     string
		Name       string
		User       string
		Password   string
		Host       string
		Port       int
		DisableTLS bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	OIDCConfig struct {
		IssuerURL    string
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

// NewConfig loads the configuration from the environment (and an optional
// config/.env.<env> file) and sets the Conf global.
func NewConfig(rootDir string) (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Tutorium")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Tutorium")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("tokenExpirationDelta", 7*24*time.Hour)
	v.SetDefault("refreshExpirationDelta", 4*time.Hour)
	v.SetDefault("verificationTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("sessionResolveTimeout", 10*time.Second)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "tutorium")
	v.SetDefault("database.user", "tutorium")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("oidc.issuerURL", "https://accounts.google.com")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(rootDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "config.godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config.os.Stat(%s)", dotEnvPath)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		Env:      env,
		AppName:  v.GetString("appName"),
		Build:    v.GetString("build"),

		SecretKey:       []byte(v.GetString("secretKey")),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromName: v.GetString("defaultFromName"),
		DefaultFromAddr: v.GetString("defaultFromAddr"),
		SendgridAPIKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		AdminAccounts:   v.GetString("adminAccounts"),

		TokenExpirationDelta:     v.GetDuration("tokenExpirationDelta"),
		RefreshExpirationDelta:   v.GetDuration("refreshExpirationDelta"),
		VerificationTimeoutDelta: v.GetDuration("verificationTimeoutDelta"),
		SessionResolveTimeout:    v.GetDuration("sessionResolveTimeout"),

		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Addr: v.GetString("server.addr"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			Name:       v.GetString("database.name"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		OIDC: OIDCConfig{
			IssuerURL:    v.GetString("oidc.issuerURL"),
			ClientID:     v.GetString("oidc.clientID"),
			ClientSecret: v.GetString("oidc.clientSecret"),
			RedirectURL:  v.GetString("oidc.redirectURL"),
		},
	}
	conf.Env = env
	Conf = conf
	return conf, nil
}
