package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Server struct {
	Address     string `envconfig:"SERVER_ADDRESS" default:"localhost"`
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout int    `envconfig:"SERVER_TIMEOUT" default:"10"`
}

type DB struct {
	Dialect        string `envconfig:"DB_DIALECT" default:"sqlite3"`
	Source         string `envconfig:"DB_SOURCE" default:"alerts.db"`
	MigrationsPath string `envconfig:"DB_MIGRATIONS_PATH" default:"migrations"`
}

type SMTP struct {
	User     string `envconfig:"EMAIL_USER"`
	Host     string `envconfig:"EMAIL_HOST"`
	Port     string `envconfig:"EMAIL_PORT"`
	Password string `envconfig:"EMAIL_PASSWORD"`
	From     string `envconfig:"EMAIL_FROM" default:"alerts@quebec-alerts.dev"`
	Enabled  bool   `envconfig:"EMAIL_ENABLED" default:"false"`
}

type Redis struct {
	Address  string `envconfig:"REDIS_ADDRESS" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type Scraper struct {
	URL              string `envconfig:"INFO_COLLECTE_URL" default:"https://www.ville.quebec.qc.ca/services/info-collecte/"`
	RateLimitSeconds int    `envconfig:"SCRAPER_RATE_LIMIT_SECONDS" default:"10"`
	CacheTTLHours    int    `envconfig:"SCHEDULE_CACHE_TTL_HOURS" default:"24"`
}

type Snow struct {
	GeocoderURL        string `envconfig:"GEOCODER_URL" default:"https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer"`
	MapURL             string `envconfig:"SNOW_MAP_URL" default:"https://carte.ville.quebec.qc.ca/arcgis/rest/services/CI/Deneigement/MapServer/2/query"`
	SearchRadiusMeters int    `envconfig:"SEARCH_RADIUS_METERS" default:"200"`
}

type Notifier struct {
	SnowCronSpec  string `envconfig:"SNOW_CRON_SPEC" default:"0 16 * * *"`
	WasteCronSpec string `envconfig:"WASTE_CRON_SPEC" default:"0 17 * * *"`
}

type Config struct {
	Server   Server
	DB       DB
	SMTP     SMTP
	Redis    Redis
	Scraper  Scraper
	Snow     Snow
	Notifier Notifier

	TemplatesDir string `envconfig:"TEMPLATES_DIR" default:"templates"`
	LogsPath     string `envconfig:"LOGS_PATH" default:"logs/alerts.log"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return c.Server.Address + ":" + c.Server.Port
}

func (s Scraper) RateInterval() time.Duration {
	return time.Duration(s.RateLimitSeconds) * time.Second
}

func (s Scraper) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLHours) * time.Hour
}
