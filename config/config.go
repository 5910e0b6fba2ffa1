package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"Attendify/pkg/logger"
	"Attendify/pkg/otel"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort       string `env:"SERVER_PORT" envDefault:"8890"`
	ServerHost       string `env:"SERVER_HOST" envDefault:"127.0.0.1"`   // 本地伴随服务，默认只监听回环地址
	Environment      string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName      string `env:"SERVICE_NAME" envDefault:"attendify"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"attendify"`
	ServiceVersion   string `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	Timezone         string `env:"TIMEZONE" envDefault:"Local"`

	// 远端考勤服务（PHP API）
	RemoteBaseURL        string `env:"REMOTE_BASE_URL" envDefault:"https://sms.ebinayah.com/attandance"`
	RemoteTimeoutSeconds int    `env:"REMOTE_TIMEOUT_SECONDS" envDefault:"15"`

	// 同步与派生指标
	SyncIntervalSeconds int `env:"SYNC_INTERVAL_SECONDS" envDefault:"300"`  // 后台定期重同步，0 表示关闭
	TickIntervalMillis  int `env:"TICK_INTERVAL_MILLIS" envDefault:"1000"` // 派生指标重算周期
	NoticeTTLSeconds    int `env:"NOTICE_TTL_SECONDS" envDefault:"4"`

	// 固定定位（没有定位设备时使用，留空表示不上报坐标）
	GeoLat string `env:"GEO_LAT"`
	GeoLng string `env:"GEO_LNG"`

	// PostgreSQL 配置（邮件投递记录）
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"attendify"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"10"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"50"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"attendify"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// 邮件发件箱
	MailOutboxQueue string `env:"MAIL_OUTBOX_QUEUE" envDefault:"mail.outbox"`
	MailMaxRetries  int    `env:"MAIL_MAX_RETRIES" envDefault:"3"`
	ReportRecipient string `env:"REPORT_RECIPIENT" envDefault:"management@attendify.com"`

	// JWT 配置（伴随 API 的本地令牌）
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"720"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// CSRF / Session
	CSRFSecret    string `env:"CSRF_SECRET" envDefault:"attendify-csrf"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"attendify-session"`

	// OpenTelemetry
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	if Cfg.RemoteBaseURL == "" {
		log.Fatal("REMOTE_BASE_URL is required")
	}

	if Cfg.RemoteTimeoutSeconds <= 0 {
		log.Printf("WARN: REMOTE_TIMEOUT_SECONDS is not positive, falling back to 15s")
		Cfg.RemoteTimeoutSeconds = 15
	}

	if Cfg.TickIntervalMillis <= 0 || Cfg.TickIntervalMillis > 1000 {
		// 倒计时与进度条至少每秒刷新一次
		log.Printf("WARN: TICK_INTERVAL_MILLIS must be in (0, 1000], using 1000")
		Cfg.TickIntervalMillis = 1000
	}

	if Cfg.CSRFSecret == "attendify-csrf" || Cfg.SessionSecret == "attendify-session" {
		log.Printf("WARN: CSRF_SECRET / SESSION_SECRET use built-in defaults, set them outside development")
	}

	if Cfg.OTelEnabled && Cfg.OTelEndpoint == "" {
		log.Printf("WARN: OTEL_ENABLED is set but OTEL_ENDPOINT is empty, telemetry export will fail")
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

// Location 返回业务时区，解析失败回退到本地时区
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("WARN: invalid TIMEZONE %q: %v, using Local", c.Timezone, err)
		return time.Local
	}
	return loc
}

func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutSeconds) * time.Second
}

func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMillis) * time.Millisecond
}

func (c *Config) NoticeTTL() time.Duration {
	return time.Duration(c.NoticeTTLSeconds) * time.Second
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Logging 某个进程的日志配置，component 区分 server 与 worker
func (c *Config) Logging(component string) logger.Options {
	return logger.Options{
		Service:     c.ServiceName,
		Component:   component,
		Environment: c.Environment,
		Level:       c.LoggerLevel,
		Format:      c.LoggerFormat,
		OutputPath:  c.LoggerOutputPath,
	}
}

// Telemetry 某个进程的 OpenTelemetry 配置
func (c *Config) Telemetry(component string) otel.Config {
	return otel.Config{
		ServiceName:    c.ServiceName,
		Component:      component,
		Namespace:      c.ServiceNamespace,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTelEndpoint,
		SampleRatio:    c.OTelSampleRatio,
	}
}
