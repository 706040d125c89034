package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 对应 config.yaml 的结构。
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Report      ReportConfig      `mapstructure:"report"`
	Auth        AuthConfig        `mapstructure:"auth"`
}

type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 选择存储后端以及可选的Redis缓存。
type DatabaseConfig struct {
	// Driver 取值为 "memory"、"sqlite" 或 "postgres"。
	Driver   string         `mapstructure:"driver"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxIdleConns int           `mapstructure:"maxIdleConns"`
	MaxOpenConns int           `mapstructure:"maxOpenConns"`
	ConnLifetime time.Duration `mapstructure:"connLifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BackupConfig 控制SQLite文件数据库的定期快照。
type BackupConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Dir      string        `mapstructure:"dir"`
	Interval time.Duration `mapstructure:"interval"`
}

type LeaderboardConfig struct {
	CacheTTL time.Duration `mapstructure:"cacheTTL"`
	// RankWindow 是排名查询的最大深度，超出则返回0。
	RankWindow int `mapstructure:"rankWindow"`
}

type ReportConfig struct {
	CacheTTL time.Duration `mapstructure:"cacheTTL"`
}

type AuthConfig struct {
	// TokenSecret 用于签发会话令牌。为空时启动时随机生成，
	// 每次重启后旧令牌都会失效。
	TokenSecret string        `mapstructure:"tokenSecret"`
	TokenTTL    time.Duration `mapstructure:"tokenTTL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.sqlite.path", "spot-the-lie.db")
	v.SetDefault("database.postgres.maxIdleConns", 10)
	v.SetDefault("database.postgres.maxOpenConns", 100)
	v.SetDefault("database.postgres.connLifetime", time.Hour)
	v.SetDefault("database.redis.enabled", false)
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.backup.enabled", false)
	v.SetDefault("database.backup.dir", "backups")
	v.SetDefault("database.backup.interval", 10*time.Minute)

	v.SetDefault("leaderboard.cacheTTL", 30*time.Second)
	v.SetDefault("leaderboard.rankWindow", 100)
	v.SetDefault("report.cacheTTL", time.Minute)

	v.SetDefault("auth.tokenTTL", 30*24*time.Hour)
}

// LoadConfig 从 ./config 或工作目录读取 config.yaml，
// 然后应用环境变量覆盖，例如 DATABASE_DRIVER=postgres。
// 文件不存在不算错误，此时使用默认值。
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
