package configuration

import (
	"fmt"
	"os"
	"strconv"

	"content-hub/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App          App          `json:"app"`
	Database     Database     `json:"database"`
	RedisClient  RedisClient  `json:"redisClient"`
	Pubsub       Pubsub       `json:"pubsub"`
	ServiceBus   ServiceBus   `json:"serviceBus"`
	Feed         Feed         `json:"feed"`
	Quota        Quota        `json:"quota"`
	Prefetch     Prefetch     `json:"prefetch"`
	Notification Notification `json:"notification"`
	Platforms    Platforms    `json:"platforms"`
	Logger       Logger       `json:"logger"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
	Mysql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

// Feed controls the orchestrator: worker bound, per-platform timeout and the
// cache TTL policy.
type Feed struct {
	MaxConcurrent          int `json:"maxConcurrent"`
	TimeoutSeconds         int `json:"timeoutSeconds"`
	SoftTTLMinutes         int `json:"softTTLMinutes"`
	HardTTLHours           int `json:"hardTTLHours"`
	RefreshIntervalSeconds int `json:"refreshIntervalSeconds"`
	SweepIntervalMinutes   int `json:"sweepIntervalMinutes"`
}

// Quota holds the per-platform daily unit budgets
type Quota struct {
	DailyBudgets map[string]int64 `json:"dailyBudgets"`
	SafetyMargin float64          `json:"safetyMargin"`
}

type Prefetch struct {
	MinConfidence           float64 `json:"minConfidence"`
	BatchSize               int     `json:"batchSize"`
	HistoryLimit            int     `json:"historyLimit"`
	LearningWindowHours     int     `json:"learningWindowHours"`
	EvaluationWindowMinutes int     `json:"evaluationWindowMinutes"`
	CycleIntervalSeconds    int     `json:"cycleIntervalSeconds"`
}

type Notification struct {
	MaxAttempts      int `json:"maxAttempts"`
	BaseDelaySeconds int `json:"baseDelaySeconds"`
	RetainedEntries  int `json:"retainedEntries"`
}

// Platforms is the static per-platform snapshot handed to the adapter factory
type Platforms struct {
	YouTube   PlatformConfig `json:"youtube"`
	Instagram PlatformConfig `json:"instagram"`
	TikTok    PlatformConfig `json:"tiktok"`
	Facebook  PlatformConfig `json:"facebook"`
}

type PlatformConfig struct {
	Enabled      bool   `json:"enabled"`
	APIKey       string `json:"apiKey"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ChannelID    string `json:"channelId"`
	BaseURL      string `json:"baseURL"`
}

type Logger struct {
	Format string `json:"format"`
}

var C Config

func init() {
	// Env files are loaded first so the env fallbacks below can see them;
	// variables already set in the environment win.
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initApp(&C)
	initDatabase(&C)
	initPlatforms(&C)
	initDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_PORT"); v != "" && C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = v
	}
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}

	if v := os.Getenv("MYSQL_HOST"); v != "" && C.Database.Mysql.Host == "" {
		C.Database.Mysql.Host = v
	}
	if v := os.Getenv("MYSQL_PORT"); v != "" && C.Database.Mysql.Port == "" {
		C.Database.Mysql.Port = v
	}
	if v := os.Getenv("MYSQL_DB_NAME"); v != "" && C.Database.Mysql.Name == "" {
		C.Database.Mysql.Name = v
	}
	if v := os.Getenv("MYSQL_USER"); v != "" && C.Database.Mysql.User == "" {
		C.Database.Mysql.User = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" && C.Database.Mysql.Password == "" {
		C.Database.Mysql.Password = v
	}
	if C.Database.Mysql.Port == "" {
		C.Database.Mysql.Port = "3306"
	}
}

func initPlatforms(C *Config) {
	fill := func(pc *PlatformConfig, prefix string) {
		if v := os.Getenv(prefix + "_API_KEY"); v != "" && pc.APIKey == "" {
			pc.APIKey = v
		}
		if v := os.Getenv(prefix + "_CLIENT_ID"); v != "" && pc.ClientID == "" {
			pc.ClientID = v
		}
		if v := os.Getenv(prefix + "_CLIENT_SECRET"); v != "" && pc.ClientSecret == "" {
			pc.ClientSecret = v
		}
		if v := os.Getenv(prefix + "_ACCESS_TOKEN"); v != "" && pc.AccessToken == "" {
			pc.AccessToken = v
		}
		if v := os.Getenv(prefix + "_REFRESH_TOKEN"); v != "" && pc.RefreshToken == "" {
			pc.RefreshToken = v
		}
		if v := os.Getenv(prefix + "_CHANNEL_ID"); v != "" && pc.ChannelID == "" {
			pc.ChannelID = v
		}
		if v := os.Getenv(prefix + "_ENABLED"); v != "" {
			pc.Enabled = v == "true" || v == "1"
		}
	}
	fill(&C.Platforms.YouTube, "YOUTUBE")
	fill(&C.Platforms.Instagram, "INSTAGRAM")
	fill(&C.Platforms.TikTok, "TIKTOK")
	fill(&C.Platforms.Facebook, "FACEBOOK")
}

func initDefaults(C *Config) {
	if C.Feed.MaxConcurrent == 0 {
		C.Feed.MaxConcurrent = 5
	}
	if C.Feed.MaxConcurrent < 1 {
		C.Feed.MaxConcurrent = 1
	}
	if C.Feed.MaxConcurrent > 10 {
		C.Feed.MaxConcurrent = 10
	}
	if C.Feed.TimeoutSeconds == 0 {
		C.Feed.TimeoutSeconds = 20
	}
	if C.Feed.SoftTTLMinutes == 0 {
		C.Feed.SoftTTLMinutes = 60
	}
	if C.Feed.HardTTLHours == 0 {
		C.Feed.HardTTLHours = 24
	}
	if C.Feed.RefreshIntervalSeconds == 0 {
		C.Feed.RefreshIntervalSeconds = 120
	}
	if C.Feed.SweepIntervalMinutes == 0 {
		C.Feed.SweepIntervalMinutes = 10
	}
	if C.Quota.SafetyMargin == 0 {
		C.Quota.SafetyMargin = 0.1
	}
	if len(C.Quota.DailyBudgets) == 0 {
		C.Quota.DailyBudgets = map[string]int64{
			"youtube":   10000,
			"instagram": 4800,
			"tiktok":    2000,
			"facebook":  4800,
		}
	}
	if C.Prefetch.MinConfidence == 0 {
		C.Prefetch.MinConfidence = 0.6
	}
	if C.Prefetch.BatchSize == 0 {
		C.Prefetch.BatchSize = 5
	}
	if C.Prefetch.HistoryLimit == 0 {
		C.Prefetch.HistoryLimit = 1000
	}
	if C.Prefetch.LearningWindowHours == 0 {
		C.Prefetch.LearningWindowHours = 168
	}
	if C.Prefetch.EvaluationWindowMinutes == 0 {
		C.Prefetch.EvaluationWindowMinutes = 60
	}
	if C.Prefetch.CycleIntervalSeconds == 0 {
		C.Prefetch.CycleIntervalSeconds = 300
	}
	if C.Notification.MaxAttempts == 0 {
		C.Notification.MaxAttempts = 3
	}
	if C.Notification.BaseDelaySeconds == 0 {
		C.Notification.BaseDelaySeconds = 1
	}
	if C.Notification.RetainedEntries == 0 {
		C.Notification.RetainedEntries = 5000
	}
	if C.Pubsub.Topic == "" {
		C.Pubsub.Topic = "content-notifications"
	}
	if C.ServiceBus.Queue == "" {
		C.ServiceBus.Queue = "content-notifications"
	}
}
