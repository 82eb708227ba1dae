// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Engine    EngineConfig
	Forecast  ForecastConfig
	Pricing   PricingConfig
	Inventory InventoryConfig
	Archive   ArchiveConfig
	Ingest    IngestConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	ActionsTTLSeconds int
}

// EngineConfig bounds the per-cycle concurrency and output size.
type EngineConfig struct {
	WorkerCount    int // concurrent per-product pipelines per cycle
	MaxActionItems int // top-N action items published per cycle
	CycleRetention int // completed cycles kept per business
}

type ForecastConfig struct {
	MinHistoryDays    int     // below this a product is cold-started
	AccuracyFloor     float64 // rolling accuracy below this marks the model degraded
	AccuracyWindow    int     // days of matured predictions in the rolling window
	DegradedWidening  float64 // bound multiplier applied when degraded
	ColdStartNeighbor int     // K similar products blended for cold starts
	Horizons          []int   // forecast horizons in days
}

type PricingConfig struct {
	MinimumMargin     float64 // hard floor: price >= cost * (1 + margin)
	CompetitorBand    float64 // max relative distance from competitor price
	MinPricePoints    int     // distinct prices needed to fit elasticity
	MinPriceVariation float64 // coefficient of variation below which we fall back
	CostPlusMarkup    float64 // fallback markup when elasticity cannot be fit
}

type InventoryConfig struct {
	ServiceLevelZ       float64 // safety stock z-score (1.65 ~ 95% service level)
	TargetCoverDays     int
	SlowMoverPercentile float64 // velocity percentile under which a product is slow
	SlowMoverWindow     int     // sustained days below the percentile
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type IngestConfig struct {
	DriveCredentialsJSON string
	DriveFolderPath      string
	DownloadDir          string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "insightsphere")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_ACTIONS_TTL_SECONDS", 300)
		viper.SetDefault("ENGINE_WORKER_COUNT", 8)
		viper.SetDefault("ENGINE_MAX_ACTION_ITEMS", 20)
		viper.SetDefault("ENGINE_CYCLE_RETENTION", 12)
		viper.SetDefault("FORECAST_MIN_HISTORY_DAYS", 30)
		viper.SetDefault("FORECAST_ACCURACY_FLOOR", 0.80)
		viper.SetDefault("FORECAST_ACCURACY_WINDOW", 90)
		viper.SetDefault("FORECAST_DEGRADED_WIDENING", 1.5)
		viper.SetDefault("FORECAST_COLD_START_NEIGHBORS", 3)
		viper.SetDefault("PRICING_MINIMUM_MARGIN", 0.20)
		viper.SetDefault("PRICING_COMPETITOR_BAND", 0.10)
		viper.SetDefault("PRICING_MIN_PRICE_POINTS", 3)
		viper.SetDefault("PRICING_MIN_PRICE_VARIATION", 0.02)
		viper.SetDefault("PRICING_COST_PLUS_MARKUP", 0.30)
		viper.SetDefault("INVENTORY_SERVICE_LEVEL_Z", 1.65)
		viper.SetDefault("INVENTORY_TARGET_COVER_DAYS", 30)
		viper.SetDefault("INVENTORY_SLOW_MOVER_PERCENTILE", 0.20)
		viper.SetDefault("INVENTORY_SLOW_MOVER_WINDOW", 14)
		viper.SetDefault("ARCHIVE_ENABLED", false)
		viper.SetDefault("ARCHIVE_ENDPOINT", "")
		viper.SetDefault("ARCHIVE_BUCKET", "insightsphere-cycles")
		viper.SetDefault("ARCHIVE_REGION", "us-east-1")
		viper.SetDefault("ARCHIVE_USE_SSL", true)
		viper.SetDefault("INGEST_DRIVE_FOLDER_PATH", "")
		viper.SetDefault("INGEST_DOWNLOAD_DIR", "./data/ingest")

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("INGEST_DOWNLOAD_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				ActionsTTLSeconds: viper.GetInt("CACHE_ACTIONS_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				WorkerCount:    viper.GetInt("ENGINE_WORKER_COUNT"),
				MaxActionItems: viper.GetInt("ENGINE_MAX_ACTION_ITEMS"),
				CycleRetention: viper.GetInt("ENGINE_CYCLE_RETENTION"),
			},
			Forecast: ForecastConfig{
				MinHistoryDays:    viper.GetInt("FORECAST_MIN_HISTORY_DAYS"),
				AccuracyFloor:     viper.GetFloat64("FORECAST_ACCURACY_FLOOR"),
				AccuracyWindow:    viper.GetInt("FORECAST_ACCURACY_WINDOW"),
				DegradedWidening:  viper.GetFloat64("FORECAST_DEGRADED_WIDENING"),
				ColdStartNeighbor: viper.GetInt("FORECAST_COLD_START_NEIGHBORS"),
				Horizons:          []int{30, 60, 90},
			},
			Pricing: PricingConfig{
				MinimumMargin:     viper.GetFloat64("PRICING_MINIMUM_MARGIN"),
				CompetitorBand:    viper.GetFloat64("PRICING_COMPETITOR_BAND"),
				MinPricePoints:    viper.GetInt("PRICING_MIN_PRICE_POINTS"),
				MinPriceVariation: viper.GetFloat64("PRICING_MIN_PRICE_VARIATION"),
				CostPlusMarkup:    viper.GetFloat64("PRICING_COST_PLUS_MARKUP"),
			},
			Inventory: InventoryConfig{
				ServiceLevelZ:       viper.GetFloat64("INVENTORY_SERVICE_LEVEL_Z"),
				TargetCoverDays:     viper.GetInt("INVENTORY_TARGET_COVER_DAYS"),
				SlowMoverPercentile: viper.GetFloat64("INVENTORY_SLOW_MOVER_PERCENTILE"),
				SlowMoverWindow:     viper.GetInt("INVENTORY_SLOW_MOVER_WINDOW"),
			},
			Archive: ArchiveConfig{
				Enabled:   viper.GetBool("ARCHIVE_ENABLED"),
				Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
				AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
				SecretKey: viper.GetString("ARCHIVE_SECRET_KEY"),
				Bucket:    viper.GetString("ARCHIVE_BUCKET"),
				Region:    viper.GetString("ARCHIVE_REGION"),
				UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			},
			Ingest: IngestConfig{
				DriveCredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
				DriveFolderPath:      viper.GetString("INGEST_DRIVE_FOLDER_PATH"),
				DownloadDir:          viper.GetString("INGEST_DOWNLOAD_DIR"),
			},
		}
	})

	return instance
}

func ensureDir(path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.Printf("warning: could not create directory %s: %v", path, err)
	}
}
