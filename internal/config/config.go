package config

import (
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"strings"

	"github.com/skalibog/bfpv/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Режимы сборки, определяющие адрес бэкенда
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Mode задается при сборке:
//
//	go build -ldflags "-X github.com/skalibog/bfpv/internal/config.Mode=production"
var Mode = ModeDevelopment

// ModeEnv переменная окружения для переопределения режима при деплое
const ModeEnv = "BFPV_MODE"

// Config представляет полную конфигурацию приложения
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	UI       UIConfig       `yaml:"ui"`
	Storage  StorageConfig  `yaml:"storage"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Log      LogConfig      `yaml:"log"`
}

// BackendConfig содержит настройки подключения к сервису прогнозов
type BackendConfig struct {
	DevelopmentURL  string `yaml:"development_url"`
	ProductionURL   string `yaml:"production_url"`
	PredictionsPath string `yaml:"predictions_path"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	PageSize    int    `yaml:"page_size"`
	Locale      string `yaml:"locale"`
	ShowCharts  bool   `yaml:"show_charts"`
	ChartHeight int    `yaml:"chart_height"`
	RefreshRate int    `yaml:"refresh_rate_ms"`
}

// StorageConfig настройки архива прогнозов в InfluxDB
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
}

// ExchangeConfig настройки получения текущей цены с Binance
type ExchangeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Symbol  string `yaml:"symbol"`
	Testnet bool   `yaml:"testnet"`
}

// LogConfig пути к файлам логов
type LogConfig struct {
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
}

// Load загружает конфигурацию из файла
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}

	return Parse(data)
}

// Parse разбирает YAML и применяет значения по умолчанию
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
	}

	config.applyDefaults()

	logger.Debug("Загружена конфигурация", zap.Any("config", config))
	logger.Info("Загружена конфигурация", zap.String("mode", ActiveMode()), zap.String("backend", config.BaseURL()))
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Backend.DevelopmentURL == "" {
		c.Backend.DevelopmentURL = "http://localhost:5000"
	}
	if c.Backend.PredictionsPath == "" {
		c.Backend.PredictionsPath = "/api/predictions"
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = 60
	}
	if c.UI.PageSize <= 0 {
		c.UI.PageSize = 8
	}
	if c.UI.Locale == "" {
		c.UI.Locale = "en-US"
	}
	if c.UI.ChartHeight <= 0 {
		c.UI.ChartHeight = 10
	}
	if c.UI.RefreshRate <= 0 {
		c.UI.RefreshRate = 1000
	}
	if c.Exchange.Symbol == "" {
		c.Exchange.Symbol = "BTCUSDT"
	}
	if c.Log.File == "" {
		c.Log.File = "app.log"
	}
	if c.Log.JSONFile == "" {
		c.Log.JSONFile = "app.json.log"
	}
}

// ActiveMode возвращает режим сборки с учетом переопределения из окружения
func ActiveMode() string {
	if v := strings.TrimSpace(os.Getenv(ModeEnv)); v != "" {
		return strings.ToLower(v)
	}
	return Mode
}

// BaseURL возвращает адрес бэкенда для активного режима
func (c *Config) BaseURL() string {
	if ActiveMode() == ModeProduction {
		return strings.TrimRight(c.Backend.ProductionURL, "/")
	}
	return strings.TrimRight(c.Backend.DevelopmentURL, "/")
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	mode := ActiveMode()
	if mode != ModeDevelopment && mode != ModeProduction {
		return fmt.Errorf("неизвестный режим %q", mode)
	}

	base := c.BaseURL()
	if base == "" {
		return fmt.Errorf("не задан адрес бэкенда для режима %s", mode)
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("некорректный адрес бэкенда %q", base)
	}

	if !strings.HasPrefix(c.Backend.PredictionsPath, "/") {
		return fmt.Errorf("predictions_path должен начинаться с '/': %q", c.Backend.PredictionsPath)
	}

	if c.Storage.Enabled && (c.Storage.URL == "" || c.Storage.Bucket == "" || c.Storage.Organization == "") {
		return fmt.Errorf("для архива InfluxDB нужны url, organization и bucket")
	}

	return nil
}
