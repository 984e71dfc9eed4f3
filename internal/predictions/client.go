package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/skalibog/bfpv/internal/config"
	"github.com/skalibog/bfpv/pkg/logger"
	"github.com/skalibog/bfpv/pkg/models"
	"go.uber.org/zap"
)

// maxBodySize ограничение на размер ответа бэкенда
const maxBodySize = 8 << 20

// Result успешный ответ сервиса прогнозов
type Result struct {
	Series         models.PredictionSeries
	ChartSourceURL string
	LastUpdated    time.Time
}

// Client клиент сервиса прогнозов
type Client struct {
	baseURL    string
	path       string
	httpClient *http.Client
}

// predictionsResponse ответ GET /api/predictions
type predictionsResponse struct {
	Success     *bool             `json:"success"`
	Predictions []predictionEntry `json:"predictions"`
	PlotURL     string            `json:"plot_url"`
	Message     string            `json:"message"`
	LastUpdated string            `json:"last_updated"`
}

type predictionEntry struct {
	Date           *string  `json:"Date"`
	PredictedPrice *float64 `json:"Predicted_Price"`
}

// NewClient создает клиент для адреса бэкенда из конфигурации
func NewClient(cfg *config.Config) *Client {
	return NewClientWithHTTP(cfg.BaseURL(), cfg.Backend.PredictionsPath, &http.Client{
		Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
	})
}

// NewClientWithHTTP создает клиент с явно заданным HTTP клиентом
func NewClientWithHTTP(baseURL, path string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		path:       path,
		httpClient: httpClient,
	}
}

// BaseURL возвращает адрес бэкенда
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchPredictions выполняет ровно один запрос к сервису прогнозов.
// Любая ошибка возвращается как *FetchError.
func (c *Client) FetchPredictions(ctx context.Context) (*Result, error) {
	endpoint := c.baseURL + c.path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, transportError("некорректный запрос", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Сервис прогнозов недоступен", zap.String("url", endpoint), zap.Error(err))
		return nil, transportError("сервис прогнозов недоступен", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, transportError("ошибка чтения ответа", err)
	}

	logger.Debug("Получен ответ сервиса прогнозов",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(started)))

	var payload predictionsResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode != http.StatusOK {
		// Бэкенд отвечает на ошибки статусом 500 с телом {success: false, message}
		if decodeErr == nil && payload.Success != nil && !*payload.Success {
			return nil, serverError(payload.Message)
		}
		return nil, transportError(fmt.Sprintf("сервис прогнозов вернул статус %d", resp.StatusCode), nil)
	}

	if decodeErr != nil {
		return nil, transportError("неразбираемый ответ сервиса прогнозов", decodeErr)
	}
	if payload.Success == nil {
		return nil, transportError("в ответе нет поля success", nil)
	}
	if !*payload.Success {
		logger.Warn("Сервис прогнозов сообщил об ошибке", zap.String("message", payload.Message))
		return nil, serverError(payload.Message)
	}

	points := make([]models.PredictionPoint, 0, len(payload.Predictions))
	for i, entry := range payload.Predictions {
		if entry.Date == nil || entry.PredictedPrice == nil {
			return nil, transportError(fmt.Sprintf("неполная точка прогноза #%d", i), nil)
		}
		points = append(points, models.PredictionPoint{Date: *entry.Date, Price: *entry.PredictedPrice})
	}

	chartURL, err := c.resolvePlotURL(payload.PlotURL)
	if err != nil {
		return nil, transportError("некорректный plot_url", err)
	}

	result := &Result{
		Series:         models.NewPredictionSeries(points),
		ChartSourceURL: chartURL,
		LastUpdated:    parseLastUpdated(payload.LastUpdated),
	}

	logger.Info("Прогноз получен",
		zap.Int("points", result.Series.Len()),
		zap.String("plot", result.ChartSourceURL))

	return result, nil
}

// FetchPlot скачивает изображение графика, построенного сервером
func (c *Client) FetchPlot(ctx context.Context, plotURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, plotURL, nil)
	if err != nil {
		return transportError("некорректный запрос графика", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError("сервис прогнозов недоступен", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload predictionsResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if json.Unmarshal(body, &payload) == nil && payload.Success != nil && !*payload.Success {
			return serverError(payload.Message)
		}
		return transportError(fmt.Sprintf("сервис вернул статус %d для графика", resp.StatusCode), nil)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return transportError("ошибка чтения графика", err)
	}
	return nil
}

// resolvePlotURL добавляет адрес бэкенда к относительной ссылке на график
func (c *Client) resolvePlotURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}

	full := c.baseURL + "/" + strings.TrimLeft(ref, "/")
	if _, err := url.Parse(full); err != nil {
		return "", err
	}
	return full, nil
}

func parseLastUpdated(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
