// internal/storage/influxdb.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/bfpv/internal/config"
	"github.com/skalibog/bfpv/pkg/logger"
	"github.com/skalibog/bfpv/pkg/models"
	"go.uber.org/zap"
)

// ErrUnhealthy InfluxDB ответил, но не в состоянии pass
var ErrUnhealthy = errors.New("InfluxDB не в состоянии 'pass'")

// Snapshot полученный прогноз вместе с метаданными запроса
type Snapshot struct {
	MountID        string
	Source         string
	Series         models.PredictionSeries
	ChartSourceURL string
	FetchedAt      time.Time
}

// Archive журнал полученных прогнозов. Только запись: архив не является
// источником данных для отображения.
type Archive interface {
	SaveSnapshot(ctx context.Context, snap Snapshot) error
	Close()
}

// InfluxDBStorage реализует Archive с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("%w: %+v", ErrUnhealthy, health)
	}

	return &InfluxDBStorage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// SaveSnapshot сохраняет точки прогноза и сводку запроса
func (s *InfluxDBStorage) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	points := snapshotPoints(snap)
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("ошибка записи прогноза в InfluxDB: %w", err)
	}

	logger.Debug("Прогноз сохранен в архив",
		zap.String("mount", snap.MountID),
		zap.Int("points", len(points)),
		zap.String("bucket", s.bucket))
	return nil
}

// snapshotPoints строит точки InfluxDB: по одной на прогноз и одну сводную.
// Точки с нераспознанной датой пропускаются.
func snapshotPoints(snap Snapshot) []*write.Point {
	points := make([]*write.Point, 0, snap.Series.Len()+1)

	for i := 0; i < snap.Series.Len(); i++ {
		p := snap.Series.At(i)
		ts, err := p.Time()
		if err != nil {
			logger.Warn("Пропуск точки с некорректной датой", zap.String("date", p.Date))
			continue
		}
		points = append(points, influxdb2.NewPoint(
			"predictions",
			map[string]string{
				"mount":  snap.MountID,
				"source": snap.Source,
			},
			map[string]interface{}{
				"price":      p.Price,
				"horizon":    i + 1,
				"fetched_at": snap.FetchedAt.Unix(),
			},
			ts,
		))
	}

	points = append(points, influxdb2.NewPoint(
		"prediction_fetches",
		map[string]string{
			"mount":  snap.MountID,
			"source": snap.Source,
		},
		map[string]interface{}{
			"count":    snap.Series.Len(),
			"plot_url": snap.ChartSourceURL,
		},
		snap.FetchedAt,
	))

	return points
}

// NoopArchive используется, когда архив выключен или недоступен
type NoopArchive struct{}

// NewNoopArchive создает пустой архив
func NewNoopArchive() *NoopArchive {
	return &NoopArchive{}
}

func (NoopArchive) SaveSnapshot(ctx context.Context, snap Snapshot) error { return nil }
func (NoopArchive) Close()                                                {}

// Open создает архив по конфигурации. При ошибке подключения
// возвращает NoopArchive и ошибку для логирования.
func Open(ctx context.Context, cfg config.StorageConfig) (Archive, error) {
	if !cfg.Enabled {
		return NewNoopArchive(), nil
	}
	s, err := NewInfluxDBStorage(ctx, cfg)
	if err != nil {
		return NewNoopArchive(), err
	}
	return s, nil
}
