package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skalibog/bfpv/internal/config"
	"github.com/skalibog/bfpv/internal/exchange"
	"github.com/skalibog/bfpv/internal/export"
	"github.com/skalibog/bfpv/internal/predictions"
	"github.com/skalibog/bfpv/internal/retrieval"
	"github.com/skalibog/bfpv/internal/storage"
	"github.com/skalibog/bfpv/internal/ui"
	"github.com/skalibog/bfpv/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	exportDir := flag.String("export", "", "выгрузить прогноз в каталог и завершить работу")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Некорректная конфигурация: %v", err)
	}

	if err := logger.Init(cfg.Log.File, cfg.Log.JSONFile); err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer logger.GetLogger().Sync()

	logger.Info("Запуск",
		zap.String("mode", config.ActiveMode()),
		zap.String("backend", cfg.BaseURL()),
		zap.String("config", *configPath))

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := predictions.NewClient(cfg)

	if *exportDir != "" {
		if err := runExport(ctx, client, *exportDir); err != nil {
			logger.Error("Ошибка выгрузки", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Ошибка выгрузки: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Архив полученных прогнозов; недоступность InfluxDB не мешает работе
	archive, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Warn("Архив прогнозов недоступен, продолжаем без него", zap.Error(err))
	}
	defer archive.Close()

	var spot exchange.SpotPriceProvider
	if cfg.Exchange.Enabled {
		spot = exchange.NewBinanceClient(cfg.Exchange)
	}

	userInterface := ui.NewTermUI(ctx, cfg.UI, client, spot, archiveHandler(archive, sourceHost(client.BaseURL())))

	// Запускаем UI в основном потоке (блокирующий вызов)
	if err := userInterface.Start(); err != nil {
		logger.Error("Ошибка UI", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runExport(ctx context.Context, client *predictions.Client, dir string) error {
	files, err := export.NewExporter(client, dir).Run(ctx)
	if err != nil {
		if fe, ok := predictions.AsFetchError(err); ok {
			logger.Debug("Детали ошибки запроса", zap.String("kind", fe.Kind.String()), zap.Error(fe))
			return errors.New(retrieval.ReasonFor(fe))
		}
		return err
	}

	fmt.Println("CSV:", files.CSV)
	if files.Chart != "" {
		fmt.Println("График:", files.Chart)
	}
	if files.ServerPlot != "" {
		fmt.Println("График сервера:", files.ServerPlot)
	}
	return nil
}

// archiveHandler сохраняет каждый полученный прогноз в архив
func archiveHandler(archive storage.Archive, source string) ui.ReadyHandler {
	return func(ctx context.Context, mountID string, ready retrieval.Ready) {
		snap := storage.Snapshot{
			MountID:        mountID,
			Source:         source,
			Series:         ready.Series,
			ChartSourceURL: ready.ChartSourceURL,
			FetchedAt:      time.Now(),
		}
		if err := archive.SaveSnapshot(ctx, snap); err != nil {
			logger.Warn("Не удалось сохранить прогноз в архив", zap.String("mount", mountID), zap.Error(err))
		}
	}
}

func sourceHost(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Host
}
