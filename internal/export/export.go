package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skalibog/bfpv/internal/chart"
	"github.com/skalibog/bfpv/internal/predictions"
	"github.com/skalibog/bfpv/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source источник прогноза и серверного графика
type Source interface {
	FetchPredictions(ctx context.Context) (*predictions.Result, error)
	FetchPlot(ctx context.Context, plotURL string, w io.Writer) error
}

// Files пути к созданным файлам
type Files struct {
	CSV        string
	Chart      string
	ServerPlot string
}

// Exporter выгружает прогноз в файлы
type Exporter struct {
	source Source
	dir    string
	now    func() time.Time
}

// NewExporter создает выгрузку в каталог dir
func NewExporter(source Source, dir string) *Exporter {
	return &Exporter{source: source, dir: dir, now: time.Now}
}

// Run выполняет один запрос прогноза и параллельно пишет CSV, PNG график
// и копию серверного графика
func (e *Exporter) Run(ctx context.Context) (*Files, error) {
	res, err := e.source.FetchPredictions(ctx)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога выгрузки: %w", err)
	}

	stamp := e.now().Format("20060102")
	files := &Files{
		CSV:   filepath.Join(e.dir, fmt.Sprintf("predictions_%s.csv", stamp)),
		Chart: filepath.Join(e.dir, fmt.Sprintf("predictions_plot_%s.png", stamp)),
	}
	if res.ChartSourceURL != "" {
		files.ServerPlot = filepath.Join(e.dir, fmt.Sprintf("server_plot_%s.png", stamp))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return writeFile(files.CSV, func(w io.Writer) error {
			return WriteCSV(w, res)
		})
	})

	if res.Series.Len() > 0 {
		g.Go(func() error {
			return writeFile(files.Chart, func(w io.Writer) error {
				return chart.RenderPNG(w, chart.ToChartData(res.Series))
			})
		})
	} else {
		files.Chart = ""
	}

	if files.ServerPlot != "" {
		g.Go(func() error {
			return writeFile(files.ServerPlot, func(w io.Writer) error {
				return e.source.FetchPlot(gctx, res.ChartSourceURL, w)
			})
		})
	}

	if err := g.Wait(); err != nil {
		// Выгрузка либо полная, либо никакая
		files.remove()
		return nil, err
	}

	logger.Info("Прогноз выгружен",
		zap.String("csv", files.CSV),
		zap.String("chart", files.Chart),
		zap.String("server_plot", files.ServerPlot))
	return files, nil
}

func (f *Files) remove() {
	for _, path := range []string{f.CSV, f.Chart, f.ServerPlot} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("Не удалось удалить файл выгрузки", zap.String("path", path), zap.Error(err))
		}
	}
}

// WriteCSV пишет прогноз в формате Date,Predicted_Price
func WriteCSV(w io.Writer, res *predictions.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Date", "Predicted_Price"}); err != nil {
		return err
	}
	for _, p := range res.Series.Points() {
		if err := cw.Write([]string{p.Date, strconv.FormatFloat(p.Price, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeFile пишет файл целиком; при ошибке частичный файл удаляется
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ошибка создания %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("ошибка записи %s: %w", path, err)
	}
	return f.Close()
}
