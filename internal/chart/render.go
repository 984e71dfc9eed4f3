package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/guptarohit/asciigraph"
	gochart "github.com/wcharczuk/go-chart/v2"
)

// ErrEmptyChart возвращается при попытке нарисовать пустой набор данных
var ErrEmptyChart = errors.New("нет данных для графика")

const maxTicks = 6

// RenderPNG рисует график прогноза в PNG
func RenderPNG(w io.Writer, data ChartData) error {
	if data.Len() == 0 {
		return ErrEmptyChart
	}

	xs := make([]float64, data.Len())
	ys := make([]float64, data.Len())
	minY, maxY := data.Values[0], data.Values[0]
	for i, v := range data.Values {
		xs[i] = float64(i)
		ys[i] = v
		if v < minY {
			minY = v
		}
		if v > maxY {
			maxY = v
		}
	}

	// go-chart требует как минимум два значения по X
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}

	yAxis := gochart.YAxis{
		Name: "Price (USD)",
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return FormatPrice(f)
			}
			return ""
		},
	}
	if minY == maxY {
		pad := maxY * 0.01
		if pad == 0 {
			pad = 1
		}
		yAxis.Range = &gochart.ContinuousRange{Min: minY - pad, Max: maxY + pad}
	}

	graph := gochart.Chart{
		Title:      fmt.Sprintf("Price Predictions - Next %d Days", data.Len()),
		Width:      1200,
		Height:     600,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Ticks: ticks(data.Labels, xs[len(xs)-1])},
		YAxis:      yAxis,
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Predicted Price",
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: gochart.ColorBlue,
					StrokeWidth: 2,
				},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("ошибка отрисовки графика: %w", err)
	}
	return nil
}

// ticks выбирает не более maxTicks равномерно распределенных подписей
func ticks(labels []string, maxX float64) []gochart.Tick {
	if len(labels) == 1 {
		return []gochart.Tick{{Value: 0, Label: labels[0]}, {Value: maxX, Label: ""}}
	}

	step := (len(labels) + maxTicks - 1) / maxTicks
	if step < 1 {
		step = 1
	}
	var out []gochart.Tick
	for i := 0; i < len(labels); i += step {
		out = append(out, gochart.Tick{Value: float64(i), Label: labels[i]})
	}
	if last := len(labels) - 1; out[len(out)-1].Value != float64(last) {
		out = append(out, gochart.Tick{Value: float64(last), Label: labels[last]})
	}
	return out
}

// Plot рисует график в виде текста для терминальной панели
func Plot(data ChartData, width, height int) string {
	if data.Len() == 0 {
		return ""
	}
	if width < 10 {
		width = 10
	}
	if height < 3 {
		height = 3
	}

	caption := data.Labels[0]
	if data.Len() > 1 {
		caption = data.Labels[0] + " - " + data.Labels[data.Len()-1]
	}

	graph := asciigraph.Plot(data.Values,
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)
	return strings.TrimRight(graph, "\n")
}
