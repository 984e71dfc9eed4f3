package models

import (
	"fmt"
	"net/http"
	"time"
)

// dateLayouts форматы дат, которые отдает бэкенд прогнозов
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	http.TimeFormat,
	time.RFC1123,
}

// PredictionPoint представляет одну точку прогноза
type PredictionPoint struct {
	Date  string
	Price float64
}

// Time разбирает дату точки
func (p PredictionPoint) Time() (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, p.Date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("неизвестный формат даты: %q", p.Date)
}

// PredictionSeries неизменяемая упорядоченная серия прогнозов.
// Порядок точек сохраняется таким, каким его прислал бэкенд.
type PredictionSeries struct {
	points []PredictionPoint
}

// NewPredictionSeries создает серию из копии переданных точек
func NewPredictionSeries(points []PredictionPoint) PredictionSeries {
	if len(points) == 0 {
		return PredictionSeries{}
	}
	cp := make([]PredictionPoint, len(points))
	copy(cp, points)
	return PredictionSeries{points: cp}
}

// Len возвращает количество точек
func (s PredictionSeries) Len() int {
	return len(s.points)
}

// At возвращает точку по индексу
func (s PredictionSeries) At(i int) PredictionPoint {
	return s.points[i]
}

// Points возвращает копию всех точек
func (s PredictionSeries) Points() []PredictionPoint {
	return s.Slice(0, len(s.points))
}

// Slice возвращает копию диапазона [lo, hi)
func (s PredictionSeries) Slice(lo, hi int) []PredictionPoint {
	if lo < 0 {
		lo = 0
	}
	if hi > len(s.points) {
		hi = len(s.points)
	}
	if lo >= hi {
		return []PredictionPoint{}
	}
	out := make([]PredictionPoint, hi-lo)
	copy(out, s.points[lo:hi])
	return out
}

// SpotPrice представляет текущую биржевую цену актива
type SpotPrice struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}
