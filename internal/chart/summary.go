package chart

import (
	"github.com/shopspring/decimal"
	"github.com/skalibog/bfpv/pkg/models"
)

// Summary сводка по серии для заголовка панели графика
type Summary struct {
	Count     int
	First     decimal.Decimal
	Last      decimal.Decimal
	Min       decimal.Decimal
	Max       decimal.Decimal
	ChangePct decimal.Decimal
}

// Summarize считает первую, последнюю, минимальную и максимальную цены
// и изменение за горизонт прогноза в процентах
func Summarize(series models.PredictionSeries) Summary {
	s := Summary{Count: series.Len()}
	if series.Len() == 0 {
		return s
	}

	s.First = decimal.NewFromFloat(series.At(0).Price)
	s.Last = decimal.NewFromFloat(series.At(series.Len() - 1).Price)
	s.Min = s.First
	s.Max = s.First

	for i := 1; i < series.Len(); i++ {
		v := decimal.NewFromFloat(series.At(i).Price)
		if v.LessThan(s.Min) {
			s.Min = v
		}
		if v.GreaterThan(s.Max) {
			s.Max = v
		}
	}

	if !s.First.IsZero() {
		s.ChangePct = s.Last.Sub(s.First).
			Div(s.First).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	return s
}
