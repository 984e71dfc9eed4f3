package chart

import (
	"math"

	"github.com/skalibog/bfpv/pkg/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale локаль форматирования цен по умолчанию
const DefaultLocale = "en-US"

// LabelLayout формат подписи даты на графике и в таблице
const LabelLayout = "Jan 02, 2006"

// ChartData набор данных для линейного графика
type ChartData struct {
	Labels []string
	Values []float64
}

// Len возвращает количество точек графика
func (d ChartData) Len() int {
	return len(d.Values)
}

// ToChartData преобразует серию в подписи и значения графика.
// Порядок и длина серии сохраняются.
func ToChartData(series models.PredictionSeries) ChartData {
	data := ChartData{
		Labels: make([]string, series.Len()),
		Values: make([]float64, series.Len()),
	}
	for i := 0; i < series.Len(); i++ {
		p := series.At(i)
		data.Labels[i] = FormatLabel(p)
		data.Values[i] = p.Price
	}
	return data
}

// FormatLabel форматирует дату точки для отображения.
// Нераспознанная дата возвращается как есть.
func FormatLabel(p models.PredictionPoint) string {
	t, err := p.Time()
	if err != nil {
		return p.Date
	}
	return t.Format(LabelLayout)
}

// Formatter форматирует цены с учетом локали
type Formatter struct {
	printer *message.Printer
}

// NewFormatter создает форматтер для локали (BCP 47). Неизвестная локаль
// заменяется на DefaultLocale.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// FormatPrice возвращает цену ровно с двумя знаками после разделителя
// и разделителями разрядов локали. Исходное значение не изменяется.
func (f *Formatter) FormatPrice(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "-"
	}
	return f.printer.Sprintf("%v", number.Decimal(value, number.Scale(2)))
}

var defaultFormatter = NewFormatter(DefaultLocale)

// FormatPrice форматирует цену в локали по умолчанию
func FormatPrice(value float64) string {
	return defaultFormatter.FormatPrice(value)
}
