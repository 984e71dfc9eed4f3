package retrieval

import (
	"time"

	"github.com/skalibog/bfpv/internal/predictions"
	"github.com/skalibog/bfpv/pkg/models"
)

// ConnectionErrorMessage общее сообщение об ошибке соединения
const ConnectionErrorMessage = "Ошибка подключения к серверу"

// State состояние получения прогноза: Loading, Failed или Ready
type State interface {
	isState()
}

// Loading начальное состояние, данных еще нет
type Loading struct{}

// Failed попытка завершилась ошибкой
type Failed struct {
	Reason string
}

// Ready прогноз получен
type Ready struct {
	Series         models.PredictionSeries
	ChartSourceURL string
	LastUpdated    time.Time
}

func (Loading) isState() {}
func (Failed) isState()  {}
func (Ready) isState()   {}

// Event событие, переводящее машину состояний
type Event interface {
	isEvent()
}

// FetchSucceeded запрос завершился успешно
type FetchSucceeded struct {
	Result *predictions.Result
}

// FetchFailed запрос завершился ошибкой
type FetchFailed struct {
	Err error
}

// RetryRequested пользователь запросил повторную попытку
type RetryRequested struct{}

func (FetchSucceeded) isEvent() {}
func (FetchFailed) isEvent()    {}
func (RetryRequested) isEvent() {}

// Reduce чистая функция перехода. Пары состояние/событие без перехода
// возвращают исходное состояние.
func Reduce(s State, e Event) State {
	switch s.(type) {
	case Loading:
		switch ev := e.(type) {
		case FetchSucceeded:
			if ev.Result == nil {
				return Failed{Reason: ConnectionErrorMessage}
			}
			return Ready{
				Series:         ev.Result.Series,
				ChartSourceURL: ev.Result.ChartSourceURL,
				LastUpdated:    ev.Result.LastUpdated,
			}
		case FetchFailed:
			return Failed{Reason: ReasonFor(ev.Err)}
		}
	case Failed:
		if _, ok := e.(RetryRequested); ok {
			return Loading{}
		}
	}
	return s
}

// ReasonFor возвращает текст ошибки для пользователя.
// Сообщение бэкенда показывается как есть, остальные ошибки заменяются общим текстом.
func ReasonFor(err error) string {
	fe, ok := predictions.AsFetchError(err)
	if !ok {
		return ConnectionErrorMessage
	}
	if fe.Kind == predictions.ServerReported && fe.Detail != "" {
		return fe.Detail
	}
	return ConnectionErrorMessage
}

// StatusName имя состояния для логов
func StatusName(s State) string {
	switch s.(type) {
	case Loading:
		return "loading"
	case Failed:
		return "error"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}
