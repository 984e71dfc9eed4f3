package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/skalibog/bfpv/internal/predictions"
	"github.com/skalibog/bfpv/pkg/logger"
	"go.uber.org/zap"
)

// ErrAlreadyMounted повторный Mount одной и той же машины
var ErrAlreadyMounted = errors.New("машина состояний уже смонтирована")

// ErrDisposed Mount после Unmount
var ErrDisposed = errors.New("машина состояний размонтирована")

// Fetcher источник прогноза
type Fetcher interface {
	FetchPredictions(ctx context.Context) (*predictions.Result, error)
}

// Observer получает каждое новое состояние. Вызывается последовательно
// и никогда после возврата из Unmount. Не должен вызывать Unmount.
type Observer func(State)

// Machine владеет жизненным циклом получения прогноза для одного монтирования view
type Machine struct {
	fetcher  Fetcher
	observer Observer
	id       string

	mu         sync.Mutex
	notifyMu   sync.Mutex
	state      State
	mounted    bool
	used       bool
	disposed   bool
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewMachine создает машину в состоянии Loading
func NewMachine(fetcher Fetcher, observer Observer) *Machine {
	return &Machine{
		fetcher:  fetcher,
		observer: observer,
		id:       uuid.NewString(),
		state:    Loading{},
	}
}

// ID идентификатор монтирования
func (m *Machine) ID() string {
	return m.id
}

// State возвращает текущее состояние
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mount входит в Loading и запускает ровно один запрос
func (m *Machine) Mount(ctx context.Context) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return ErrDisposed
	}
	if m.used {
		m.mu.Unlock()
		return ErrAlreadyMounted
	}
	m.used = true
	m.mounted = true
	m.state = Loading{}
	m.ctx, m.cancel = context.WithCancel(ctx)
	token := m.startLocked()
	m.mu.Unlock()

	logger.Info("Загрузка прогноза", zap.String("mount", m.id), zap.Uint64("attempt", token))
	m.notify(Loading{})
	return nil
}

// Retry явный переход Failed -> Loading с новой попыткой.
// Возвращает false, если машина не в состоянии Failed или размонтирована.
func (m *Machine) Retry() bool {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if _, failed := m.state.(Failed); !failed || !m.mounted {
		m.mu.Unlock()
		return false
	}
	next := Reduce(m.state, RetryRequested{})
	m.state = next
	token := m.startLocked()
	m.mu.Unlock()

	logger.Info("Повторная загрузка прогноза", zap.String("mount", m.id), zap.Uint64("attempt", token))
	m.notify(next)
	return true
}

// Unmount отменяет незавершенный запрос. После возврата наблюдатель больше не вызывается.
func (m *Machine) Unmount() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Машина одноразовая: Mount после Unmount уже ничего не запустит
	m.disposed = true
	if !m.mounted {
		return
	}
	m.mounted = false
	m.cancel()
	logger.Debug("Машина состояний размонтирована", zap.String("mount", m.id), zap.String("state", StatusName(m.state)))
}

// Wait ждет завершения всех запущенных запросов
func (m *Machine) Wait() {
	m.wg.Wait()
}

// startLocked запускает запрос. Вызывается под m.mu.
func (m *Machine) startLocked() uint64 {
	m.generation++
	token := m.generation
	ctx := m.ctx

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.apply(token, m.fetch(ctx))
	}()
	return token
}

// fetch превращает любой исход запроса, включая панику, в событие
func (m *Machine) fetch(ctx context.Context) (ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Паника при получении прогноза", zap.Any("panic", r))
			ev = FetchFailed{Err: fmt.Errorf("паника при получении прогноза: %v", r)}
		}
	}()

	res, err := m.fetcher.FetchPredictions(ctx)
	if err != nil {
		return FetchFailed{Err: err}
	}
	return FetchSucceeded{Result: res}
}

// apply применяет результат, если попытка актуальна и view еще смонтирован
func (m *Machine) apply(token uint64, ev Event) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if !m.mounted || token != m.generation {
		m.mu.Unlock()
		logger.Debug("Результат отброшен", zap.String("mount", m.id), zap.Uint64("attempt", token))
		return
	}
	next := Reduce(m.state, ev)
	m.state = next
	m.mu.Unlock()

	switch s := next.(type) {
	case Ready:
		logger.Info("Прогноз готов", zap.String("mount", m.id), zap.Int("points", s.Series.Len()))
	case Failed:
		if f, ok := ev.(FetchFailed); ok {
			logger.Warn("Ошибка получения прогноза", zap.String("mount", m.id), zap.Error(f.Err))
		}
	}

	m.notify(next)
}

// notify вызывается под notifyMu
func (m *Machine) notify(s State) {
	if m.observer != nil {
		m.observer(s)
	}
}
