package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/bfpv/internal/chart"
	"github.com/skalibog/bfpv/internal/config"
	"github.com/skalibog/bfpv/internal/exchange"
	"github.com/skalibog/bfpv/internal/pager"
	"github.com/skalibog/bfpv/internal/retrieval"
	"github.com/skalibog/bfpv/pkg/logger"
	"github.com/skalibog/bfpv/pkg/models"
	"go.uber.org/zap"
)

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	mutedColor     = lipgloss.Color("#999999")
	// Главный контейнер
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffffff")).
				Background(secondaryColor).
				Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(primaryColor)
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)
	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)
)

const maxLogs = 50

// ReadyHandler вызывается для каждого полученного прогноза
type ReadyHandler func(ctx context.Context, mountID string, ready retrieval.Ready)

// TermUI представляет терминальный интерфейс прогноза
type TermUI struct {
	ctx       context.Context
	config    config.UIConfig
	machine   *retrieval.Machine
	spot      exchange.SpotPriceProvider
	formatter *chart.Formatter
	onReady   ReadyHandler
	program   *tea.Program
	logs      []string
	logsMutex sync.RWMutex
	logFile   string // Путь к файлу логов
}

// Сообщения для обновления UI
type refreshMsg struct{}

type stateMsg struct {
	state retrieval.State
}

type spotMsg struct {
	price *models.SpotPrice
	err   error
}

type mountErrMsg struct {
	err error
}

// bubbleModel - модель для bubbletea
type bubbleModel struct {
	ui      *TermUI
	state   retrieval.State
	cursor  pager.Cursor
	spinner spinner.Model
	spot    *models.SpotPrice
	spotErr error
	width   int
	height  int
}

// NewTermUI создает интерфейс. Машина состояний создается на каждое монтирование,
// spot может быть nil.
func NewTermUI(ctx context.Context, cfg config.UIConfig, fetcher retrieval.Fetcher, spot exchange.SpotPriceProvider, onReady ReadyHandler) *TermUI {
	ui := &TermUI{
		ctx:       ctx,
		config:    cfg,
		spot:      spot,
		formatter: chart.NewFormatter(cfg.Locale),
		onReady:   onReady,
		logs:      []string{"Запуск. Ожидание прогноза..."},
		logFile:   logger.JSONLogPath(),
	}
	ui.machine = retrieval.NewMachine(fetcher, ui.observe)
	return ui
}

// observe пересылает новое состояние в цикл bubbletea
func (ui *TermUI) observe(s retrieval.State) {
	if ui.program != nil {
		ui.program.Send(stateMsg{state: s})
	}
}

// Start запускает UI и блокирует до выхода пользователя
func (ui *TermUI) Start() error {
	model := ui.newModel()
	ui.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ui.ctx))

	go ui.watchLogs()

	_, err := ui.program.Run()

	// Результат незавершенного запроса больше не должен попадать в UI
	ui.machine.Unmount()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ошибка запуска UI: %w", err)
	}
	return nil
}

func (ui *TermUI) newModel() bubbleModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return bubbleModel{
		ui:      ui,
		state:   retrieval.Loading{},
		cursor:  pager.NewCursor(ui.config.PageSize),
		spinner: s,
		width:   120,
		height:  40,
	}
}

// watchLogs периодически перечитывает файл логов
func (ui *TermUI) watchLogs() {
	ticker := time.NewTicker(time.Duration(ui.config.RefreshRate) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ui.loadLogsFromFile(); err != nil {
				logger.Warn("Ошибка загрузки логов", zap.Error(err))
				continue
			}
			if ui.program != nil {
				ui.program.Send(refreshMsg{})
			}
		case <-ui.ctx.Done():
			return
		}
	}
}

// Чтение логов из JSON файла
func (ui *TermUI) loadLogsFromFile() error {
	if ui.logFile == "" {
		return nil
	}
	file, err := os.Open(ui.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Файл не существует, это не ошибка
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var logs []string

	// Регулярное выражение для удаления ANSI-цветов
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)

	for scanner.Scan() {
		logs = append(logs, formatLogLine(scanner.Text(), ansiRegex))
		if len(logs) > maxLogs {
			logs = logs[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	ui.logsMutex.Lock()
	defer ui.logsMutex.Unlock()
	if len(logs) > 0 {
		ui.logs = logs
	}
	return nil
}

// formatLogLine превращает JSON запись zap в строку панели логов
func formatLogLine(line string, ansiRegex *regexp.Regexp) string {
	var zapLog map[string]interface{}
	if err := json.Unmarshal([]byte(line), &zapLog); err != nil {
		// Не удалось распарсить JSON, добавляем как есть
		return line
	}

	level, _ := zapLog["level"].(string)
	ts, _ := zapLog["ts"].(string)
	msg, _ := zapLog["msg"].(string)
	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse("02.01.2006 - 15:04:05.999999999Z07:00", ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	formatted := fmt.Sprintf("[%s] [%s] %s", timestamp, level, msg)

	// Дополнительные поля в стабильном порядке
	keys := make([]string, 0, len(zapLog))
	for k := range zapLog {
		if k != "level" && k != "ts" && k != "msg" && k != "caller" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		formatted += fmt.Sprintf(" (%s: %v)", k, zapLog[k])
	}
	return formatted
}

func (ui *TermUI) logsSnapshot() []string {
	ui.logsMutex.RLock()
	defer ui.logsMutex.RUnlock()
	out := make([]string, len(ui.logs))
	copy(out, ui.logs)
	return out
}

// Команды bubbletea

func (m bubbleModel) mountCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.ui.machine.Mount(m.ui.ctx); err != nil {
			return mountErrMsg{err: err}
		}
		return nil
	}
}

func (m bubbleModel) retryCmd() tea.Cmd {
	return func() tea.Msg {
		m.ui.machine.Retry()
		return nil
	}
}

func (m bubbleModel) spotCmd() tea.Cmd {
	if m.ui.spot == nil {
		return nil
	}
	return func() tea.Msg {
		price, err := m.ui.spot.GetSpotPrice(m.ui.ctx)
		return spotMsg{price: price, err: err}
	}
}

func (m bubbleModel) readyCmd(ready retrieval.Ready) tea.Cmd {
	if m.ui.onReady == nil {
		return nil
	}
	return func() tea.Msg {
		m.ui.onReady(m.ui.ctx, m.ui.machine.ID(), ready)
		return nil
	}
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.mountCmd(), m.spotCmd())
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case stateMsg:
		m.state = msg.state
		switch s := msg.state.(type) {
		case retrieval.Ready:
			// Новая серия всегда открывается с первой страницы
			m.cursor = m.cursor.First()
			return m, m.readyCmd(s)
		case retrieval.Loading:
			return m, m.spinner.Tick
		}

	case spotMsg:
		m.spot, m.spotErr = msg.price, msg.err
		if msg.err != nil {
			logger.Warn("Не удалось получить текущую цену", zap.Error(msg.err))
		}

	case mountErrMsg:
		logger.Error("Ошибка монтирования", zap.Error(msg.err))

	case spinner.TickMsg:
		if _, loading := m.state.(retrieval.Loading); !loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		// Просто обновляем UI
	}

	return m, nil
}

func (m bubbleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		if _, failed := m.state.(retrieval.Failed); failed {
			return m, m.retryCmd()
		}
		return m, nil
	}

	ready, ok := m.state.(retrieval.Ready)
	if !ok {
		return m, nil
	}
	pages := pager.PageCount(ready.Series.Len(), m.cursor.PageSize)

	switch msg.String() {
	case "right", "l", "n", "pgdown":
		m.cursor = m.cursor.Next(pages)
	case "left", "h", "p", "pgup":
		m.cursor = m.cursor.Prev(pages)
	case "home", "g":
		m.cursor = m.cursor.First()
	case "end", "G":
		m.cursor = m.cursor.Last(pages)
	}
	return m, nil
}

func (m bubbleModel) View() string {
	title := titleStyle.Render("BFPV - BTC Forecast Price Viewer")
	status := m.renderStatus()
	logs := renderLogsSection(m.ui.logsSnapshot())
	footer := footerStyle.Render("Клавиши: ←/→ - страницы, Home/End - первая/последняя, R - повторить при ошибке, Q - выход")

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			status,
			"\n",
			logs,
			"\n",
			footer,
		),
	)
}

// renderStatus отображает ровно одно из трех состояний
func (m bubbleModel) renderStatus() string {
	switch s := m.state.(type) {
	case retrieval.Failed:
		return renderSection("ОШИБКА", errorStyle.Render("  "+s.Reason)+"\n"+
			footerStyle.Render("  Нажмите R, чтобы повторить попытку"))
	case retrieval.Ready:
		return m.renderReady(s)
	default:
		return renderSection("ПРОГНОЗ", fmt.Sprintf("  %s Загрузка прогноза...", m.spinner.View()))
	}
}

func (m bubbleModel) renderReady(s retrieval.Ready) string {
	f := m.ui.formatter
	page := pager.Paginate(s.Series, m.cursor)
	summary := chart.Summarize(s.Series)

	content := strings.Builder{}
	if summary.Count == 0 {
		content.WriteString("  Сервис вернул пустой прогноз\n")
	} else {
		content.WriteString(fmt.Sprintf("  Прогноз на %d дн. | Мин: %s | Макс: %s | Изменение: %s%%\n",
			summary.Count,
			f.FormatPrice(summary.Min.InexactFloat64()),
			f.FormatPrice(summary.Max.InexactFloat64()),
			colorChange(summary.ChangePct.InexactFloat64(), summary.ChangePct.StringFixed(2))))
	}
	if !s.LastUpdated.IsZero() {
		content.WriteString(fmt.Sprintf("  Обновлено: %s\n", s.LastUpdated.Format("02.01.2006 15:04:05")))
	}
	if line := m.renderSpot(s.Series); line != "" {
		content.WriteString(line + "\n")
	}
	content.WriteString("\n")
	content.WriteString(renderTable(page, m.cursor.PageSize, f))

	sections := []string{renderSection("ПРОГНОЗ", content.String())}

	if m.ui.config.ShowCharts && s.Series.Len() > 0 {
		width := m.width - 24
		plot := chart.Plot(chart.ToChartData(s.Series), width, m.ui.config.ChartHeight)
		body := plot
		if s.ChartSourceURL != "" {
			body += "\n\n" + footerStyle.Render("График сервера: "+s.ChartSourceURL)
		}
		sections = append(sections, renderSection("ГРАФИК", body))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m bubbleModel) renderSpot(series models.PredictionSeries) string {
	if m.ui.spot == nil {
		return ""
	}
	if m.spotErr != nil {
		return footerStyle.Render("  Текущая цена недоступна")
	}
	if m.spot == nil {
		return footerStyle.Render("  Текущая цена: загрузка...")
	}

	line := fmt.Sprintf("  %s сейчас: %s", m.spot.Symbol, m.ui.formatter.FormatPrice(m.spot.Price))
	if series.Len() > 0 && m.spot.Price != 0 {
		diff := (series.At(0).Price - m.spot.Price) / m.spot.Price * 100
		line += fmt.Sprintf(" | Первый день прогноза: %s%%", colorChange(diff, fmt.Sprintf("%+.2f", diff)))
	}
	return line
}

// renderTable таблица видимой страницы
func renderTable(page pager.Page, pageSize int, f *chart.Formatter) string {
	b := strings.Builder{}
	b.WriteString(tableHeaderStyle.Render(fmt.Sprintf("  %-4s %-14s %16s", "#", "Дата", "Цена, USD")) + "\n")

	offset := page.PageIndex * pageSize
	for i, p := range page.Visible {
		b.WriteString(fmt.Sprintf("  %-4d %-14s %16s\n", offset+i+1, chart.FormatLabel(p), f.FormatPrice(p.Price)))
	}

	if page.PageCount > 0 {
		b.WriteString(footerStyle.Render(fmt.Sprintf("Страница %d из %d", page.PageIndex+1, page.PageCount)))
	}
	return b.String()
}

func renderSection(title, body string) string {
	return sectionStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			sectionHeaderStyle.Render(title),
			body,
		),
	)
}

func renderLogsSection(logs []string) string {
	content := strings.Builder{}

	maxLogsToShow := 6
	start := 0
	if len(logs) > maxLogsToShow {
		start = len(logs) - maxLogsToShow
	}

	for i := start; i < len(logs); i++ {
		log := logs[i]

		// Выделение по уровню логирования
		if strings.Contains(log, "[ERROR]") {
			log = lipgloss.NewStyle().Foreground(errorColor).Render(log)
		} else if strings.Contains(log, "[INFO]") {
			log = lipgloss.NewStyle().Foreground(successColor).Render(log)
		} else if strings.Contains(log, "[WARN]") {
			log = lipgloss.NewStyle().Foreground(warningColor).Render(log)
		} else if strings.Contains(log, "[DEBUG]") {
			log = lipgloss.NewStyle().Foreground(lipgloss.Color("#9999ff")).Render(log)
		}

		content.WriteString("  " + log + "\n")
	}

	return renderSection("ЛОГИ", content.String())
}

// colorChange окрашивает изменение цены по знаку
func colorChange(value float64, text string) string {
	switch {
	case value > 0:
		return lipgloss.NewStyle().Foreground(successColor).Render(text)
	case value < 0:
		return lipgloss.NewStyle().Foreground(errorColor).Render(text)
	default:
		return text
	}
}
