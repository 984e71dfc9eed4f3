package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Глобальный экземпляр логгера
var (
	globalLogger *zap.Logger
	jsonLogPath  string
	mu           sync.RWMutex
)

// TimeLayout формат времени в записях лога
const TimeLayout = "02.01.2006 - 15:04:05.000000000Z07:00"

// Init инициализирует глобальный логгер с записью в читаемый и JSON файлы.
// JSON файл очищается при каждом запуске, его читает панель логов UI.
func Init(readablePath, jsonPath string) error {
	if err := os.Truncate(jsonPath, 0); err != nil && !os.IsNotExist(err) {
		return err
	}

	l, err := newLogger(readablePath, jsonPath)
	if err != nil {
		return err
	}

	mu.Lock()
	globalLogger = l
	jsonLogPath = jsonPath
	mu.Unlock()
	return nil
}

// JSONLogPath возвращает путь к JSON файлу логов
func JSONLogPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return jsonLogPath
}

// GetLogger возвращает глобальный экземпляр логгера.
// До вызова Init записи отбрасываются.
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// Вспомогательные функции для удобства использования
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// newLogger создает логгер: читаемый файл + JSON файл
func newLogger(readablePath, jsonPath string) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	readableConfig := encoderConfig
	readableConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	jsonConfig := encoderConfig
	jsonConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	readableFile, err := os.OpenFile(readablePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	jsonFile, err := os.OpenFile(jsonPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		readableFile.Close()
		return nil, err
	}

	level := zapcore.DebugLevel

	// Tee: читаемый файл + JSON файл. В консоль не пишем, ее занимает UI
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(readableConfig), zapcore.AddSync(readableFile), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonConfig), zapcore.AddSync(jsonFile), level),
	)

	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}
