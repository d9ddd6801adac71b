package logger

import (
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// log - корневой логгер процесса, до вызова Init пишет в stdout на уровне info
var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init настраивает JSON логгер в stdout
func Init(serviceName string, level string) {
	log = build(os.Stdout, serviceName, level)
}

// InitWithWriter настраивает логгер с произвольным writer (используется в тестах)
func InitWithWriter(serviceName string, level string, w io.Writer) {
	log = build(w, serviceName, level)
}

// InitLogstash дублирует логи в Logstash по TCP
// При ошибке подключения текущий логгер не меняется
func InitLogstash(addr string, serviceName string, level string) error {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return err
	}

	log = build(zerolog.MultiLevelWriter(os.Stdout, conn), serviceName, level)
	return nil
}

func build(w io.Writer, serviceName, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

// Printf нужен для адаптеров библиотек, ожидающих printf-логгер (cron, kafka)
func Printf(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

// PrintfLogger - Printf как значение: cron.VerbosePrintfLogger, kafka.LoggerFunc
type PrintfLogger struct{}

func (PrintfLogger) Printf(format string, args ...interface{}) {
	Printf(format, args...)
}

// ErrorPrintf пишет сообщения библиотек на уровне error
func ErrorPrintf(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
}
