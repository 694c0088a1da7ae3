package applogger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logrusOnce   sync.Once
	logrusLogger *logrus.Logger
)

// GetLogrus returns the process-wide logrus logger, constructed once.
func GetLogrus() *logrus.Logger {
	logrusOnce.Do(func() {
		logrusLogger = logrus.New()
		logrusLogger.SetOutput(os.Stdout)
		logrusLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		logrusLogger.SetReportCaller(true)

		level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
		if err != nil {
			level = logrus.InfoLevel
		}
		logrusLogger.SetLevel(level)
	})

	return logrusLogger
}
