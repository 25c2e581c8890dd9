package logger

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.SetOutput(os.Stdout)

	switch config.Cfg.LogLevel {
	case config.Debug:
		log.SetLevel(logrus.DebugLevel)
	case config.Warn:
		log.SetLevel(logrus.WarnLevel)
	case config.Error:
		log.SetLevel(logrus.ErrorLevel)
	case config.Fatal:
		log.SetLevel(logrus.FatalLevel)
	case config.Panic:
		log.SetLevel(logrus.PanicLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		ForceColors:     true,
		DisableQuote:    true,
		PadLevelText:    true,
	})
}

// callerInfo returns the file and line of the caller two frames up.
func callerInfo() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown", 0
	}
	parts := strings.Split(file, "/")
	return parts[len(parts)-1], line
}

func Debug(format string, args ...interface{}) {
	file, line := callerInfo()
	log.Debugf("%s:%d "+format, append([]interface{}{file, line}, args...)...)
}

func Info(format string, args ...interface{}) {
	file, line := callerInfo()
	log.Infof("%s:%d "+format, append([]interface{}{file, line}, args...)...)
}

func Warn(format string, args ...interface{}) {
	file, line := callerInfo()
	log.Warnf("%s:%d "+format, append([]interface{}{file, line}, args...)...)
}

func Error(err error, format string, args ...interface{}) {
	file, line := callerInfo()
	fields := logrus.Fields{}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.WithFields(fields).Errorf("%s:%d "+format, append([]interface{}{file, line}, args...)...)
}

func Errorf(format string, args ...interface{}) {
	file, line := callerInfo()
	log.Errorf("%s:%d "+format, append([]interface{}{file, line}, args...)...)
}

func Fatal(err error, format string, args ...interface{}) {
	file, line := callerInfo()
	fields := logrus.Fields{}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.WithFields(fields).Fatalf("%s:%d "+format, append([]interface{}{file, line}, args...)...)
}

// WithField adds a field to the logger.
func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}

// WithFields adds multiple fields to the logger.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// SetLevel sets the log level directly.
func SetLevel(levelStr string) error {
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}
	log.SetLevel(level)
	return nil
}

// GetLogger returns the underlying logrus logger.
func GetLogger() *logrus.Logger {
	return log
}
