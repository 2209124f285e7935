package logger

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// LogrusLogger is a Logger backed by sirupsen/logrus.
type LogrusLogger struct {
	entry *log.Entry
}

// NewLogrus creates a root LogrusLogger that writes to stderr.
func NewLogrus() *LogrusLogger {
	l := log.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return &LogrusLogger{entry: log.NewEntry(l)}
}

// Module returns a child logger namespaced under ns.
func (l *LogrusLogger) Module(ns string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("mod", ns)}
}

// SetToDebug sets the minimum log level to debug.
func (l *LogrusLogger) SetToDebug() { l.entry.Logger.SetLevel(log.DebugLevel) }

// SetToInfo sets the minimum log level to info.
func (l *LogrusLogger) SetToInfo() { l.entry.Logger.SetLevel(log.InfoLevel) }

// SetToError sets the minimum log level to error.
func (l *LogrusLogger) SetToError() { l.entry.Logger.SetLevel(log.ErrorLevel) }

func fields(keyValues []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			continue
		}
		f[key] = keyValues[i+1]
	}
	return f
}

func (l *LogrusLogger) Debug(msg string, keyValues ...interface{}) {
	l.entry.WithFields(fields(keyValues)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, keyValues ...interface{}) {
	l.entry.WithFields(fields(keyValues)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, keyValues ...interface{}) {
	l.entry.WithFields(fields(keyValues)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, keyValues ...interface{}) {
	l.entry.WithFields(fields(keyValues)).Error(msg)
}

func (l *LogrusLogger) Fatal(msg string, keyValues ...interface{}) {
	l.entry.WithFields(fields(keyValues)).Fatal(msg)
}
