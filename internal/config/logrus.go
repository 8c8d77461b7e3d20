package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var logg = logrus.New()

// GetLogger returns the process-wide logger configured by SetupLogger.
func GetLogger() *logrus.Logger {
	return logg
}

// NewLogger 按配置创建日志器
func NewLogger(cfg LogConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)
	if cfg.Format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

// SetupLogger 配置全局日志器
func SetupLogger(cfg LogConfig) *logrus.Logger {
	logg = NewLogger(cfg, os.Stdout)
	return logg
}

// LogError 记录带模块与函数上下文的错误
func LogError(logger logrus.FieldLogger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
