// Package log writes tandem's diagnostics to a dated file under where.Logs.
// Nothing is written unless logs.write is set.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/where"
)

var (
	enabled bool
	file    io.Closer
)

var discard = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}

// Setup applies the logs.* settings. It can be called again after they change;
// the previous file is closed.
func Setup() error {
	if file != nil {
		logrus.SetOutput(os.Stderr)
		_ = file.Close()
		file = nil
	}

	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	path := Path(time.Now())
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		enabled = false
		return fmt.Errorf("open log file: %w", err)
	}
	file = f
	logrus.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{PrettyPrint: true})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return nil
}

// Path returns the log file used on day.
func Path(day time.Time) string {
	return filepath.Join(where.Logs(), fmt.Sprintf("%s-%s.log", constant.Tandem, day.Format("2006-01-02")))
}

func Enabled() bool {
	return enabled
}

func logger() *logrus.Logger {
	if enabled {
		return logrus.StandardLogger()
	}
	return discard
}

// WithFields starts an entry; coordinator and synchronizer entries carry the
// stream ID under "stream".
func WithFields(fields logrus.Fields) *logrus.Entry {
	return logger().WithFields(fields)
}

func Error(args ...any)                 { logger().Error(args...) }
func Errorf(format string, args ...any) { logger().Errorf(format, args...) }
func Warn(args ...any)                  { logger().Warn(args...) }
func Warnf(format string, args ...any)  { logger().Warnf(format, args...) }
func Info(args ...any)                  { logger().Info(args...) }
func Infof(format string, args ...any)  { logger().Infof(format, args...) }
func Debug(args ...any)                 { logger().Debug(args...) }
func Debugf(format string, args ...any) { logger().Debugf(format, args...) }
