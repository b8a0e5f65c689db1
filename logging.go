package main

import (
	"io"
	"os"

	"songwriter-go/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging configures logrus from the logging config. When a log file is
// set, entries go to stdout and to a rotated file.
func setupLogging(conf config.Config) {
	log.SetFormatter(&log.JSONFormatter{})

	level, err := log.ParseLevel(conf.Logging.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", conf.Logging.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if conf.Logging.File == "" {
		log.SetOutput(os.Stdout)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   conf.Logging.File,
		MaxSize:    conf.Logging.MaxSizeMB,
		MaxBackups: conf.Logging.MaxBackups,
		MaxAge:     28,
		Compress:   true,
	}))
}
