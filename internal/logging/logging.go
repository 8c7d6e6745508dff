package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the process-wide logger. With an empty file path logs go
// to stderr only; otherwise they are mirrored to a size-rotated file.
func Setup(file string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if file == "" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
}
