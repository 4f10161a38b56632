package logger

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. Unknown levels fall back to info.
func Setup(level, format string) {
	SetupWithOutput(os.Stdout, level, format)
}

func SetupWithOutput(out io.Writer, level, format string) {
	log.SetOutput(out)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
