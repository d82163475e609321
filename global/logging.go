package global

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// global Log
var Logger log.Logger

func init() {
	w := log.NewSyncWriter(os.Stderr)
	Logger = log.NewLogfmtLogger(w)
	Logger = log.With(Logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// ConfigureLogLevel restricts the global logger to info and above unless the server runs in debug mode
func ConfigureLogLevel(mode string) {
	if mode == "debug" {
		Logger = level.NewFilter(Logger, level.AllowDebug())
		return
	}
	Logger = level.NewFilter(Logger, level.AllowInfo())
}
