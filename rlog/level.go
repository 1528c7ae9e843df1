package rlog

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Level is the closed, numbered severity scale crossing the logging
// upcall (spec.md §4.D): Trace=0, Debug=1, Info=2, Warn=3, Error=4, Off=5.
// Off is a filter sentinel only; no record is ever emitted at that level.
type Level uint8

const (
	Trace Level = 0
	Debug Level = 1
	Info  Level = 2
	Warn  Level = 3
	Error Level = 4
	Off   Level = 5
)

var levelNames = [...]string{"trace", "debug", "info", "warn", "error", "off"}

// String renders the level's lowercase wire name, the same spelling
// PluginConfig.LogLevel accepts.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// ParseLevel parses a PluginConfig.LogLevel string, defaulting unknown
// input to Info rather than failing plugin init over a typo'd level.
func ParseLevel(s string) Level {
	switch s {
	case "trace":
		return Trace
	case "debug":
		return Debug
	case "info", "":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	case "off":
		return Off
	default:
		return Info
	}
}

// zerologLevel maps a Level to the nearest zerolog.Level for local
// structured emission; Off maps to Disabled.
func (l Level) zerologLevel() zerolog.Level {
	switch l {
	case Trace:
		return zerolog.TraceLevel
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}
