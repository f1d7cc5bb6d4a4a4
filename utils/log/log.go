package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// BuildLogger arma el logger JSON del simulador con el nivel indicado en la configuración.
func BuildLogger(level string) *slog.Logger {
	return NewLogger(os.Stderr, level)
}

// NewLogger permite elegir la salida, lo usan los tests para no ensuciar stderr.
func NewLogger(w io.Writer, level string) *slog.Logger {
	ops := &slog.HandlerOptions{
		AddSource: true,
		Level:     ParseLevel(level),
	}
	return slog.New(slog.NewJSONHandler(w, ops))
}

// ParseLevel traduce el log_level de los archivos de configuración. Por defecto INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ErrAttr(err error) slog.Attr {
	return slog.Any("error", err)
}

func StringAttr(key, value string) slog.Attr {
	return slog.String(key, value)
}

func IntAttr(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func AnyAttr(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// HexAttr formatea direcciones e instrucciones de 32 bits.
func HexAttr(key string, value uint32) slog.Attr {
	return slog.String(key, fmt.Sprintf("0x%08x", value))
}
