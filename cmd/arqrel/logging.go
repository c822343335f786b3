package main

import (
	"bytes"
	"io"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sadopc/arqrel/internal/config"
)

// heldWriter passes writes through to out, or holds them in memory while
// the progress view owns the terminal.
type heldWriter struct {
	mu   sync.Mutex
	out  io.Writer
	buf  bytes.Buffer
	hold bool
}

func (w *heldWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hold {
		return w.buf.Write(p)
	}
	return w.out.Write(p)
}

// Hold starts buffering.
func (w *heldWriter) Hold() {
	w.mu.Lock()
	w.hold = true
	w.mu.Unlock()
}

// Release writes out everything held and stops buffering.
func (w *heldWriter) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hold = false
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := w.out.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// logLevel maps the verbosity switches onto a zap level.
func logLevel(cfg *config.Config) zapcore.Level {
	switch {
	case cfg.Verbose:
		return zapcore.DebugLevel
	case cfg.Silent:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// newLogger builds the console logger. Verbose mode uses the development
// encoder with caller information.
func newLogger(cfg *config.Config, w io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	var opts []zap.Option
	if cfg.Verbose {
		encCfg = zap.NewDevelopmentEncoderConfig()
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(logLevel(cfg)),
	)
	return zap.New(core, opts...)
}
