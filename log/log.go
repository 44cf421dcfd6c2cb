// Package log provides the module-scoped leveled logger used throughout
// headnode: each package holds a package-level `logger` built by
// NewModuleLogger, and call sites pass structured key/value pairs
// rather than format strings.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module identifies the subsystem a logger belongs to, drawn from a
// fixed registry of module constants.
type Module string

const (
	ModuleNode      Module = "node"
	ModuleHeadLogic Module = "headlogic"
	ModuleChain     Module = "chain"
	ModuleJournal   Module = "journal"
	ModuleNetwork   Module = "network"
	ModuleClient    Module = "client"
	ModuleConfig    Module = "config"
	ModuleCmd       Module = "cmd"
)

var base = newBase()

func newBase() *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stderr), zapcore.DebugLevel)
	return zap.New(core)
}

// Logger is a leveled, key/value logger scoped to one module.
type Logger struct {
	z *zap.SugaredLogger
}

// NewModuleLogger builds a Logger tagged with the given module name.
func NewModuleLogger(m Module) *Logger {
	return &Logger{z: base.Sugar().Named(string(m))}
}

func (l *Logger) Trace(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.z.Errorw(msg, kv...) }
func (l *Logger) Crit(msg string, kv ...interface{})  { l.z.Fatalw(msg, kv...) }

// Sync flushes any buffered log entries; call before process exit.
func Sync() { _ = base.Sync() }
