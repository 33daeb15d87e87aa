// Copyright 2024 The go-equa Authors
// This file is part of the go-equa library.

// Package log provides leveled, structured logging for the node. The public
// surface mirrors the handler/verbosity idiom the rest of this family of
// repositories uses: a Handler wraps an io.Writer, a Glog-style filter gates
// records by level, and a package-level default logger is installed once at
// start-up and used everywhere else via the level functions below.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors the small set of severities the node actually emits.
type Level int

const (
	LvlCrit Level = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LvlCrit, LvlError:
		return slog.LevelError
	case LvlWarn:
		return slog.LevelWarn
	case LvlDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Handler is anything that can accept a rendered log line. It exists so the
// glog verbosity filter can wrap a terminal handler, a file handler, or both.
type Handler interface {
	Log(level Level, msg string, ctx []any)
}

// terminalHandler renders key/value records to an io.Writer, colorizing the
// level tag when the writer is an interactive terminal.
type terminalHandler struct {
	out      io.Writer
	useColor bool
	mu       sync.Mutex
}

// NewTerminalHandler builds a Handler that writes to w, colorizing output
// when useColor is requested and w looks like a terminal.
func NewTerminalHandler(w io.Writer, useColor bool) Handler {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = colorable.NewColorable(f)
	} else {
		useColor = false
	}
	return &terminalHandler{out: w, useColor: useColor}
}

var levelTag = map[Level]string{
	LvlCrit:  "CRIT",
	LvlError: "ERROR",
	LvlWarn:  "WARN",
	LvlInfo:  "INFO",
	LvlDebug: "DEBUG",
}

var levelColor = map[Level]color.Attribute{
	LvlCrit:  color.FgRed,
	LvlError: color.FgRed,
	LvlWarn:  color.FgYellow,
	LvlInfo:  color.FgGreen,
	LvlDebug: color.FgCyan,
}

func (h *terminalHandler) Log(level Level, msg string, ctx []any) {
	tag := levelTag[level]
	if h.useColor {
		tag = color.New(levelColor[level]).Sprint(tag)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "%-5s %s", tag, msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(h.out, " %v=%v", ctx[i], ctx[i+1])
	}
	fmt.Fprintln(h.out)
}

// NewFileHandler builds a Handler that writes rotating log files via
// lumberjack, for long-running miner deployments that want a durable record
// of accepted artifacts without hand-rolling rotation.
func NewFileHandler(path string, maxSizeMB, maxBackups int) Handler {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return &terminalHandler{out: w, useColor: false}
}

// multiHandler fans a record out to every wrapped handler.
type multiHandler struct {
	handlers []Handler
}

// MultiHandler combines handlers so, e.g., a terminal handler and a file
// handler can both receive every record.
func MultiHandler(handlers ...Handler) Handler {
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) Log(level Level, msg string, ctx []any) {
	for _, h := range m.handlers {
		h.Log(level, msg, ctx)
	}
}

// GlogHandler gates records by a verbosity threshold before forwarding them,
// in the spirit of glog/klog's -v flag.
type GlogHandler struct {
	inner     Handler
	verbosity Level
	mu        sync.RWMutex
}

// NewGlogHandler wraps inner with a verbosity filter defaulting to LvlInfo.
func NewGlogHandler(inner Handler) *GlogHandler {
	return &GlogHandler{inner: inner, verbosity: LvlInfo}
}

// Verbosity sets the minimum level that will be forwarded to the wrapped handler.
func (g *GlogHandler) Verbosity(lvl Level) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verbosity = lvl
}

func (g *GlogHandler) Log(level Level, msg string, ctx []any) {
	g.mu.RLock()
	v := g.verbosity
	g.mu.RUnlock()
	if level > v {
		return
	}
	g.inner.Log(level, msg, ctx)
}

// Logger is a handle that can carry a fixed set of key/value pairs (With),
// mirroring the teacher's structured logger.
type Logger struct {
	handler Handler
	ctx     []any
}

// NewLogger wraps a Handler as the root of a Logger chain.
func NewLogger(h Handler) *Logger {
	return &Logger{handler: h}
}

// With returns a child Logger that always includes the given key/value pairs.
func (l *Logger) With(ctx ...any) *Logger {
	return &Logger{handler: l.handler, ctx: append(append([]any{}, l.ctx...), ctx...)}
}

func (l *Logger) log(level Level, msg string, ctx []any) {
	if l.handler == nil {
		return
	}
	l.handler.Log(level, msg, append(append([]any{}, l.ctx...), ctx...))
}

func (l *Logger) Debug(msg string, ctx ...any) { l.log(LvlDebug, msg, ctx) }
func (l *Logger) Info(msg string, ctx ...any)  { l.log(LvlInfo, msg, ctx) }
func (l *Logger) Warn(msg string, ctx ...any)  { l.log(LvlWarn, msg, ctx) }
func (l *Logger) Error(msg string, ctx ...any) { l.log(LvlError, msg, ctx) }

// Crit logs at the highest severity and terminates the process, matching the
// teacher's use of log.Crit for unrecoverable start-up failures.
func (l *Logger) Crit(msg string, ctx ...any) {
	l.log(LvlCrit, msg, ctx)
	os.Exit(1)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = NewLogger(NewGlogHandler(NewTerminalHandler(os.Stderr, true)))
)

// SetDefault installs l as the package-level logger used by Info/Warn/etc.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

func get() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

func Debug(msg string, ctx ...any) { get().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { get().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { get().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { get().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { get().Crit(msg, ctx...) }

// context key used to thread a request-scoped logger through handlers without
// a global, e.g. to attach a per-request id.
type ctxKey struct{}

// WithContext returns a context carrying l, retrievable with FromContext.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or the package default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return get()
}
