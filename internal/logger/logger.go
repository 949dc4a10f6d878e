// Package logger はアプリケーション共通の構造化ロガーを構築する
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type options struct {
	level  slog.Level
	json   bool
	output io.Writer
	attrs  []slog.Attr
}

// Option はロガーの構築オプション
type Option func(*options)

// WithLevel はログレベルを設定する
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithJSONFormatter はJSON形式で出力する
func WithJSONFormatter() Option {
	return func(o *options) { o.json = true }
}

// WithOutput は出力先を設定する
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithAttr は全てのレコードに付与する属性を追加する
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// New は新しいロガーを作成する
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	handlerOpts := &slog.HandlerOptions{Level: o.level}
	var handler slog.Handler
	if o.json {
		handler = slog.NewJSONHandler(o.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(o.output, handlerOpts)
	}
	if len(o.attrs) > 0 {
		handler = handler.WithAttrs(o.attrs)
	}

	return slog.New(handler)
}

// FromConfig はレベル名と出力形式からロガーを作成する
func FromConfig(level, format string) *slog.Logger {
	opts := []Option{WithLevel(ParseLevel(level)), WithAttr(slog.String("service", "photobooth"))}
	if strings.EqualFold(format, "json") {
		opts = append(opts, WithJSONFormatter())
	}
	return New(opts...)
}

// ParseLevel はレベル名をslog.Levelに変換する。不明な値はInfoになる
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component はコンポーネント名の属性を返す
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Error はエラーの属性を返す。nilの場合は空の属性になる
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Discard は出力を捨てるロガーを返す（テスト用）
func Discard() *slog.Logger {
	return New(WithOutput(io.Discard))
}
