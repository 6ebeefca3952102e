package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger はファイルに追記するロガーです。SIGHUP でのローテーションに対応します。
// io.Writer として slog のハンドラの出力先にも使えます。
type Logger struct {
	filename string
	logFile  *os.File
	logMutex sync.Mutex
}

var (
	logger      *Logger
	loggerMutex sync.Mutex
)

func GetLogger() *Logger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	return logger
}

func SetLogger(l *Logger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if logger != nil && logger != l {
		logger.Close()
	}
	logger = l
}

// NewLogger は filename に追記する Logger を作成します。
func NewLogger(filename string) (*Logger, error) {
	l := &Logger{filename: filename}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

// open はログファイルを開き直します。logMutex を保持して呼ぶこと。
func (l *Logger) open() error {
	logFile, err := os.OpenFile(l.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.logFile = nil
		return fmt.Errorf("failed to open log file %s: %w", l.filename, err)
	}
	l.logFile = logFile
	return nil
}

func (l *Logger) Close() {
	l.logMutex.Lock()
	defer l.logMutex.Unlock()

	if l.logFile != nil {
		_ = l.logFile.Close()
		l.logFile = nil
	}
}

// Write はログファイルに p をそのまま書き込みます。閉じた後の書き込みは捨てられます。
func (l *Logger) Write(p []byte) (int, error) {
	l.logMutex.Lock()
	defer l.logMutex.Unlock()
	if l.logFile == nil {
		return len(p), nil
	}
	return l.logFile.Write(p)
}

// Rotate はログファイルを閉じて同じ名前で開き直します。
// logrotate などでファイルを移動した後に SIGHUP で呼び出します。
func (l *Logger) Rotate() error {
	l.logMutex.Lock()
	defer l.logMutex.Unlock()

	if l.logFile == nil {
		return nil
	}
	_ = l.logFile.Close()
	return l.open()
}

// NewLevel は debug に応じた初期値を持つ slog.LevelVar を作成します。
// 実行中にデバッグ出力を切り替えるときは、この LevelVar を Set します。
func NewLevel(debug bool) *slog.LevelVar {
	level := new(slog.LevelVar)
	if debug {
		level.Set(slog.LevelDebug)
	}
	return level
}

// NewSlogHandler は w に書き込むテキスト形式の slog.Handler を作成します。
func NewSlogHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}
