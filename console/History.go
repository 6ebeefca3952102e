package console

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

const historyFileName = ".mi-api_history"

// maxHistorySize は保存する履歴の最大件数
const maxHistorySize = 1000

// getHistoryFilePath は履歴ファイルのパスを取得する
func getHistoryFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// ホームディレクトリが取得できない場合はカレントディレクトリに作成
		slog.Warn("Home directory unavailable, using current directory for history", "err", err)
		return historyFileName
	}
	return filepath.Join(home, historyFileName)
}

// loadHistory は履歴ファイルから履歴を読み込む
// 空行と重複は取り除き、同じ行は最後に入力された位置に残す
func loadHistory(filePath string) []string {
	file, err := os.Open(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to open history file", "path", filePath, "err", err)
		}
		return []string{}
	}
	defer file.Close()

	var lines []string
	lastIndex := make(map[string]int)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if i, ok := lastIndex[line]; ok {
			lines[i] = "" // 古い方を消す
		}
		lastIndex[line] = len(lines)
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("Failed to read history file", "path", filePath, "err", err)
	}

	history := slices.DeleteFunc(lines, func(s string) bool { return s == "" })
	if len(history) > maxHistorySize {
		history = history[len(history)-maxHistorySize:]
	}
	if history == nil {
		return []string{}
	}
	return history
}

// appendHistory は1行を履歴ファイルの末尾に追加する
func appendHistory(filePath, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		slog.Warn("Failed to open history file", "path", filePath, "err", err)
		return
	}
	defer file.Close()
	if _, err := fmt.Fprintln(file, line); err != nil {
		slog.Warn("Failed to write history", "path", filePath, "err", err)
	}
}

// saveHistory は履歴をファイルに書き込む
func saveHistory(filePath string, history []string) {
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		slog.Warn("Failed to open history file", "path", filePath, "err", err)
		return
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range history {
		// 空行は書き込まない
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := fmt.Fprintln(writer, line); err != nil {
			slog.Warn("Failed to write history", "path", filePath, "err", err)
			return
		}
	}

	if err := writer.Flush(); err != nil {
		slog.Warn("Failed to flush history file", "path", filePath, "err", err)
	}
}
