package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// SetupLogging 標準ロガーの出力を stderr と日付ごとのログファイルに分岐させる
// dir が空の場合は stderr のみ。返り値の関数は終了時に呼ぶ
func SetupLogging(dir string) (func() error, error) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if dir == "" {
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f.Close, nil
}
