package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic 一時ファイルに書き込んでからリネームする
// 途中で失敗しても path に中途半端な画像が残らない
func WriteFileAtomic(path string, payload []byte) error {
	return WriteStreamAtomic(path, func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	})
}

// WriteStreamAtomic write に渡された Writer の内容を path へアトミックに保存
func WriteStreamAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		// Windows では既存ファイルがあると Rename が失敗する
		if _, statErr := os.Stat(path); statErr != nil {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
		if rmErr := os.Remove(path); rmErr != nil {
			return fmt.Errorf("failed to replace %s: %w (rename err: %v)", path, rmErr, err)
		}
		if renameErr := os.Rename(tmpName, path); renameErr != nil {
			return fmt.Errorf("failed to rename temp file after removal: %w", renameErr)
		}
	}

	success = true
	return nil
}

// FileExists path に通常ファイルが存在するか
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
