// Package search prints the lines of a file that contain a query string.
package search

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrMissingQuery = errors.New("did not get a query string")
	ErrMissingPath  = errors.New("did not get a path string")
)

// Config は検索条件
type Config struct {
	Query           string
	Path            string
	CaseInsensitive bool
}

// Build は引数（プログラム名を除く）と環境変数 INSENSITIVE から Config を作る
func Build(args []string, getenv func(string) string) (Config, error) {
	if len(args) < 1 {
		return Config{}, ErrMissingQuery
	}
	if len(args) < 2 {
		return Config{}, ErrMissingPath
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	return Config{
		Query:           args[0],
		Path:            args[1],
		CaseInsensitive: getenv("INSENSITIVE") == "1",
	}, nil
}

// Run はファイルを読み、一致した行を w に書き出す
func (c Config) Run(w io.Writer) error {
	content, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	var lines []string
	if c.CaseInsensitive {
		lines = SearchInsensitive(c.Query, string(content))
	} else {
		lines = Search(c.Query, string(content))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Search は query を含む行を返す
func Search(query, contents string) []string {
	var result []string
	for line := range strings.Lines(contents) {
		line = strings.TrimRight(line, "\r\n")
		if strings.Contains(line, query) {
			result = append(result, line)
		}
	}
	return result
}

// SearchInsensitive は大文字小文字を区別せずに query を含む行を返す
func SearchInsensitive(query, contents string) []string {
	pattern := strings.ToLower(query)

	var result []string
	for line := range strings.Lines(contents) {
		line = strings.TrimRight(line, "\r\n")
		if strings.Contains(strings.ToLower(line), pattern) {
			result = append(result, line)
		}
	}
	return result
}
