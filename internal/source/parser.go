// Package source discovers and parses JSONL subscription export files.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/subburn/internal/model"
)

// LineError is a rejected line of an export file.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// ParseResult holds the output of parsing a single file.
type ParseResult struct {
	File          DiscoveredFile
	Subscriptions []model.Subscription
	ParseErrors   int
	LineErrors    []LineError
	Err           error
}

// ParseFile reads an export file and converts each valid line to a
// subscription for userID. Invalid lines are counted and reported without
// stopping the file. When two lines resolve to the same ID the last wins.
// Blank lines and lines starting with '#' are skipped.
func ParseFile(df DiscoveredFile, userID string, now time.Time) ParseResult {
	res := ParseResult{File: df}

	f, err := os.Open(df.Path)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() { _ = f.Close() }()

	byID := make(map[string]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			res.reject(lineNo, err)
			continue
		}
		sub, err := rec.Subscription(userID, now)
		if err != nil {
			res.reject(lineNo, err)
			continue
		}

		if idx, ok := byID[sub.ID]; ok {
			res.Subscriptions[idx] = sub
			continue
		}
		byID[sub.ID] = len(res.Subscriptions)
		res.Subscriptions = append(res.Subscriptions, sub)
	}
	if err := scanner.Err(); err != nil {
		res.Err = err
	}
	return res
}

func (r *ParseResult) reject(line int, err error) {
	r.ParseErrors++
	r.LineErrors = append(r.LineErrors, LineError{Line: line, Err: err})
}
