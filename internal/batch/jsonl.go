// Package batch runs question files through the answering engine.
package batch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"retailcopilot/internal/agent"
)

const maxLine = 1 << 20

// Load reads one question per line. Blank lines are skipped; any other line
// that is not a JSON question object fails the whole load.
func Load(r io.Reader) ([]agent.Question, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	var questions []agent.Question
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var q agent.Question
		if err := json.Unmarshal(line, &q); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if q.ID == "" {
			return nil, fmt.Errorf("line %d: missing id", n)
		}
		questions = append(questions, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}

// LoadFile is Load over a file.
func LoadFile(path string) ([]agent.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions: %w", err)
	}
	defer f.Close()

	qs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return qs, nil
}

// Write emits one answer object per line.
func Write(w io.Writer, answers []agent.Answer) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, a := range answers {
		if a.Citations == nil {
			a.Citations = []string{}
		}
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("encode answer %s: %w", a.ID, err)
		}
	}
	return bw.Flush()
}

// WriteFile writes answers to path, creating parent directories.
func WriteFile(path string, answers []agent.Answer) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := Write(f, answers); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
