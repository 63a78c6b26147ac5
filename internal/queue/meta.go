package queue

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// metaFile is a parsed .meta key=value file.
type metaFile map[string]string

func readMeta(path string) (metaFile, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return metaFile{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m := metaFile{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		key, value, ok := strings.Cut(string(line), "=")
		if !ok {
			continue
		}
		m[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return m, nil
}

// exitCode returns the exit code held in the .exit file's contents,
// falling back to the .meta exit_code field only when those contents
// do not parse.
func (m metaFile) exitCode(exitFile string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(exitFile)); err == nil {
		return n
	}
	n, err := strconv.Atoi(strings.TrimSpace(m["exit_code"]))
	if err != nil {
		return -1
	}
	return n
}

func (m metaFile) durationMS() int64 {
	n, err := strconv.ParseInt(m["duration_ms"], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (m metaFile) flag(key string) bool {
	return m[key] == "1"
}

// WriteMeta serialises fields (in the given order) as key=value lines,
// the format both the executor and the history archiver write.
func WriteMeta(path string, fields [][2]string) error {
	var b strings.Builder
	for _, kv := range fields {
		b.WriteString(kv[0])
		b.WriteByte('=')
		b.WriteString(kv[1])
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}
