// Package frontmatter reads and writes markdown documents that open with a
// YAML block between --- lines. Report pages and history records use it.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoOpening = errors.New("frontmatter: missing opening --- line")
	ErrNoClosing = errors.New("frontmatter: missing closing --- line")
)

// Parse splits data into the raw YAML between the delimiters and the body
// after the closing line. Files saved with CRLF line endings are accepted.
func Parse(data []byte) (fm []byte, body []byte, err error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	const open = "---\n"
	if !bytes.HasPrefix(data, []byte(open)) {
		return nil, nil, ErrNoOpening
	}
	rest := data[len(open):]

	// An empty block closes immediately.
	if bytes.HasPrefix(rest, []byte("---")) {
		return nil, trimNewline(rest[3:]), nil
	}
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return nil, nil, ErrNoClosing
	}
	return rest[:idx+1], trimNewline(rest[idx+4:]), nil
}

func trimNewline(b []byte) []byte {
	if len(b) > 0 && b[0] == '\n' {
		return b[1:]
	}
	return b
}

// Decode parses data, unmarshals the frontmatter into v and returns the body.
func Decode(data []byte, v any) (body []byte, err error) {
	fm, body, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(fm, v); err != nil {
		return nil, fmt.Errorf("frontmatter: unmarshal: %w", err)
	}
	return body, nil
}

// Write renders v as the frontmatter block followed by body.
func Write(v any, body string) ([]byte, error) {
	fm, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(fm) + len(body) + 8)
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
