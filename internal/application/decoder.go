package application

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DecodeStream reassembles the text of a newline-delimited generation stream.
// Records are read across chunk boundaries. A JSON object contributes its
// "response" string; anything else is kept as raw text followed by a newline.
// On a read error the text accumulated so far is returned with the error.
func DecodeStream(r io.Reader) (string, error) {
	reader := bufio.NewReader(r)
	var text strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			appendRecord(&text, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return text.String(), nil
			}
			return text.String(), fmt.Errorf("read generation stream: %w", err)
		}
	}
}

func appendRecord(text *strings.Builder, line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &record); err != nil || record == nil {
		appendRaw(text, line)
		return
	}

	raw, ok := record["response"]
	if !ok {
		return
	}

	var fragment string
	if err := json.Unmarshal(raw, &fragment); err != nil {
		appendRaw(text, line)
		return
	}
	text.WriteString(fragment)
}

func appendRaw(text *strings.Builder, line string) {
	text.WriteString(line)
	text.WriteByte('\n')
}
