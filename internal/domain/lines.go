package domain

import (
	"regexp"
	"strings"
)

var lineBreaks = regexp.MustCompile(`\r\n|\r|\n`)

// ParseSpeakerLines splits generated text into one reply per non-empty line.
// The first ASCII or fullwidth colon separates the speaker from the content.
// Lines without that shape are kept whole and attributed to SpeakerAssistant.
func ParseSpeakerLines(text string) ResponseBatch {
	var batch ResponseBatch
	for _, raw := range lineBreaks.Split(text, -1) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		speaker, content, ok := splitSpeaker(line)
		if !ok {
			batch = append(batch, Reply{Speaker: SpeakerAssistant, Content: line})
			continue
		}
		batch = append(batch, Reply{Speaker: speaker, Content: content})
	}

	return batch
}

func splitSpeaker(line string) (string, string, bool) {
	idx := strings.IndexAny(line, ":：")
	if idx < 0 {
		return "", "", false
	}

	sep := ":"
	if strings.HasPrefix(line[idx:], "：") {
		sep = "："
	}

	speaker := strings.TrimSpace(line[:idx])
	content := strings.TrimSpace(line[idx+len(sep):])
	if speaker == "" || content == "" {
		return "", "", false
	}

	return speaker, content, true
}
