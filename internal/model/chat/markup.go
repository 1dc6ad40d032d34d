package chat

import "strings"

const boldDelimiter = "**"

// Segment is a run of message text with uniform emphasis.
type Segment struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Segments splits text on doubled-asterisk emphasis. A bold run needs a
// non-empty body without asterisks; anything else is kept literally.
func Segments(text string) []Segment {
	var (
		segments []Segment
		literal  strings.Builder
	)

	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, Segment{Text: literal.String()})
			literal.Reset()
		}
	}

	rest := text
	for rest != "" {
		open := strings.Index(rest, boldDelimiter)
		if open < 0 {
			literal.WriteString(rest)
			break
		}

		body := rest[open+len(boldDelimiter):]
		end := strings.IndexByte(body, '*')
		if end > 0 && strings.HasPrefix(body[end:], boldDelimiter) {
			literal.WriteString(rest[:open])
			flush()
			segments = append(segments, Segment{Text: body[:end], Bold: true})
			rest = body[end+len(boldDelimiter):]
			continue
		}

		// No bold run starts here; keep the first asterisk and rescan after it.
		literal.WriteString(rest[:open+1])
		rest = rest[open+1:]
	}
	flush()

	return segments
}
