package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// BlockTag is the info string that marks an embedded query in markdown.
const BlockTag = "timeq"

// Block is one fenced query found in a document.
type Block struct {
	// Line is the 1-based document line of the first query line, so query
	// positions can be mapped back to the document.
	Line  int
	Query string
}

// ExtractBlocks returns every ```timeq fenced block in document order.
// An unclosed fence at end of input is an error.
func ExtractBlocks(r io.Reader) ([]Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		blocks  []Block
		current *Block
		body    []string
		fence   string
		lineNo  int
		opened  int
	)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if current == nil {
			marker, info := splitFence(trimmed)
			if marker != "" && strings.EqualFold(info, BlockTag) {
				current = &Block{Line: lineNo + 1}
				fence = marker
				opened = lineNo
				body = body[:0]
			}
			continue
		}

		if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
			current.Query = strings.Join(body, "\n")
			blocks = append(blocks, *current)
			current = nil
			continue
		}
		body = append(body, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current != nil {
		return blocks, fmt.Errorf("unclosed %s block opened at line %d", BlockTag, opened)
	}
	return blocks, nil
}

// splitFence recognizes an opening fence of three or more backticks or
// tildes and returns the fence marker and the info string.
func splitFence(line string) (marker, info string) {
	for _, ch := range []string{"`", "~"} {
		n := 0
		for n < len(line) && line[n] == ch[0] {
			n++
		}
		if n >= 3 {
			return line[:n], strings.TrimSpace(line[n:])
		}
	}
	return "", ""
}
