package document

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const markdownBreak = "---"

// RenderMarkdown renders headings as ATX headings (the title as "#", level N as
// N+1 hashes) and page breaks as horizontal rules.
func RenderMarkdown(d Document) string {
	var sb strings.Builder
	for i, b := range d.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch b.Kind {
		case KindHeading:
			level := b.Level + 1
			if level > 6 {
				level = 6
			}
			sb.WriteString(strings.Repeat("#", level) + " " + b.Text + "\n")
		case KindBreak:
			sb.WriteString(markdownBreak + "\n")
		default:
			text := strings.TrimSpace(b.Text)
			if text == "" {
				continue
			}
			sb.WriteString(text + "\n")
		}
	}
	return sb.String()
}

func WriteMarkdown(path string, d Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(RenderMarkdown(d)), 0644)
}

// ParseMarkdown reads ATX headings, horizontal rules and one paragraph per
// non-blank line.
func ParseMarkdown(content string) Document {
	var d Document
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}
		if trimmed == markdownBreak {
			d.Blocks = append(d.Blocks, Break())
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			level := 0
			for _, char := range trimmed {
				if char != '#' {
					break
				}
				level++
			}
			if level > 0 && level < 7 && len(trimmed) > level && trimmed[level] == ' ' {
				d.Blocks = append(d.Blocks, Heading(trimmed[level:], level-1))
				continue
			}
		}
		d.Blocks = append(d.Blocks, Paragraph(trimmed))
	}
	return d
}
