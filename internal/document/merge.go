package document

import "fmt"

// SubDocument is an externally produced file to merge under an optional heading.
type SubDocument struct {
	Path    string
	Heading string
}

// MergeSkipped records a sub-document that could not be merged.
type MergeSkipped struct {
	Path string
	Err  error
}

func (s MergeSkipped) Error() string {
	return fmt.Sprintf("merge skipped %s: %v", s.Path, s.Err)
}

func (s MergeSkipped) Unwrap() error { return s.Err }

// MergeInto appends every block of source to target in order. A non-empty
// heading is preceded by a page break and introduces the merged content.
func MergeInto(target, source Document, heading string) Document {
	blocks := make([]Block, 0, len(source.Blocks)+2)
	if heading != "" {
		blocks = append(blocks, Break(), Heading(heading, 1))
	}
	blocks = append(blocks, source.Blocks...)
	return target.AppendBlocks(blocks...)
}

// MergeFiles merges each sub-document into target. Unreadable files are
// reported as MergeSkipped values and the remaining merges continue.
func MergeFiles(target Document, subs []SubDocument) (Document, []MergeSkipped) {
	out := target.Clone()
	var skipped []MergeSkipped
	for _, sub := range subs {
		src, err := ReadFile(sub.Path)
		if err != nil {
			skipped = append(skipped, MergeSkipped{Path: sub.Path, Err: err})
			continue
		}
		out = MergeInto(out, src, sub.Heading)
	}
	return out, skipped
}
