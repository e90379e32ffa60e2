package subs

// AnchorContext is the number of context lines captured on each side of a
// watched range.
const AnchorContext = 2

// ExtractAnchor snapshots the watched lines of a file together with
// context lines on either side. Line numbers are 1-based inclusive and
// clamped to the file.
func ExtractAnchor(lines []string, startLine, endLine, context int) Anchor {
	startIdx := startLine - 1
	endIdx := endLine // exclusive

	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > len(lines) {
		endIdx = len(lines)
	}
	if startIdx > endIdx {
		startIdx = endIdx
	}

	beforeStart := max(0, startIdx-context)
	afterEnd := min(len(lines), endIdx+context)

	return Anchor{
		ContextBefore: append([]string{}, lines[beforeStart:startIdx]...),
		Lines:         append([]string{}, lines[startIdx:endIdx]...),
		ContextAfter:  append([]string{}, lines[endIdx:afterEnd]...),
	}
}
