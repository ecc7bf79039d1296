package utils

// SplitText cuts text into chunks of at most chunkSize runes for embedding,
// each chunk repeating the tail of the previous one for overlap runes so a
// memory that straddles a boundary still lands fully inside some chunk.
// Splitting is rune based; a boundary never cuts a character in half, though
// it can cut a word.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		// Overlap swallowed the whole chunk; advance a full chunk instead.
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
