package utils

// Rough token estimation: 1 token ~= 4 characters.

// CountTokens estimates the number of tokens in the given text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit cuts text to roughly fit within limit tokens. When the
// cut lands mid-line the partial line is dropped so no half row reaches a
// model.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	cut := runes[:charLimit]
	for i := len(cut) - 1; i > 0; i-- {
		if cut[i] == '\n' {
			return string(cut[:i+1])
		}
	}
	return string(cut)
}
