package util

import "fmt"

// TruncateStringMiddle shortens a string to maxLen characters by replacing characters in
// the middle with "...", keeping the last suffixLen characters. It returns the number of
// characters that were omitted.
func TruncateStringMiddle(input string, maxLen int, suffixLen int) (string, int) {
	if len(input) <= maxLen || maxLen < suffixLen+3 {
		return input, 0
	}

	suffix := input[len(input)-suffixLen:]
	prefix := input[:maxLen-suffixLen-3]

	return fmt.Sprintf("%s...%s", prefix, suffix), len(input) - len(prefix) - len(suffix)
}
