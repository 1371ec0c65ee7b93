package llm

import "strings"

// StripMarkdownFences removes a ```json ... ``` wrapper some models emit
// despite response_format=json_object. Content without fences passes through
// untouched.
func StripMarkdownFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
