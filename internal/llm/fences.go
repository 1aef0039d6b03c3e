package llm

import "strings"

const fence = "```"

// stripCodeFences extracts the body of a markdown code block. Replies
// without a fence are returned trimmed.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, fence+"json"); i >= 0 {
		body := s[i+len(fence+"json"):]
		if j := strings.Index(body, fence); j >= 0 {
			body = body[:j]
		}
		return strings.TrimSpace(body)
	}
	if i := strings.Index(s, fence); i >= 0 {
		body := s[i+len(fence):]
		if j := strings.Index(body, fence); j >= 0 {
			body = body[:j]
		}
		return strings.TrimSpace(body)
	}
	return s
}
