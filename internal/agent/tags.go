package agent

import "regexp"

var tagPattern = func(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<` + tag + `>\s*(.*?)\s*</` + tag + `>`)
}

var (
	analysisTagRe   = tagPattern("analysis")
	repoMemoryTagRe = tagPattern("repo_memory")
)

// extractTagInfo returns the trimmed content of the first <tag>...</tag>
// region in text, case-insensitive with "." matching newlines, or "" if
// absent. Ported from extract_tag_info in original_source's
// langgraph_utils.py.
func extractTagInfo(text string, re *regexp.Regexp) string {
	if text == "" {
		return ""
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
