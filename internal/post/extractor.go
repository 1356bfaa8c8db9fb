// AngelaMos | 2026
// extractor.go

package post

import (
	"regexp"
)

var (
	mentionPattern = regexp.MustCompile(`@(\w+)`)
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
)

// Tokens holds the distinct mention and hashtag bodies found in a text,
// in order of first appearance. Bodies are case-sensitive.
type Tokens struct {
	Mentions []string
	Hashtags []string
}

func Extract(content string) Tokens {
	return Tokens{
		Mentions: distinctCaptures(mentionPattern, content),
		Hashtags: distinctCaptures(hashtagPattern, content),
	}
}

func (t Tokens) Empty() bool {
	return len(t.Mentions) == 0 && len(t.Hashtags) == 0
}

func distinctCaptures(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}
