package agent

import (
	"regexp"
	"strings"
)

var (
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)`)
	tinyDimensionPattern = regexp.MustCompile(`\b(1[6-9]|[2-5][0-9]|6[0-4])x(1[6-9]|[2-5][0-9]|6[0-4])\b`)
)

// decorative url fragments that never point at a listing photo.
var skipImageFragments = []string{"icon", "logo", "avatar", "badge", "button", "sprite", ".svg"}

// FirstImageFromMarkdown returns the first plausible listing photo in scraped
// markdown, skipping decorative assets and thumbnail-sized images.
func FirstImageFromMarkdown(markdown string) string {
	for _, match := range markdownImagePattern.FindAllStringSubmatch(markdown, -1) {
		url := match[1]
		if !strings.HasPrefix(url, "http") {
			continue
		}
		lower := strings.ToLower(url)
		skip := false
		for _, fragment := range skipImageFragments {
			if strings.Contains(lower, fragment) {
				skip = true
				break
			}
		}
		if skip || tinyDimensionPattern.MatchString(lower) {
			continue
		}
		return url
	}
	return ""
}
