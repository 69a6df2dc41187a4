package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	TitleMaxLen       = 200
	PostBodyMaxLen    = 20000
	CommentBodyMaxLen = 1000
	MaxTags           = 10
	TagMaxLen         = 30
	BioMaxLen         = 500
)

// ValidateTitle trims and checks a post title.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > TitleMaxLen {
		return "", fmt.Errorf("title too long (max %d characters)", TitleMaxLen)
	}
	return title, nil
}

// ValidatePostBody trims and checks a post body.
func ValidatePostBody(body string) (string, error) {
	return validateBody(body, PostBodyMaxLen, "body")
}

// ValidateCommentBody trims and checks a comment body.
func ValidateCommentBody(body string) (string, error) {
	return validateBody(body, CommentBodyMaxLen, "comment")
}

func validateBody(body string, max int, label string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%s cannot be empty", label)
	}
	if utf8.RuneCountInString(body) > max {
		return "", fmt.Errorf("%s too long (max %d characters)", label, max)
	}
	return body, nil
}

// NormalizeTags turns "Go, go ,  web" into "go,web". Tags keep their first
// occurrence order; empty entries are dropped.
func NormalizeTags(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > TagMaxLen {
			return "", fmt.Errorf("tag %q too long (max %d characters)", tag, TagMaxLen)
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return "", fmt.Errorf("too many tags (max %d)", MaxTags)
	}
	return strings.Join(out, ","), nil
}

// ValidateBio checks the optional profile bio.
func ValidateBio(bio string) (string, error) {
	bio = strings.TrimSpace(bio)
	if utf8.RuneCountInString(bio) > BioMaxLen {
		return "", fmt.Errorf("bio too long (max %d characters)", BioMaxLen)
	}
	return bio, nil
}
