package security

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxSearchQueryLength defines the maximum allowed length for index search queries
	MaxSearchQueryLength = 100

	// LikeEscape is the escape character used by EscapeLike; queries must declare it with ESCAPE.
	LikeEscape = `\`
)

var (
	ErrSearchQueryTooLong      = errors.New("search query too long")
	ErrSearchQueryInvalidChars = errors.New("search query contains invalid characters")
)

// ValidateSearchQuery trims an index search query and checks it only holds
// characters that can appear in a name or an email address.
func ValidateSearchQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	if utf8.RuneCountInString(query) > MaxSearchQueryLength {
		return "", ErrSearchQueryTooLong
	}

	for _, char := range query {
		if !isValidSearchChar(char) {
			return "", ErrSearchQueryInvalidChars
		}
	}

	return query, nil
}

// isValidSearchChar checks if a character may appear in a name or email
func isValidSearchChar(char rune) bool {
	return unicode.IsLetter(char) || unicode.IsNumber(char) ||
		char == ' ' || char == '-' || char == '_' || char == '.' ||
		char == '@' || char == '+' || char == '\'' || char == '%'
}

// EscapeLike escapes LIKE wildcards so the query matches them literally.
func EscapeLike(query string) string {
	if query == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		LikeEscape, LikeEscape+LikeEscape,
		"%", LikeEscape+"%",
		"_", LikeEscape+"_",
	)
	return replacer.Replace(query)
}
