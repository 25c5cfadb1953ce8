package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedJSON marks a response that no cleanup strategy could decode.
var ErrMalformedJSON = errors.New("malformed JSON response")

var (
	fenceWholeRe = regexp.MustCompile("(?s)^```(?:json|javascript|js)?\\s*\\n?(.*?)\\n?```\\s*$")
	fenceAnyRe   = regexp.MustCompile("(?s)```(?:json|javascript|js)?\\s*\\n?(.*?)\\n?```")

	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)
	lineCommentRe   = regexp.MustCompile(`(?m)^\s*//.*$`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// ParseJSON decodes model output into T. It tries, in order: the raw text,
// the text with markdown fences removed, a cleaned copy (trailing commas,
// unquoted keys, comments) and finally the outermost object or array found in
// surrounding prose.
func ParseJSON[T any](text string) (T, error) {
	var zero T
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("%w: empty input", ErrMalformedJSON)
	}

	v, firstErr := decode[T](trimmed)
	if firstErr == nil {
		return v, nil
	}

	unfenced := stripFences(trimmed)
	if unfenced != trimmed {
		if v, err := decode[T](unfenced); err == nil {
			return v, nil
		}
	}

	cleaned := cleanJSON(unfenced)
	if v, err := decode[T](cleaned); err == nil {
		return v, nil
	}

	if extracted := extractJSON(cleaned); extracted != "" {
		if v, err := decode[T](extracted); err == nil {
			return v, nil
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrMalformedJSON, firstErr)
}

func decode[T any](text string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(text), &v)
	return v, err
}

func stripFences(text string) string {
	cleaned := fenceWholeRe.ReplaceAllString(text, "$1")
	if cleaned == text {
		if m := fenceAnyRe.FindStringSubmatch(text); m != nil {
			cleaned = m[1]
		}
	}
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

// cleanJSON does not touch quotes: reports routinely contain apostrophes.
func cleanJSON(text string) string {
	cleaned := trailingCommaRe.ReplaceAllString(text, "$1")
	cleaned = unquotedKeyRe.ReplaceAllString(cleaned, `$1"$2":`)
	cleaned = lineCommentRe.ReplaceAllString(cleaned, "")
	cleaned = blockCommentRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// extractJSON returns the span between the first opening bracket and the
// last matching closer, preferring whichever kind appears first.
func extractJSON(text string) string {
	obj := strings.IndexByte(text, '{')
	arr := strings.IndexByte(text, '[')
	open, closer := obj, byte('}')
	if obj < 0 || (arr >= 0 && arr < obj) {
		open, closer = arr, ']'
	}
	if open < 0 {
		return ""
	}
	end := strings.LastIndexByte(text, closer)
	if end <= open {
		return ""
	}
	return text[open : end+1]
}
