package redact

import (
	"path"
	"regexp"
	"strings"

	"github.com/dshills/funnel/internal/model"
)

// Placeholder replaces every redacted span.
const Placeholder = "[REDACTED]"

type rule struct {
	name string
	re   *regexp.Regexp
}

// Order matters: provider-specific keys run before the generic sk- pattern.
var rules = []rule{
	{"api-key-assignment", regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`)},
	{"aws-access-key-id", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws-secret-key", regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`)},
	{"quoted-credential", regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`)},
	{"bearer", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`)},
	{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{"private-key", regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----`)},
	{"github-token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"slack-token", regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`)},
	{"anthropic-key", regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`)},
	{"openai-key", regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`)},
	{"hex-secret", regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`)},
}

// Secrets returns text with every detected credential replaced by
// Placeholder.
func Secrets(text string) string {
	out, _ := Scan(text)
	return out
}

// Scan is Secrets that also reports how many spans were replaced.
func Scan(text string) (string, int) {
	var n int
	for _, r := range rules {
		text = r.re.ReplaceAllStringFunc(text, func(string) string {
			n++
			return Placeholder
		})
	}
	return text, n
}

// MatchPath reports whether a slash-separated path matches one of the glob
// patterns. A leading "**/" matches at any depth.
func MatchPath(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
		rest, deep := strings.CutPrefix(pattern, "**/")
		if !deep {
			continue
		}
		if ok, err := path.Match(rest, path.Base(p)); err == nil && ok {
			return true
		}
		if ok, err := path.Match(rest, p); err == nil && ok {
			return true
		}
	}
	return false
}

// Files removes files matching a path pattern. It returns the remaining
// files, in order, and the paths that were withheld.
func Files(files []model.SourceFile, patterns []string) ([]model.SourceFile, []string) {
	if len(patterns) == 0 {
		return files, nil
	}
	out := make([]model.SourceFile, 0, len(files))
	var withheld []string
	for _, f := range files {
		if MatchPath(f.Path, patterns) {
			withheld = append(withheld, f.Path)
			continue
		}
		out = append(out, f)
	}
	return out, withheld
}
