package review

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/funnel/internal/model"
)

const analysisSystemPrompt = `You are a rigorous code reviewer examining one important file of a repository.

You receive the project file tree, a one-line summary of the file, any definitions retrieved so far, and the most critical code sections of the file.

Decide whether the evidence is enough for a sound review.
- If it is, set "is_complete" to true and write a detailed review in "report": bugs, security vulnerabilities, performance problems, error handling and maintainability. Reference functions and line numbers. Be concrete and give a suggestion for every problem.
- If a definition you cannot see is critical to judging the code, set "is_complete" to false and list those names in "unknown_symbols".

Only request symbols defined inside this repository. Never request standard library or well-known third-party symbols (os.system, fmt.Println, React.useState, requests.get and the like). Never request a symbol listed as already searched.

You MUST respond with ONLY a JSON object, no markdown fences, no preamble:
{"is_complete": true|false, "unknown_symbols": ["name"], "report": "markdown review"}`

const reduceSystemPrompt = `You are a senior technical expert writing the final code review report for a whole project from per-file review reports. Answer in Markdown.`

const finalAttemptNote = "This is the final attempt. No further definitions can be retrieved. " +
	"You must conclude now: set \"is_complete\" to true and write the best review you can from the evidence above."

// NoReport stands in for a review that ended without report text.
const NoReport = "No report generated."

// NoSummary stands in for a missing file summary.
const NoSummary = "No summary available."

// GlobalContext renders the fixed context every analyze step of a file sees.
func GlobalContext(tree, summary string) string {
	if strings.TrimSpace(summary) == "" {
		summary = NoSummary
	}
	return "[File tree]\n" + tree + "\n\n[Current file responsibility]\n" + summary
}

// BuildAnalysisPrompt assembles the user prompt of one analyze step.
func BuildAnalysisPrompt(st *State, final bool, rules *Rules) string {
	var b strings.Builder

	fmt.Fprintf(&b, "File under review: %s\n", st.File)
	if lang := languageOf(st.File); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}

	b.WriteString("\n[Known context]\n")
	b.WriteString(st.GlobalContext)
	b.WriteString("\n")

	if len(st.Retrieved) > 0 {
		b.WriteString("\n[Retrieved definitions]\n")
		b.WriteString(strings.Join(st.Retrieved, "\n\n"))
		b.WriteString("\n")
	}

	if missing := st.Unresolved(); len(missing) > 0 {
		fmt.Fprintf(&b, "\n[Already searched, not found; do not request again]\n%s\n", strings.Join(missing, ", "))
	}

	b.WriteString(rules.promptSection())

	b.WriteString("\n--- BEGIN CODE UNDER REVIEW ---\n")
	for i, c := range st.Targets {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(chunkHeader(c))
		b.WriteString(c.Content)
		b.WriteString("\n")
	}
	b.WriteString("--- END CODE UNDER REVIEW ---\n")

	if final {
		b.WriteString("\n")
		b.WriteString(finalAttemptNote)
		b.WriteString("\n")
	}
	return b.String()
}

func chunkHeader(c model.Chunk) string {
	var parts []string
	if c.Lines.Start > 0 {
		parts = append(parts, fmt.Sprintf("lines %d-%d", c.Lines.Start, c.Lines.End))
	}
	if c.Kind != "" {
		parts = append(parts, string(c.Kind))
	}
	if c.KeepReason != model.ReasonNone {
		parts = append(parts, "flagged: "+string(c.KeepReason))
	}
	if c.Complexity > 0 {
		parts = append(parts, fmt.Sprintf("CCN %d", c.Complexity))
	}
	if len(parts) == 0 {
		return ""
	}
	return "# " + strings.Join(parts, ", ") + "\n"
}

// BuildReducePrompt assembles the project-level reduction prompt.
func BuildReducePrompt(sections []string, rules *Rules) string {
	var b strings.Builder

	b.WriteString("Below are review reports for several source files of the same project. ")
	b.WriteString("Write one complete project code review report from them.\n\n")

	b.WriteString("[Per-file reports]\n")
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\n")

	b.WriteString("[Report requirements]\n")
	b.WriteString("1. **Project overview**: the main functionality and architectural style.\n")
	b.WriteString("2. **Key risks**: the most serious problems (bugs, security vulnerabilities, performance bottlenecks), most severe first, each naming the files involved.\n")
	b.WriteString("3. **Quality score**: an overall score from 0 to 100 following the rubric below, with the points awarded per criterion.\n")
	b.WriteString("4. **Recommendations**: concrete refactoring or hardening steps, e.g. \"add input validation in auth.py\".\n")
	b.WriteString("5. Use clear Markdown.\n")

	b.WriteString("\n[Scoring rubric]\n")
	for _, item := range rules.rubric() {
		fmt.Fprintf(&b, "- %s (%d points): %s\n", item.Name, item.Points, item.Text)
	}

	b.WriteString(rules.promptSection())
	return b.String()
}

var languageNames = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".js":   "JavaScript",
	".jsx":  "JavaScript/React",
	".ts":   "TypeScript",
	".tsx":  "TypeScript/React",
	".rs":   "Rust",
	".java": "Java",
	".rb":   "Ruby",
	".cpp":  "C++",
	".cc":   "C++",
	".hpp":  "C++",
	".c":    "C",
	".h":    "C/C++",
	".cs":   "C#",
	".php":  "PHP",
	".kt":   "Kotlin",
	".sh":   "Shell",
}

func languageOf(path string) string {
	return languageNames[strings.ToLower(filepath.Ext(path))]
}
