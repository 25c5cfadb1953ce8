package lang

import (
	"github.com/smacker/go-tree-sitter/python"

	"github.com/dshills/funnel/internal/model"
)

func init() {
	Languages["python"] = &Language{
		Name:       "python",
		Extensions: []string{".py", ".pyi"},
		lang:       python.GetLanguage(),
		Units: map[string]model.UnitKind{
			"function_definition": model.KindFunction,
			"class_definition":    model.KindClass,
		},
		Functions: set("function_definition", "lambda"),
		Decisions: set(
			"if_statement",
			"elif_clause",
			"for_statement",
			"while_statement",
			"except_clause",
			"conditional_expression",
			"for_in_clause",
			"if_clause",
			"case_clause",
		),
		Operators:  set("and", "or"),
		Docstrings: true,
	}
}
