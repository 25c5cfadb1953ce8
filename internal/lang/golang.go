package lang

import (
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/dshills/funnel/internal/model"
)

func init() {
	Languages["go"] = &Language{
		Name:       "go",
		Extensions: []string{".go"},
		lang:       golang.GetLanguage(),
		Units: map[string]model.UnitKind{
			"function_declaration": model.KindFunction,
			"method_declaration":   model.KindFunction,
			"type_declaration":     model.KindClass,
		},
		Functions: set("function_declaration", "method_declaration", "func_literal"),
		Decisions: set(
			"if_statement",
			"for_statement",
			"expression_case",
			"type_case",
			"communication_case",
		),
		Operators: set("&&", "||"),
	}
}
