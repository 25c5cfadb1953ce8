package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/funnel/internal/model"
)

// JavaScript and TypeScript share most node names.
var (
	ecmaFunctions = []string{
		"function_declaration",
		"generator_function_declaration",
		"method_definition",
		"function",
		"function_expression",
		"arrow_function",
	}
	ecmaDecisions = []string{
		"if_statement",
		"for_statement",
		"for_in_statement",
		"while_statement",
		"do_statement",
		"switch_case",
		"catch_clause",
		"ternary_expression",
	}
	ecmaWrap = [2]string{"class __Fragment {\n", "\n}"}
)

func init() {
	Languages["javascript"] = &Language{
		Name:       "javascript",
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		lang:       javascript.GetLanguage(),
		Units: map[string]model.UnitKind{
			"function_declaration":           model.KindFunction,
			"generator_function_declaration": model.KindFunction,
			"method_definition":              model.KindFunction,
			"class_declaration":              model.KindClass,
		},
		Functions: set(ecmaFunctions...),
		Decisions: set(ecmaDecisions...),
		Operators: set("&&", "||", "??"),
		Wrap:      ecmaWrap,
	}

	tsUnits := map[string]model.UnitKind{
		"function_declaration":           model.KindFunction,
		"generator_function_declaration": model.KindFunction,
		"method_definition":              model.KindFunction,
		"class_declaration":              model.KindClass,
		"abstract_class_declaration":     model.KindClass,
		"interface_declaration":          model.KindInterface,
		"internal_module":                model.KindModule,
	}
	Languages["typescript"] = &Language{
		Name:       "typescript",
		Extensions: []string{".ts", ".mts", ".cts"},
		lang:       typescript.GetLanguage(),
		Units:      tsUnits,
		Functions:  set(ecmaFunctions...),
		Decisions:  set(ecmaDecisions...),
		Operators:  set("&&", "||", "??"),
		Wrap:       ecmaWrap,
	}
	Languages["tsx"] = &Language{
		Name:       "tsx",
		Extensions: []string{".tsx"},
		lang:       tsx.GetLanguage(),
		Units:      tsUnits,
		Functions:  set(ecmaFunctions...),
		Decisions:  set(ecmaDecisions...),
		Operators:  set("&&", "||", "??"),
		Wrap:       ecmaWrap,
	}
}
