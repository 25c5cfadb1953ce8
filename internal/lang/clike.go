package lang

import (
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/dshills/funnel/internal/model"
)

func init() {
	Languages["c"] = &Language{
		Name:       "c",
		Extensions: []string{".c", ".h"},
		lang:       c.GetLanguage(),
		Units: map[string]model.UnitKind{
			"function_definition": model.KindFunction,
		},
		Functions: set("function_definition"),
		Decisions: set(
			"if_statement",
			"for_statement",
			"while_statement",
			"do_statement",
			"case_statement",
			"conditional_expression",
		),
		Operators: set("&&", "||"),
	}

	Languages["cpp"] = &Language{
		Name:       "cpp",
		Extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		lang:       cpp.GetLanguage(),
		Units: map[string]model.UnitKind{
			"function_definition":  model.KindFunction,
			"class_specifier":      model.KindClass,
			"namespace_definition": model.KindModule,
		},
		Functions: set("function_definition", "lambda_expression"),
		Decisions: set(
			"if_statement",
			"for_statement",
			"for_range_loop",
			"while_statement",
			"do_statement",
			"case_statement",
			"catch_clause",
			"conditional_expression",
		),
		Operators: set("&&", "||"),
	}

	Languages["java"] = &Language{
		Name:       "java",
		Extensions: []string{".java"},
		lang:       java.GetLanguage(),
		Units: map[string]model.UnitKind{
			"method_declaration":      model.KindFunction,
			"constructor_declaration": model.KindFunction,
			"class_declaration":       model.KindClass,
			"enum_declaration":        model.KindClass,
			"interface_declaration":   model.KindInterface,
		},
		Functions: set("method_declaration", "constructor_declaration", "lambda_expression"),
		Decisions: set(
			"if_statement",
			"for_statement",
			"enhanced_for_statement",
			"while_statement",
			"do_statement",
			"switch_label",
			"catch_clause",
			"ternary_expression",
		),
		Operators: set("&&", "||"),
		Wrap:      [2]string{"class __Fragment {\n", "\n}"},
	}

	Languages["csharp"] = &Language{
		Name:       "csharp",
		Extensions: []string{".cs"},
		lang:       csharp.GetLanguage(),
		Units: map[string]model.UnitKind{
			"method_declaration":      model.KindFunction,
			"constructor_declaration": model.KindFunction,
			"class_declaration":       model.KindClass,
			"struct_declaration":      model.KindClass,
			"interface_declaration":   model.KindInterface,
		},
		Functions: set("method_declaration", "constructor_declaration", "lambda_expression"),
		Decisions: set(
			"if_statement",
			"for_statement",
			"for_each_statement",
			"while_statement",
			"do_statement",
			"switch_section",
			"catch_clause",
			"conditional_expression",
		),
		Operators: set("&&", "||", "??"),
		Wrap:      [2]string{"class __Fragment {\n", "\n}"},
	}
}
