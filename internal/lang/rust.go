package lang

import (
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/dshills/funnel/internal/model"
)

func init() {
	Languages["rust"] = &Language{
		Name:       "rust",
		Extensions: []string{".rs"},
		lang:       rust.GetLanguage(),
		Units: map[string]model.UnitKind{
			"function_item": model.KindFunction,
			"struct_item":   model.KindClass,
			"enum_item":     model.KindClass,
			"trait_item":    model.KindInterface,
			"impl_item":     model.KindImpl,
			"mod_item":      model.KindModule,
		},
		Functions: set("function_item", "closure_expression"),
		Decisions: set(
			"if_expression",
			"if_let_expression",
			"for_expression",
			"while_expression",
			"while_let_expression",
			"match_arm",
		),
		Operators: set("&&", "||"),
	}
}
