package lang

import (
	"github.com/smacker/go-tree-sitter/ruby"

	"github.com/dshills/funnel/internal/model"
)

func init() {
	Languages["ruby"] = &Language{
		Name:       "ruby",
		Extensions: []string{".rb"},
		lang:       ruby.GetLanguage(),
		Units: map[string]model.UnitKind{
			"method":           model.KindFunction,
			"singleton_method": model.KindFunction,
			"class":            model.KindClass,
			"module":           model.KindModule,
		},
		Functions: set("method", "singleton_method", "lambda"),
		Decisions: set(
			"if",
			"elsif",
			"unless",
			"while",
			"until",
			"for",
			"when",
			"rescue",
			"conditional",
			"if_modifier",
			"unless_modifier",
			"while_modifier",
			"until_modifier",
		),
		Operators: set("&&", "||", "and", "or"),
	}
}
