package grammar

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_bash "github.com/tree-sitter/tree-sitter-bash/bindings/go"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_embedded_template "github.com/tree-sitter/tree-sitter-embedded-template/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_json "github.com/tree-sitter/tree-sitter-json/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// compiledGrammars wraps each compiled-in grammar exactly once. Layer reuse
// across incremental updates compares language pointers, so every
// configuration built for a grammar must share the same *Language value even
// when the configuration itself is rebuilt.
var compiledGrammars = map[string]*tree_sitter.Language{
	"bash":              tree_sitter.NewLanguage(tree_sitter_bash.Language()),
	"c":                 tree_sitter.NewLanguage(tree_sitter_c.Language()),
	"css":               tree_sitter.NewLanguage(tree_sitter_css.Language()),
	"embedded-template": tree_sitter.NewLanguage(tree_sitter_embedded_template.Language()),
	"go":                tree_sitter.NewLanguage(tree_sitter_go.Language()),
	"html":              tree_sitter.NewLanguage(tree_sitter_html.Language()),
	"javascript":        tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
	"json":              tree_sitter.NewLanguage(tree_sitter_json.Language()),
	"python":            tree_sitter.NewLanguage(tree_sitter_python.Language()),
	"rust":              tree_sitter.NewLanguage(tree_sitter_rust.Language()),
}

// Grammars lists the names of every compiled-in grammar.
func Grammars() []string {
	names := make([]string, 0, len(compiledGrammars))
	for name := range compiledGrammars {
		names = append(names, name)
	}
	return names
}
