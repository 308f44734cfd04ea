package grammar

import (
	"embed"
	"regexp"
	"strings"
)

//go:embed queries
var builtinQueries embed.FS

//go:embed languages.yaml
var builtinManifest []byte

// inheritsRegex matches `; inherits: lang1,lang2` directives inside query
// files. Each directive is replaced with the named languages' own queries so
// a dialect like jsx can extend javascript without duplicating patterns.
var inheritsRegex = regexp.MustCompile(`;+\s*inherits\s*:?\s*([a-z_,()-]+)\s*`)

// ReadQuery resolves one query file for a language, expanding inherits
// directives recursively. The read callback returns the raw text of a
// language's query file, or "" when the language has none.
//
// Pattern order is preserved: text before a directive keeps lower pattern
// indices than the inherited queries it pulls in, which lets a dialect's own
// patterns take precedence over inherited ones.
func ReadQuery(language, filename string, read func(language, filename string) string) string {
	text := read(language, filename)
	return inheritsRegex.ReplaceAllStringFunc(text, func(directive string) string {
		parents := inheritsRegex.FindStringSubmatch(directive)[1]
		var expanded strings.Builder
		for _, parent := range strings.Split(parents, ",") {
			expanded.WriteString("\n")
			expanded.WriteString(ReadQuery(parent, filename, read))
			expanded.WriteString("\n")
		}
		return expanded.String()
	})
}
