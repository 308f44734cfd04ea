// Package grammar maps file names, shebang lines, and injection markers onto
// tree-sitter languages and builds each language's highlight configuration on
// demand. Grammars are compiled into the binary; query files and the language
// manifest are embedded but can be overridden from disk.
package grammar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/sheen/internal/cachemanager"
	"github.com/zjrosen/sheen/internal/log"
	"github.com/zjrosen/sheen/internal/syntax"
)

var (
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownGrammar  = errors.New("no compiled-in grammar")
)

// configTTL bounds how long a compiled configuration stays cached. Lookups
// refresh it, so configurations in active use never expire mid-session.
const configTTL = time.Hour

// Language is one entry of the language manifest.
type Language struct {
	// Name identifies the language and names its query directory.
	Name string `yaml:"name"`
	// Grammar selects the compiled-in grammar when it differs from Name,
	// for dialects like jsx that reuse another language's grammar.
	Grammar string `yaml:"grammar"`
	// Extensions are file extensions without the leading dot.
	Extensions []string `yaml:"extensions"`
	// Filenames are exact base names like ".bashrc".
	Filenames []string `yaml:"filenames"`
	// Shebangs are interpreter names like "python" for "#!/usr/bin/env python3".
	Shebangs []string `yaml:"shebangs"`
	// InjectionRegex matches free-form language text in injection markers.
	InjectionRegex string `yaml:"injection-regex"`

	injectionRegex *regexp.Regexp
}

func (l *Language) grammarName() string {
	if l.Grammar != "" {
		return l.Grammar
	}
	return l.Name
}

type manifest struct {
	Languages []*Language `yaml:"languages"`
}

// Options adjust registry construction.
type Options struct {
	// Scopes are the recognized highlight names configurations are built
	// with, usually the active theme's. SetScopes changes them later.
	Scopes []string
	// QueryDir overrides embedded query files with
	// <dir>/<language>/<file>.scm read from disk.
	QueryDir string
	// ExtraExtensions maps additional file extensions onto language names.
	ExtraExtensions map[string]string
	// SkipCache recompiles configurations on every lookup instead of
	// caching them.
	SkipCache bool
}

// Registry resolves languages by name, filename, shebang interpreter, and
// injection marker, and caches the highlight configuration compiled for each.
type Registry struct {
	languages   []*Language
	byName      map[string]*Language
	byExtension map[string]*Language
	byFilename  map[string]*Language
	byShebang   map[string]*Language

	queryDir string

	mu     sync.RWMutex
	scopes []string

	cache   *cachemanager.InMemoryCacheManager[string, *syntax.HighlightConfiguration]
	configs *cachemanager.ReadThroughCache[string, *syntax.HighlightConfiguration, *Language]
}

// New builds a registry from the embedded manifest.
func New(opts Options) (*Registry, error) {
	var m manifest
	if err := yaml.Unmarshal(builtinManifest, &m); err != nil {
		return nil, fmt.Errorf("parsing language manifest: %w", err)
	}

	r := &Registry{
		languages:   m.Languages,
		byName:      make(map[string]*Language, len(m.Languages)),
		byExtension: make(map[string]*Language),
		byFilename:  make(map[string]*Language),
		byShebang:   make(map[string]*Language),
		queryDir:    opts.QueryDir,
		scopes:      opts.Scopes,
	}

	for _, lang := range m.Languages {
		if _, ok := compiledGrammars[lang.grammarName()]; !ok {
			return nil, fmt.Errorf("%w: %q for language %q", ErrUnknownGrammar, lang.grammarName(), lang.Name)
		}
		if lang.InjectionRegex != "" {
			re, err := regexp.Compile(lang.InjectionRegex)
			if err != nil {
				return nil, fmt.Errorf("compiling injection regex for %q: %w", lang.Name, err)
			}
			lang.injectionRegex = re
		}
		r.byName[lang.Name] = lang
		for _, ext := range lang.Extensions {
			r.byExtension[ext] = lang
		}
		for _, name := range lang.Filenames {
			r.byFilename[name] = lang
		}
		for _, shebang := range lang.Shebangs {
			r.byShebang[shebang] = lang
		}
	}

	for ext, name := range opts.ExtraExtensions {
		lang, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q for extension %q", ErrUnknownLanguage, name, ext)
		}
		r.byExtension[strings.TrimPrefix(ext, ".")] = lang
	}

	r.cache = cachemanager.NewInMemoryCacheManager[string, *syntax.HighlightConfiguration](
		"highlight-configs", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	r.configs = cachemanager.NewReadThroughCache(r.cache, r.buildConfig, opts.SkipCache)

	log.Debug(log.CatGrammar, "registry ready", "languages", len(r.languages))

	return r, nil
}

// Languages returns every registered language in manifest order.
func (r *Registry) Languages() []*Language {
	return r.languages
}

// LanguageByName returns the language registered under exactly that name.
func (r *Registry) LanguageByName(name string) *Language {
	return r.byName[name]
}

// DetectByFilename matches a path against exact filenames first, then file
// extensions.
func (r *Registry) DetectByFilename(p string) *Language {
	base := filepath.Base(p)
	if lang, ok := r.byFilename[base]; ok {
		return lang
	}
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" {
		return nil
	}
	return r.byExtension[ext]
}

// DetectByShebang matches the interpreter named by a shebang on the first
// line of source.
func (r *Registry) DetectByShebang(source []byte) *Language {
	interpreter := syntax.InterpreterFromShebang(source)
	if interpreter == "" {
		return nil
	}
	return r.byShebang[interpreter]
}

// DetectByMarkerText resolves free-form language text, like an info string on
// a fenced code block or an `injection.language` property. An exact name
// match wins, then the longest injection-regex match across all languages.
func (r *Registry) DetectByMarkerText(text string) *Language {
	if lang, ok := r.byName[text]; ok {
		return lang
	}

	var best *Language
	bestLen := 0
	for _, lang := range r.languages {
		if lang.injectionRegex == nil {
			continue
		}
		m := lang.injectionRegex.FindString(text)
		if len(m) > bestLen {
			best = lang
			bestLen = len(m)
		}
	}
	return best
}

// Detect identifies a file's language from its path, falling back to the
// shebang line for extensionless scripts.
func (r *Registry) Detect(p string, source []byte) *Language {
	if lang := r.DetectByFilename(p); lang != nil {
		return lang
	}
	return r.DetectByShebang(source)
}

// Config returns the language's highlight configuration, compiling and
// caching it on first use.
func (r *Registry) Config(ctx context.Context, lang *Language) (*syntax.HighlightConfiguration, error) {
	return r.configs.GetWithRefresh(ctx, lang.Name, lang, configTTL)
}

// Scopes returns the recognized highlight names configurations are built with.
func (r *Registry) Scopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scopes
}

// SetScopes replaces the recognized highlight names and drops every cached
// configuration so the next lookup rebuilds against the new names.
func (r *Registry) SetScopes(ctx context.Context, scopes []string) {
	r.mu.Lock()
	r.scopes = scopes
	r.mu.Unlock()

	if err := r.cache.Flush(ctx); err != nil {
		log.ErrorErr(log.CatGrammar, "flushing configurations", err)
	}
}

// InjectionCallback returns a marker resolver for syntax.New and
// syntax.Update. Markers that resolve to no known language, and languages
// whose configuration fails to build, yield nil so the injection is skipped.
func (r *Registry) InjectionCallback(ctx context.Context) syntax.InjectionCallback {
	return func(marker syntax.InjectionLanguageMarker) *syntax.HighlightConfiguration {
		var lang *Language
		switch marker.Kind {
		case syntax.MarkerName:
			lang = r.DetectByMarkerText(marker.Value)
		case syntax.MarkerFilename:
			lang = r.DetectByFilename(marker.Value)
		case syntax.MarkerShebang:
			lang = r.byShebang[marker.Value]
		}
		if lang == nil {
			log.Debug(log.CatInjection, "no language for marker", "marker", marker.String())
			return nil
		}

		cfg, err := r.Config(ctx, lang)
		if err != nil {
			log.ErrorErr(log.CatInjection, "building injected configuration", err, "language", lang.Name)
			return nil
		}
		return cfg
	}
}

func (r *Registry) buildConfig(ctx context.Context, lang *Language) (*syntax.HighlightConfiguration, error) {
	language := compiledGrammars[lang.grammarName()]

	start := time.Now()
	highlights := r.readQuery(lang.Name, "highlights.scm")
	injections := r.readQuery(lang.Name, "injections.scm")
	locals := r.readQuery(lang.Name, "locals.scm")

	cfg, err := syntax.NewHighlightConfiguration(language, lang.Name, highlights, injections, locals)
	if err != nil {
		return nil, fmt.Errorf("compiling %s queries: %w", lang.Name, err)
	}
	cfg.Configure(r.Scopes())

	log.Debug(log.CatGrammar, "compiled highlight configuration",
		"language", lang.Name,
		"grammar", lang.grammarName(),
		"duration", time.Since(start))

	return cfg, nil
}

// readQuery loads one query file, preferring the override directory when one
// is set, and expands inherits directives.
func (r *Registry) readQuery(language, filename string) string {
	return ReadQuery(language, filename, func(language, filename string) string {
		if r.queryDir != "" {
			if data, err := os.ReadFile(filepath.Join(r.queryDir, language, filename)); err == nil {
				return string(data)
			}
		}
		data, err := builtinQueries.ReadFile(path.Join("queries", language, filename))
		if err != nil {
			return ""
		}
		return string(data)
	})
}
