// omap/mappergen/main.go
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"text/template"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// envLogLevel overrides the default -log-level.
const envLogLevel = "MAPPERGEN_LOG_LEVEL"

type GoImport struct {
	Name string `yaml:"name" json:"name"` // optional alias
	Path string `yaml:"path" json:"path"`
}

type Imports struct {
	// Mapper overrides the inferred import path of the mapper runtime package.
	Mapper string     `yaml:"mapper" json:"mapper"`
	Extra  []GoImport `yaml:"extra" json:"extra"`
}

// Source is a constructor parameter of the generated implementation.
type Source struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// CustomMapper is a delegate accepted through a SetCustomMapper<Name> setter.
// Name defaults to the simple name of Type and must match it.
type CustomMapper struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

type MapperSpec struct {
	Package   string `yaml:"package" json:"package"`
	Interface string `yaml:"interface" json:"interface"`
	ImplType  string `yaml:"implType" json:"implType"`

	Sources       []Source       `yaml:"sources" json:"sources"`
	CustomMappers []CustomMapper `yaml:"customMappers" json:"customMappers"`

	Imports Imports `yaml:"imports" json:"imports"`
}

// tplField is a struct field of the generated implementation.
type tplField struct {
	Name     string
	Field    string
	Type     string
	Accessor string
}

func run(args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mappergen: %s", toString(r))
		}
	}()

	fs := flag.NewFlagSet("mappergen", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	specPath := fs.String("spec", "", "path to x.mapper.yaml (or .json)")
	outPath := fs.String("out", "", "output _gen.go file path")
	logLevel := fs.String("log-level", defaultLogLevel(), "debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*outPath) == "" {
		return fmt.Errorf("missing -out")
	}
	if strings.TrimSpace(*specPath) == "" {
		return fmt.Errorf("missing -spec")
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	genMapper(log, *specPath, *outPath)
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultLogLevel() string {
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		return v
	}
	return "warn"
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func genMapper(log *zap.Logger, specPath, outPath string) {
	raw := mustRead(specPath)

	spec := decodeSpec(specPath, raw)
	applyDefaults(&spec)
	validateSpec(&spec)
	inferImports(&spec, outPath)

	specHash := sha256Hex(raw)

	// Sources keep declaration order: it is the constructor signature.
	sort.Slice(spec.CustomMappers, func(i, j int) bool { return spec.CustomMappers[i].Name < spec.CustomMappers[j].Name })

	preserved := readImportsFromExistingOut(outPath)

	required := []GoImport{{Name: "mapper", Path: spec.Imports.Mapper}}
	required = append(required, spec.Imports.Extra...)

	mergedImports := mergeImports(required, preserved)

	data := map[string]any{
		"Spec":     spec,
		"SpecPath": filepath.ToSlash(specPath),
		"SpecHash": specHash,
		"Imports":  mergedImports,
		"Sources":  sourceFields(spec.Sources),
		"Customs":  customFields(spec.CustomMappers),
	}

	src := mustExecTemplate(mapperTpl, data)
	if kept := dropUnusedImports(src, required, mergedImports); len(kept) != len(mergedImports) {
		data["Imports"] = kept
		src = mustExecTemplate(mapperTpl, data)
	}
	writeFormatted(outPath, src)

	log.Info("generated mapper implementation",
		zap.String("interface", spec.Interface),
		zap.String("implType", spec.ImplType),
		zap.Int("sources", len(spec.Sources)),
		zap.Int("customMappers", len(spec.CustomMappers)),
		zap.String("out", filepath.ToSlash(outPath)),
	)
}

func decodeSpec(path string, raw []byte) MapperSpec {
	var spec MapperSpec
	if strings.EqualFold(filepath.Ext(path), ".json") {
		must(json.Unmarshal(raw, &spec))
		return spec
	}
	must(yaml.Unmarshal(raw, &spec))
	return spec
}

func applyDefaults(s *MapperSpec) {
	if s == nil {
		return
	}
	if strings.TrimSpace(s.ImplType) == "" && s.Interface != "" {
		s.ImplType = s.Interface + "Impl"
	}
	for i := range s.CustomMappers {
		if strings.TrimSpace(s.CustomMappers[i].Name) == "" {
			s.CustomMappers[i].Name = simpleTypeName(s.CustomMappers[i].Type)
		}
	}
}

func validateSpec(s *MapperSpec) {
	req := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			die("spec missing: " + name)
		}
	}
	req("package", s.Package)
	req("interface", s.Interface)
	req("implType", s.ImplType)

	ident := func(what, v string) {
		if !token.IsIdentifier(v) {
			die(what + " must be a Go identifier, got " + fmt.Sprintf("%q", v))
		}
	}
	ident("package", s.Package)
	ident("interface", s.Interface)
	ident("implType", s.ImplType)
	if !token.IsExported(s.Interface) {
		die("interface must be exported")
	}

	fields := map[string]string{}
	claim := func(field, owner string) {
		if prev, ok := fields[field]; ok {
			die("field " + field + " used by both " + prev + " and " + owner)
		}
		fields[field] = owner
	}

	for i, src := range s.Sources {
		owner := fmt.Sprintf("sources[%d]", i)
		if src.Name == "" || src.Type == "" {
			die(owner + " must have name/type")
		}
		ident(owner+".name", src.Name)
		validTypeExpr(owner+".type", src.Type)
		claim(unexportName(src.Name), owner)
	}

	seen := map[string]bool{}
	for i, cm := range s.CustomMappers {
		owner := fmt.Sprintf("customMappers[%d]", i)
		if cm.Type == "" {
			die(owner + " must have type")
		}
		validTypeExpr(owner+".type", cm.Type)
		simple := simpleTypeName(cm.Type)
		if simple == "" {
			die(owner + ".type " + fmt.Sprintf("%q", cm.Type) + " has no simple name")
		}
		if cm.Name != simple {
			die(owner + ".name " + fmt.Sprintf("%q", cm.Name) + " must match the simple type name " + fmt.Sprintf("%q", simple))
		}
		if seen[cm.Name] {
			die("duplicate custom mapper " + cm.Name)
		}
		seen[cm.Name] = true
		claim(customField(cm.Name), owner)
	}

	for i, gi := range s.Imports.Extra {
		if strings.TrimSpace(gi.Path) == "" {
			die(fmt.Sprintf("imports.extra[%d] must have path", i))
		}
	}
}

func validTypeExpr(what, typ string) {
	if _, err := parser.ParseExpr(typ); err != nil {
		die(what + " is not a Go type expression: " + err.Error())
	}
}

// simpleTypeName returns the unqualified name of a type expression with
// pointers and type arguments removed ("*acme.Formatter[int]" -> "Formatter").
func simpleTypeName(typ string) string {
	expr, err := parser.ParseExpr(typ)
	if err != nil {
		return ""
	}
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.SelectorExpr:
			return e.Sel.Name
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

func sourceFields(srcs []Source) []tplField {
	out := make([]tplField, 0, len(srcs))
	for _, s := range srcs {
		out = append(out, tplField{
			Name:     s.Name,
			Field:    unexportName(s.Name),
			Type:     s.Type,
			Accessor: "Source" + exportName(s.Name),
		})
	}
	return out
}

func customFields(cms []CustomMapper) []tplField {
	out := make([]tplField, 0, len(cms))
	for _, c := range cms {
		out = append(out, tplField{
			Name:     c.Name,
			Field:    customField(c.Name),
			Type:     c.Type,
			Accessor: "CustomMapper" + c.Name,
		})
	}
	return out
}

func customField(name string) string { return "custom" + exportName(name) }

// -------------------------
// Import inference
// -------------------------
//
// The mapper runtime import is taken, in order, from:
//   (1) imports.mapper in the spec
//   (2) an import aliased "mapper" or ending in "/mapper" in the package's hand-written sources
//   (3) the module containing this generator

func inferImports(s *MapperSpec, outPath string) {
	if strings.TrimSpace(s.Imports.Mapper) != "" {
		s.Imports.Mapper = strings.TrimSpace(s.Imports.Mapper)
		return
	}
	scanned := scanPackageImports(filepath.Dir(outPath))
	if gi, ok := findImportByAliasOrSuffix(scanned, "mapper", "/mapper"); ok {
		s.Imports.Mapper = gi.Path
		return
	}
	s.Imports.Mapper = inferRuntimeImportFromGeneratorModule("mapper")
}

func inferRuntimeImportFromGeneratorModule(runtimePkgRel string) string {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		die("cannot infer mapper runtime import: runtime.Caller failed")
	}
	genDir := filepath.Dir(thisFile)

	modRoot, modPath, err := findModule(genDir)
	if err != nil {
		die("cannot infer mapper runtime import: cannot find go.mod for generator module: " + err.Error())
	}

	runtimeAbs := filepath.Join(modRoot, filepath.FromSlash(runtimePkgRel))
	if !dirExists(runtimeAbs) {
		die("cannot infer mapper runtime import: expected runtime package dir at " + filepath.ToSlash(runtimeAbs))
	}

	return modPath + "/" + filepath.ToSlash(runtimePkgRel)
}

type cmdError struct{ msg string }

func (e *cmdError) Error() string { return e.msg }

func findModule(startDir string) (modRoot string, modPath string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		if fileExists(gomod) {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			for _, ln := range strings.Split(string(b), "\n") {
				ln = strings.TrimSpace(ln)
				if strings.HasPrefix(ln, "module ") {
					mod := strings.TrimSpace(strings.TrimPrefix(ln, "module "))
					if mod == "" {
						return "", "", &cmdError{msg: "go.mod has empty module path at " + filepath.ToSlash(gomod)}
					}
					return dir, mod, nil
				}
			}
			return "", "", &cmdError{msg: "go.mod missing module directive at " + filepath.ToSlash(gomod)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", &cmdError{msg: "could not find go.mod starting from " + filepath.ToSlash(startDir)}
}

func dirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func isGenerated(name string) bool {
	return strings.HasSuffix(name, "_gen.go") || strings.Contains(name, ".gen.")
}

func scanPackageImports(pkgDir string) []GoImport {
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return nil
	}

	var out []GoImport
	fset := token.NewFileSet()

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") || isGenerated(name) {
			continue
		}

		full := filepath.Join(pkgDir, name)
		src, rerr := os.ReadFile(full)
		if rerr != nil {
			continue
		}
		f, perr := parser.ParseFile(fset, full, src, parser.ImportsOnly)
		if perr != nil {
			continue
		}
		out = append(out, fileImports(f)...)
	}

	return sortImports(dedupeImports(out))
}

func fileImports(f *ast.File) []GoImport {
	out := make([]GoImport, 0, len(f.Imports))
	for _, imp := range f.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		alias := ""
		if imp.Name != nil {
			alias = imp.Name.Name
		}
		out = append(out, GoImport{Name: alias, Path: path})
	}
	return out
}

func findImportByAliasOrSuffix(imports []GoImport, preferAlias, preferSuffix string) (GoImport, bool) {
	if preferAlias != "" {
		for _, gi := range imports {
			if gi.Name == preferAlias {
				return gi, true
			}
		}
	}
	if preferSuffix != "" {
		for _, gi := range imports {
			if strings.HasSuffix(gi.Path, preferSuffix) {
				return gi, true
			}
		}
	}
	return GoImport{}, false
}

func readImportsFromExistingOut(outPath string) []GoImport {
	if strings.TrimSpace(outPath) == "" {
		return nil
	}
	src, err := os.ReadFile(outPath)
	if err != nil {
		return nil
	}
	f, err := parser.ParseFile(token.NewFileSet(), outPath, src, parser.ImportsOnly)
	if err != nil {
		return nil
	}
	return fileImports(f)
}

// mergeImports unions required and preserved imports. A preserved import
// whose path is already required keeps the required alias.
func mergeImports(required []GoImport, preserved []GoImport) []GoImport {
	byPath := map[string]bool{}
	out := make([]GoImport, 0, len(required)+len(preserved))
	for _, gi := range dedupeImports(required) {
		byPath[gi.Path] = true
		out = append(out, gi)
	}
	for _, gi := range dedupeImports(preserved) {
		if byPath[gi.Path] {
			continue
		}
		byPath[gi.Path] = true
		out = append(out, gi)
	}
	return sortImports(out)
}

// dropUnusedImports removes preserved imports that src no longer
// references. Required, blank and dot imports always stay, as does any
// import whose package name cannot be inferred from its path.
func dropUnusedImports(src []byte, required, imports []GoImport) []GoImport {
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.SkipObjectResolution)
	if err != nil {
		return imports
	}
	used := map[string]bool{}
	ast.Inspect(f, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				used[id.Name] = true
			}
		}
		return true
	})

	isRequired := map[string]bool{}
	for _, gi := range required {
		isRequired[gi.Path] = true
	}

	out := make([]GoImport, 0, len(imports))
	for _, gi := range imports {
		name, ok := importName(gi)
		if isRequired[gi.Path] || !ok || name == "_" || name == "." || used[name] {
			out = append(out, gi)
		}
	}
	return out
}

// importName reports the name an import is referenced by. The default name
// is the last path element, skipping a trailing major version suffix.
func importName(gi GoImport) (string, bool) {
	if gi.Name != "" {
		return gi.Name, true
	}
	name := path.Base(gi.Path)
	if isMajorVersion(name) {
		name = path.Base(path.Dir(gi.Path))
	}
	if !token.IsIdentifier(name) {
		return "", false
	}
	return name, true
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func dedupeImports(imps []GoImport) []GoImport {
	seen := map[GoImport]bool{}
	out := make([]GoImport, 0, len(imps))
	for _, gi := range imps {
		if seen[gi] {
			continue
		}
		seen[gi] = true
		out = append(out, gi)
	}
	return out
}

func sortImports(imps []GoImport) []GoImport {
	sort.Slice(imps, func(i, j int) bool {
		if imps[i].Path == imps[j].Path {
			return imps[i].Name < imps[j].Name
		}
		return imps[i].Path < imps[j].Path
	})
	return imps
}

// -------------------------
// Output helpers
// -------------------------

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func mustRead(path string) []byte {
	b, err := os.ReadFile(path)
	must(err)
	return b
}

func mustExecTemplate(tpl *template.Template, data any) []byte {
	var sb strings.Builder
	must(tpl.Execute(&sb, data))
	return []byte(sb.String())
}

func writeFormatted(out string, src []byte) {
	fmtSrc, err := format.Source(src)
	if err != nil {
		_ = os.WriteFile(out, src, 0o644)
		die("gofmt/format failed: " + err.Error())
	}
	must(os.WriteFile(out, fmtSrc, 0o644))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func die(msg string) {
	panic(msg)
}

func toString(r any) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

func exportName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func unexportName(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

var mapperTpl = template.Must(
	template.New("mapper").Parse(`// Code generated by mappergen; DO NOT EDIT.
// source: {{.SpecPath}}
// spec-sha256: {{.SpecHash}}

package {{.Spec.Package}}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// {{.Spec.ImplType}} is the generated implementation of {{.Spec.Interface}}.
type {{.Spec.ImplType}} struct {
{{- range .Sources }}
	{{ .Field }} {{ .Type }}
{{- end }}
{{- range .Customs }}
	{{ .Field }} {{ .Type }}
{{- end }}
}

// New{{.Spec.ImplType}} is the only constructor of {{.Spec.ImplType}}.
func New{{.Spec.ImplType}}({{ range $i, $s := .Sources }}{{ if $i }}, {{ end }}{{ $s.Name }} {{ $s.Type }}{{ end }}) *{{.Spec.ImplType}} {
	return &{{.Spec.ImplType}}{
{{- range .Sources }}
		{{ .Field }}: {{ .Name }},
{{- end }}
	}
}
{{ range .Sources }}
func (m *{{ $.Spec.ImplType }}) {{ .Accessor }}() {{ .Type }} { return m.{{ .Field }} }
{{ end }}
{{- range .Customs }}
// SetCustomMapper{{ .Name }} installs the {{ .Type }} custom mapper.
func (m *{{ $.Spec.ImplType }}) SetCustomMapper{{ .Name }}(v {{ .Type }}) { m.{{ .Field }} = v }

func (m *{{ $.Spec.ImplType }}) {{ .Accessor }}() {{ .Type }} { return m.{{ .Field }} }
{{ end }}
var _ {{.Spec.Interface}} = (*{{.Spec.ImplType}})(nil)

func init() {
	mapper.MustProvide[{{.Spec.Interface}}](mapper.DefaultNamespace(), New{{.Spec.ImplType}})
}
`))
