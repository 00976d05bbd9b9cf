package main

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type pkgHarness struct {
	t   *testing.T
	dir string
}

func newPkg(t *testing.T) *pkgHarness {
	t.Helper()
	return &pkgHarness{t: t, dir: t.TempDir()}
}

func (p *pkgHarness) write(rel, content string) string {
	p.t.Helper()
	path := filepath.Join(p.dir, rel)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(p.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (p *pkgHarness) out(rel string) string {
	return filepath.Join(p.dir, rel)
}

func (p *pkgHarness) read(rel string) string {
	p.t.Helper()
	b, err := os.ReadFile(filepath.Join(p.dir, rel))
	require.NoError(p.t, err)
	return string(b)
}

// parseGenerated parses src and returns the declared top-level func and
// method names.
func parseGenerated(t *testing.T, src string) (*ast.File, map[string]bool) {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, parser.ParseComments)
	require.NoError(t, err, src)

	names := map[string]bool{}
	for _, d := range f.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		names[fd.Name.Name] = true
	}
	return f, names
}

func assertPanicContains(t *testing.T, fn func(), wantSubstr string) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic containing %q", wantSubstr)
		require.Contains(t, toString(r), wantSubstr)
	}()
	fn()
}

func assertContainsInOrder(t *testing.T, s string, parts ...string) {
	t.Helper()
	pos := 0
	for _, p := range parts {
		i := strings.Index(s[pos:], p)
		require.GreaterOrEqual(t, i, 0, "expected to find %q after offset %d in:\n%s", p, pos, s)
		pos += i + len(p)
	}
}

const userSpecYAML = `package: acme
interface: UserMapper
sources:
  - name: clock
    type: Clock
customMappers:
  - type: "*EmailFormatter"
  - name: Auditor
    type: audit.Auditor
imports:
  mapper: github.com/sghaida/omap/mapper
  extra:
    - path: example.com/acme/audit
`
