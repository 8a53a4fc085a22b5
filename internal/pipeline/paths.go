package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/cuiles/internal/core"
)

// Confine rewrites the paths of req to absolute paths inside SourceDir and
// DestDir. Relative paths are taken relative to those directories. A path
// that resolves outside them, symlinks included, is rejected with
// core.ErrInvalidRequest. An empty directory leaves its paths unchecked, and
// destinations of server dialects are connection URLs and never checked.
func (o Options) Confine(req Request) (Request, error) {
	var err error
	if req.CuilesSource, err = confinePath(o.SourceDir, req.CuilesSource, "cuiles_source"); err != nil {
		return req, err
	}
	if req.PeriodosSource, err = confinePath(o.SourceDir, req.PeriodosSource, "periodos_source"); err != nil {
		return req, err
	}
	if o.Dialect == nil || o.Dialect.FileBased() {
		if req.Destination, err = confinePath(o.DestDir, req.Destination, "destination"); err != nil {
			return req, err
		}
	}
	return req, nil
}

func confinePath(root, p, field string) (string, error) {
	if root == "" || p == "" {
		return p, nil
	}

	base, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %s root %s: %w", field, root, err)
	}
	base = resolveLinks(base)

	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	resolved := resolveLinks(filepath.Clean(p))

	rel, err := filepath.Rel(base, resolved)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s %q is outside %s", core.ErrInvalidRequest, field, p, base)
	}
	return resolved, nil
}

// resolveLinks evaluates symlinks in p. A file that does not exist yet is
// resolved through its parent directory.
func resolveLinks(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	if r, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		return filepath.Join(r, filepath.Base(p))
	}
	return p
}
