// Package sandbox maps untrusted request paths onto a fixed root directory.
//
// Resolution runs two independent layers:
//
//  1. Structural: the raw path is split into components; "." and empty
//     components are dropped, ".." pops one accumulated component and fails
//     when nothing is left to pop. Nothing is clamped: "../x" at the root is
//     an escape, not "x".
//  2. Filesystem: the candidate is canonicalized (symbolic links followed)
//     and must still lie under the canonical root on whole path segments.
//     When the target does not exist yet, the deepest existing ancestor is
//     canonicalized instead and the missing components are re-appended.
//
// The result is a ResolvedPath, which only this package can construct.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// maxLinkHops bounds how many dangling symbolic links are followed while
// looking for the deepest existing ancestor. Matches Linux MAXSYMLINKS.
const maxLinkHops = 40

// Root is the canonical directory every request is confined to.
//
// A Root is immutable and safe for concurrent use.
type Root struct {
	path   string
	prefix string
}

// NewRoot canonicalizes dir and returns it as a Root.
//
// Parameters:
//   - dir: directory to serve; relative paths are made absolute against the
//     current working directory
//
// Returns an error if dir does not exist or is not a directory.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", dir, err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", dir, err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q: not a directory", dir)
	}

	prefix := canonical
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}

	return &Root{path: canonical, prefix: prefix}, nil
}

// Path returns the canonical absolute path of the root.
func (r *Root) Path() string {
	return r.path
}

// ResolvedPath is an absolute, canonical location proven to be inside a Root
// at the time it was resolved.
//
// The zero value is not a valid path. Values are point-in-time facts and
// must not be cached across requests.
type ResolvedPath struct {
	abs string
	rel string
}

// Abs returns the absolute host path.
func (p ResolvedPath) Abs() string {
	return p.abs
}

// Rel returns the path relative to the root using forward slashes, or "."
// for the root itself.
func (p ResolvedPath) Rel() string {
	return p.rel
}

// IsRoot reports whether p is the root directory.
func (p ResolvedPath) IsRoot() bool {
	return p.rel == "."
}

// IsZero reports whether p was never resolved.
func (p ResolvedPath) IsZero() bool {
	return p.abs == ""
}

// Base returns the final component, or "" for the root.
func (p ResolvedPath) Base() string {
	if p.IsRoot() {
		return ""
	}
	return filepath.Base(p.abs)
}

func (p ResolvedPath) String() string {
	return p.rel
}

// Resolve maps raw onto a location inside root.
//
// Parameters:
//   - root: the sandbox root
//   - raw: untrusted request path; "", "/" and "." all designate the root
//
// Returns:
//   - ResolvedPath on success
//   - *PathError of kind KindEscape, KindInvalid or KindIO otherwise
func Resolve(root *Root, raw string) (ResolvedPath, error) {
	// ========================================================================
	// Step 1: Reject bytes no filesystem accepts
	// ========================================================================

	if strings.IndexByte(raw, 0) >= 0 {
		return ResolvedPath{}, &PathError{Kind: KindInvalid, Path: raw}
	}

	// ========================================================================
	// Step 2: Structural normalization
	// ========================================================================

	segments, err := normalize(raw)
	if err != nil {
		return ResolvedPath{}, err
	}

	// ========================================================================
	// Step 3: Canonicalize against the filesystem and check containment
	// ========================================================================

	candidate := filepath.Join(append([]string{root.path}, segments...)...)
	return root.canonicalize(raw, candidate)
}

// Verify re-runs the filesystem layer on an already resolved path.
//
// A symbolic link swapped in after resolution is caught here; callers
// invoke it immediately before touching the filesystem.
func (r *Root) Verify(p ResolvedPath) error {
	if p.IsZero() {
		return &PathError{Kind: KindInvalid, Path: ""}
	}
	_, err := r.canonicalize(p.rel, p.abs)
	return err
}

// Contains reports whether abs lies under the root on whole path segments.
// abs must already be canonical.
func (r *Root) Contains(abs string) bool {
	if equalPath(abs, r.path) {
		return true
	}
	return len(abs) > len(r.prefix) && equalPath(abs[:len(r.prefix)], r.prefix)
}

// normalize splits raw into normal components, applying "." and "..".
func normalize(raw string) ([]string, error) {
	components := strings.FieldsFunc(raw, func(c rune) bool {
		return c == '/' || c == filepath.Separator
	})

	segments := make([]string, 0, len(components))
	for _, c := range components {
		switch c {
		case ".":
			continue
		case "..":
			if len(segments) == 0 {
				return nil, escapeError(raw)
			}
			segments = segments[:len(segments)-1]
		default:
			// Drive letters and UNC prefixes would re-anchor the join.
			if filepath.VolumeName(c) != "" || filepath.IsAbs(c) {
				return nil, escapeError(raw)
			}
			segments = append(segments, c)
		}
	}
	return segments, nil
}

func (r *Root) canonicalize(raw, candidate string) (ResolvedPath, error) {
	canonical, err := evalExisting(candidate)
	if err != nil {
		return ResolvedPath{}, ioError(raw, err)
	}

	if !r.Contains(canonical) {
		return ResolvedPath{}, escapeError(raw)
	}

	return r.newResolved(canonical), nil
}

func (r *Root) newResolved(abs string) ResolvedPath {
	if equalPath(abs, r.path) {
		return ResolvedPath{abs: r.path, rel: "."}
	}
	return ResolvedPath{abs: abs, rel: filepath.ToSlash(abs[len(r.prefix):])}
}

// evalExisting canonicalizes p, tolerating a missing tail.
//
// The deepest existing ancestor is canonicalized and the missing components
// are appended back. A dangling symbolic link on the way is followed
// textually so a link aimed outside the root is still detected.
func evalExisting(p string) (string, error) {
	var missing []string
	cur := p
	hops := 0

	for {
		canonical, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return joinMissing(canonical, missing), nil
		}
		if !isMissing(err) {
			return "", err
		}

		if target, lerr := os.Readlink(cur); lerr == nil {
			hops++
			if hops > maxLinkHops {
				return "", ErrTooManyLinks
			}
			if !filepath.IsAbs(target) {
				dir, derr := filepath.EvalSymlinks(filepath.Dir(cur))
				if derr != nil {
					return "", derr
				}
				target = filepath.Join(dir, target)
			}
			cur = filepath.Clean(target)
			continue
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		missing = append(missing, filepath.Base(cur))
		cur = parent
	}
}

// joinMissing appends components collected deepest-first.
func joinMissing(base string, missing []string) string {
	parts := make([]string, 0, len(missing)+1)
	parts = append(parts, base)
	for i := len(missing) - 1; i >= 0; i-- {
		parts = append(parts, missing[i])
	}
	return filepath.Join(parts...)
}

// isMissing treats "a component is a file" like "does not exist": the
// store reports the precise error when the path is used.
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
