// Package static maps request paths to files under a sandboxed root
// directory and builds responses from them.
//
// Design:
//   - The root is canonicalized once; every candidate path is canonicalized
//     (symlinks resolved) and must equal the root or sit below it
//   - Directories resolve to an index file under the same rule
//   - Error pages come from <root>/error/<status>.html, then from the
//     bundled assets, then an empty body
//   - Every failure becomes a response; nothing here returns an error to
//     the dispatcher
package static

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/harbor/internal/cache"
	"github.com/yourusername/harbor/pkg/harbor/http11"
	"github.com/yourusername/harbor/pkg/harbor/logging"
)

// DefaultIndexFile is served for directory requests.
const DefaultIndexFile = "index.html"

//go:embed assets
var bundled embed.FS

// Resolver errors
var (
	// ErrNoRoot indicates file lookups are disabled because the resolver has
	// no usable root directory.
	ErrNoRoot = errors.New("static: no root directory")

	// ErrOutsideRoot indicates the canonical path escapes the root.
	ErrOutsideRoot = errors.New("static: path outside root")

	// ErrNotRegular indicates the path is not a regular file.
	ErrNotRegular = errors.New("static: not a regular file")
)

// Resolver reads files from a root directory and bundled assets.
// It is safe for concurrent use.
type Resolver struct {
	root      string // canonical; "" disables file lookups
	assets    fs.FS
	indexFile string
	cache     *cache.Cache[string, cachedFile]
	logger    *logging.Logger
}

// cachedFile is a file body with the metadata it was read under.
type cachedFile struct {
	body    []byte
	size    int64
	modTime time.Time
}

func (f cachedFile) matches(info fs.FileInfo) bool {
	return f.size == info.Size() && f.modTime.Equal(info.ModTime())
}

// target is a resolved regular file inside the root.
type target struct {
	path  string // canonical
	info  fs.FileInfo
	index bool // a directory request was answered with the index file
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithAssets replaces the bundled fallback assets. Error pages are looked up
// as error/<status>.html inside fsys.
func WithAssets(fsys fs.FS) Option {
	return func(r *Resolver) {
		r.assets = fsys
	}
}

// WithIndexFile sets the file served for directory requests.
func WithIndexFile(name string) Option {
	return func(r *Resolver) {
		if name != "" {
			r.indexFile = name
		}
	}
}

// WithCache keeps up to maxEntries file bodies in memory for ttl
// (0 means until invalidated by Watch or evicted). An entry is only served
// while the file's size and modification time match those seen when it was
// read, so a stale body is never returned for a file that was rewritten.
func WithCache(maxEntries int, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = cache.New[string, cachedFile](cache.Config{
			MaxEntries: maxEntries,
			TTL:        ttl,
		})
	}
}

// WithLogger sets the logger for lookup diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Resolver rooted at root. An empty root, or one that cannot
// be canonicalized, disables file lookups; bundled assets still work.
func New(root string, opts ...Option) *Resolver {
	sub, err := fs.Sub(bundled, "assets")
	if err != nil {
		panic(err) // embedded directory always exists
	}

	r := &Resolver{
		assets:    sub,
		indexFile: DefaultIndexFile,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if root != "" {
		canon, err := canonical(root)
		if err != nil {
			r.logger.Warn("root directory unavailable, serving bundled assets only",
				logging.String("root", root), logging.Err(err))
		} else {
			r.root = canon
		}
	}
	return r
}

// Root returns the canonical root directory, or "" when file lookups are
// disabled.
func (r *Resolver) Root() string {
	return r.root
}

// FromFile returns a 200 response with the contents of name, resolved
// against the root, and a Content-Type from the extension of name. When a
// directory is answered with its index file, the index file's extension
// is used instead. Any failure yields Error(404).
func (r *Resolver) FromFile(name string) *http11.Response {
	if name == "" {
		return r.Error(404)
	}

	t, body, err := r.read(name)
	if err != nil {
		r.logger.Debug("file not found in root directory",
			logging.String("name", name), logging.Err(err))
		return r.Error(404)
	}

	typeName := name
	if t.index {
		typeName = t.path
	}
	return http11.NewBodyResponse(body).
		AddHeader(http11.HeaderContentType, http11.MimeType(typeName))
}

// FromResource returns a 200 response with the bundled asset name and a
// Content-Type from its extension. A leading '/' is ignored; names with
// '..' elements are rejected. Any failure yields Error(404).
func (r *Resolver) FromResource(name string) *http11.Response {
	body, err := r.readAsset(name)
	if err != nil {
		r.logger.Debug("resource not found",
			logging.String("name", name), logging.Err(err))
		return r.Error(404)
	}

	return http11.NewBodyResponse(body).
		AddHeader(http11.HeaderContentType, http11.MimeType(name))
}

// Error returns a response with the given status and an HTML error page:
// error/<status>.html from the root if present, else from the bundled
// assets, else an empty body.
func (r *Resolver) Error(status int) *http11.Response {
	name := "error/" + strconv.Itoa(status) + ".html"

	body, _, err := r.ReadFile(name)
	if err != nil {
		body, err = r.readAsset(name)
		if err != nil {
			r.logger.Debug("no error page", logging.Int("status", status))
			body = nil
		}
	}

	return http11.NewStatusResponse(status).
		AddHeader(http11.HeaderContentType, http11.MimeType(name)).
		SetBody(body)
}

// ReadFile resolves name against the root and returns the file contents and
// the canonical path that was read. Directories resolve to the index file.
// The returned slice is owned by the caller.
func (r *Resolver) ReadFile(name string) ([]byte, string, error) {
	t, body, err := r.read(name)
	if err != nil {
		return nil, "", err
	}
	return body, t.path, nil
}

func (r *Resolver) read(name string) (target, []byte, error) {
	t, err := r.resolve(name)
	if err != nil {
		return target{}, nil, err
	}

	if r.cache != nil {
		if f, err := r.cache.Get(t.path); err == nil {
			if f.matches(t.info) {
				return t, bytes.Clone(f.body), nil
			}
			r.cache.Delete(t.path)
		}
	}

	body, err := os.ReadFile(t.path)
	if err != nil {
		return target{}, nil, fmt.Errorf("static: read %s: %w", name, err)
	}

	if r.cache != nil {
		// keyed to the metadata from before the read: a write that lands
		// during or after it leaves a mismatch and forces a re-read
		r.cache.Set(t.path, cachedFile{
			body:    bytes.Clone(body),
			size:    t.info.Size(),
			modTime: t.info.ModTime(),
		})
	}
	return t, body, nil
}

// Close releases the file cache.
func (r *Resolver) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

// resolve maps name to a canonical regular file inside the root.
func (r *Resolver) resolve(name string) (target, error) {
	if r.root == "" {
		return target{}, ErrNoRoot
	}

	p, err := r.contained(filepath.Join(r.root, filepath.FromSlash(name)))
	if err != nil {
		return target{}, err
	}

	info, err := os.Stat(p)
	if err != nil {
		return target{}, fmt.Errorf("static: stat %s: %w", name, err)
	}
	index := info.IsDir()
	if index {
		if p, err = r.contained(filepath.Join(p, r.indexFile)); err != nil {
			return target{}, err
		}
		if info, err = os.Stat(p); err != nil {
			return target{}, fmt.Errorf("static: stat index of %s: %w", name, err)
		}
	}
	if !info.Mode().IsRegular() {
		return target{}, fmt.Errorf("%w: %s", ErrNotRegular, name)
	}
	return target{path: p, info: info, index: index}, nil
}

// contained canonicalizes p and checks it against the root.
func (r *Resolver) contained(p string) (string, error) {
	canon, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", fmt.Errorf("static: resolve: %w", err)
	}
	if !within(r.root, canon) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, canon)
	}
	return canon, nil
}

func (r *Resolver) readAsset(name string) ([]byte, error) {
	if r.assets == nil {
		return nil, fs.ErrNotExist
	}
	name = strings.TrimPrefix(name, "/")
	if !fs.ValidPath(name) || name == "." {
		return nil, fs.ErrInvalid
	}
	return fs.ReadFile(r.assets, name)
}

// within reports whether p equals root or lies below it. A bare prefix
// match is not enough: /srv/app-secrets is not inside /srv/app.
func within(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(canon)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("static: %s is not a directory", canon)
	}
	return canon, nil
}
