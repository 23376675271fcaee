package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrNotFound is returned when none of the resolution strategies could
// locate the named descriptor.
var ErrNotFound = errors.New("config: descriptor not found")

// Resolver loads a stack descriptor by name, trying in order: a local
// file path, an http(s) URL, then a bundled resource — the Go stand-in
// for the original's "classpath resource" since Go binaries have no
// classpath, only whatever the caller embeds via embed.FS.
type Resolver struct {
	Resources  fs.FS
	HTTPClient *http.Client
}

// NewResolver builds a Resolver backed by resources for the
// classpath-resource fallback.
func NewResolver(resources fs.FS) *Resolver {
	return &Resolver{
		Resources:  resources,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Load resolves ref (a file path, URL, or bundled resource name) to
// bytes and parses them as YAML if ref ends in .yaml/.yml, or as the
// flat string form otherwise.
func (r *Resolver) Load(ref string) (*StackDescriptor, error) {
	data, err := r.resolve(ref)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") {
		return ParseYAML(data)
	}
	return ParseFlatString(string(data))
}

func (r *Resolver) resolve(ref string) ([]byte, error) {
	if data, err := os.ReadFile(ref); err == nil {
		return data, nil
	}

	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		resp, err := r.HTTPClient.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("config: fetching %s: %w", ref, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("config: fetching %s: status %d", ref, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	if r.Resources != nil {
		data, err := fs.ReadFile(r.Resources, ref)
		if err == nil {
			return data, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}
