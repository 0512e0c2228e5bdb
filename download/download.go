// Package download fetches corpus files into a cache directory.
//
// A file is downloaded only if it is not yet present in the cache directory: a file on disk is
// always considered valid, and removing it is the way to invalidate it.
package download

import (
	"net/url"
	"os"
	"path"

	"github.com/gomlx/gomlx/ml/data"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// FetchFn downloads url into filePath.
type FetchFn func(url, filePath string) error

// Cache of downloaded files.
type Cache struct {
	// Dir where files are stored. "~" is expanded to the user's home directory.
	Dir string

	// Fetch downloads missing files. Defaults to DefaultFetch.
	Fetch FetchFn

	// Transform, if set, is applied to the contents of newly downloaded files before they are
	// stored in the cache.
	Transform func(contents []byte) []byte
}

// DefaultFetch downloads with gomlx's data.Download, showing a progress bar.
func DefaultFetch(url, filePath string) error {
	_, err := data.Download(url, filePath, true)
	return err
}

// New creates a Cache in dir, using DefaultFetch.
func New(dir string) *Cache {
	return &Cache{Dir: dir, Fetch: DefaultFetch}
}

// FileName returns the name of the file used to cache fileURL: the last element of its path.
func FileName(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", fileURL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", errors.Errorf("url %q has no file name", fileURL)
	}
	return name, nil
}

// Path returns where fileURL is (or would be) cached.
func (c *Cache) Path(fileURL string) (string, error) {
	name, err := FileName(fileURL)
	if err != nil {
		return "", err
	}
	return path.Join(data.ReplaceTildeInDir(c.Dir), name), nil
}

// Get returns the path to the cached copy of fileURL, downloading it first if it is not present.
func (c *Cache) Get(fileURL string) (filePath string, err error) {
	filePath, err = c.Path(fileURL)
	if err != nil {
		return
	}
	if _, statErr := os.Stat(filePath); statErr == nil {
		return
	}
	if err = os.MkdirAll(path.Dir(filePath), 0o755); err != nil {
		err = errors.Wrapf(err, "failed to create cache directory for %q", filePath)
		return
	}

	fetch := c.Fetch
	if fetch == nil {
		fetch = DefaultFetch
	}
	klog.Infof("downloading %s", fileURL)
	tmpPath := filePath + ".downloading"
	if err = fetch(fileURL, tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		err = errors.WithMessagef(err, "failed to download %q", fileURL)
		return
	}
	if c.Transform != nil {
		var contents []byte
		contents, err = os.ReadFile(tmpPath)
		if err != nil {
			err = errors.Wrapf(err, "failed to read downloaded file %q", tmpPath)
			return
		}
		if err = os.WriteFile(tmpPath, c.Transform(contents), 0o644); err != nil {
			err = errors.Wrapf(err, "failed to write downloaded file %q", tmpPath)
			return
		}
	}
	if err = os.Rename(tmpPath, filePath); err != nil {
		err = errors.Wrapf(err, "failed to move downloaded file to %q", filePath)
		return
	}
	klog.Infof("completed %s", filePath)
	return
}
