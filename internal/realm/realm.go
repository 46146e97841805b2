package realm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/backupctl/internal/storage"
	"github.com/rs/zerolog/log"
)

// Realm is a named collection of backups sharing a key prefix, a name filter
// and a storage backend.
type Realm struct {
	Name string
	// Prefix is prepended to uploaded file names and scopes listing.
	Prefix string
	// Contains must appear in a file name or object key for it to belong to the realm.
	Contains  string
	Transport Transport
}

// Stat is the aggregate state of a realm's backups.
type Stat struct {
	TotalSize  int64     `json:"total_size"`
	TotalCount uint32    `json:"total_count"`
	Latest     time.Time `json:"latest"`
}

// Push uploads the local file to the realm under Prefix + its base name and
// returns the number of bytes uploaded.
func (r *Realm) Push(ctx context.Context, localPath string) (int64, error) {
	name := filepath.Base(localPath)
	if !strings.Contains(name, r.Contains) {
		return 0, &ValidationError{
			Realm:  r.Name,
			Name:   name,
			Reason: fmt.Sprintf("file is expected to contain %q to fit the realm", r.Contains),
		}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return 0, &IOError{Path: localPath, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, &IOError{Path: localPath, Err: err}
	}
	if !info.Mode().IsRegular() {
		return 0, &IOError{Path: localPath, Err: fmt.Errorf("not a regular file (%s)", info.Mode().Type())}
	}

	store, err := r.open()
	if err != nil {
		return 0, err
	}

	key := r.Prefix + name
	n, err := store.PutObject(ctx, key, f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("realm %s: push %s: %w", r.Name, key, err)
	}

	log.Info().Str("realm", r.Name).Str("key", key).Int64("size", n).Msg("backup pushed")
	return n, nil
}

// Pull downloads the last matching object in listing order into destDir and
// returns the local path. Listing order is whatever the backend returns, which
// for S3 is lexical key order rather than upload time.
func (r *Realm) Pull(ctx context.Context, destDir string) (string, error) {
	store, objects, err := r.matching(ctx)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 {
		return "", r.noBackups()
	}
	return r.download(ctx, store, objects[len(objects)-1].Key, destDir)
}

// PullNewest downloads the matching object with the most recent modification
// time into destDir and returns the local path.
func (r *Realm) PullNewest(ctx context.Context, destDir string) (string, error) {
	newest, err := r.Latest(ctx)
	if err != nil {
		return "", err
	}
	store, err := r.open()
	if err != nil {
		return "", err
	}
	return r.download(ctx, store, newest.Key, destDir)
}

// Latest returns the matching object with the most recent modification time.
func (r *Realm) Latest(ctx context.Context) (storage.ObjectInfo, error) {
	_, objects, err := r.matching(ctx)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	newest, ok := newestObject(objects)
	if !ok {
		return storage.ObjectInfo{}, r.noBackups()
	}
	return newest, nil
}

// Stat totals size and count of the matching objects and finds the most
// recent modification time among them.
func (r *Realm) Stat(ctx context.Context) (Stat, error) {
	_, objects, err := r.matching(ctx)
	if err != nil {
		return Stat{}, err
	}

	var stat Stat
	for _, obj := range objects {
		stat.TotalSize += obj.Size
		stat.TotalCount++
		if obj.LastModified.After(stat.Latest) {
			stat.Latest = obj.LastModified
		}
	}
	return stat, nil
}

func (r *Realm) open() (storage.ObjectStorage, error) {
	if r.Transport == nil {
		return nil, &UnsupportedTransportError{Kind: ""}
	}
	store, err := r.Transport.Open()
	if err != nil {
		return nil, fmt.Errorf("realm %s: %w", r.Name, err)
	}
	return store, nil
}

// matching lists the realm prefix and keeps the objects whose key contains
// the realm filter, preserving listing order.
func (r *Realm) matching(ctx context.Context) (storage.ObjectStorage, []storage.ObjectInfo, error) {
	store, err := r.open()
	if err != nil {
		return nil, nil, err
	}

	objects, err := store.ListObjects(ctx, r.Prefix)
	if err != nil {
		return nil, nil, fmt.Errorf("realm %s: list %q: %w", r.Name, r.Prefix, err)
	}

	matched := make([]storage.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if strings.Contains(obj.Key, r.Contains) {
			matched = append(matched, obj)
		}
	}
	return store, matched, nil
}

func (r *Realm) download(ctx context.Context, store storage.ObjectStorage, key, destDir string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", &ValidationError{Realm: r.Name, Name: key, Reason: "key escapes the exchange directory"}
	}

	dest := filepath.Join(destDir, rel)
	n, err := store.DownloadObject(ctx, key, dest)
	if err != nil {
		return "", fmt.Errorf("realm %s: pull %s: %w", r.Name, key, err)
	}

	log.Info().Str("realm", r.Name).Str("key", key).Str("path", dest).Int64("size", n).Msg("backup pulled")
	return dest, nil
}

func (r *Realm) noBackups() error {
	return &NoBackupsError{Realm: r.Name, Prefix: r.Prefix, Contains: r.Contains}
}

// newestObject picks the latest modification time; on ties the later entry wins.
func newestObject(objects []storage.ObjectInfo) (storage.ObjectInfo, bool) {
	if len(objects) == 0 {
		return storage.ObjectInfo{}, false
	}
	newest := objects[0]
	for _, obj := range objects[1:] {
		if !obj.LastModified.Before(newest.LastModified) {
			newest = obj
		}
	}
	return newest, true
}
