package storebackends

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fileconv/logger"
	"fileconv/storage"
)

// Filesystem keeps objects as plain files below a base directory
type Filesystem struct {
	baseDir string
}

func NewFilesystem(baseDir string) (*Filesystem, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", baseDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	logger.Infof("Filesystem backend rooted at %s", abs)
	return &Filesystem{baseDir: abs}, nil
}

// path maps key onto the disk and refuses anything that escapes baseDir
func (b *Filesystem) path(key string) (string, error) {
	p := filepath.Join(b.baseDir, filepath.FromSlash(key))
	if p != b.baseDir && !strings.HasPrefix(p, b.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes store root", key)
	}
	return p, nil
}

func writeFileAtomic(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", p, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write to file %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (b *Filesystem) Put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	mp, err := b.path(sidecarKey(key))
	if err != nil {
		return err
	}
	raw, err := encodeMeta(meta)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(mp, raw); err != nil {
		return err
	}
	return writeFileAtomic(p, data)
}

func (b *Filesystem) Head(ctx context.Context, key string) (map[string]string, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	mp, err := b.path(sidecarKey(key))
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(mp)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeMeta(raw)
}

func (b *Filesystem) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	return data, err
}

func (b *Filesystem) Delete(ctx context.Context, key string) error {
	for _, k := range []string{key, sidecarKey(key)} {
		p, err := b.path(k)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (b *Filesystem) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	start, err := b.path(listDir(prefix))
	if err != nil {
		return nil, err
	}

	var objs []storage.ObjectInfo
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) || strings.HasPrefix(key, sidecarDir+"/") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objs = append(objs, storage.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortObjects(objs)
	return objs, nil
}
