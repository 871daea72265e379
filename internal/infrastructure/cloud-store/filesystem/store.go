package cloudfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/keeper/internal/core/ports"
)

const (
	ProviderName = "filesystem"

	dirPerm  = 0700
	filePerm = 0600
)

var (
	ErrMissingRootDir   = fmt.Errorf("missing cloud root directory")
	ErrInvalidAccountID = fmt.Errorf("invalid account id")
	ErrInvalidPath      = fmt.Errorf("invalid path")
)

type storeFactory struct {
	rootDir string
}

// NewStoreFactory returns a factory of stores backed by a synced folder, ie.
// the local directory mirrored by the cloud provider of the device.
// Each account gets its own subdirectory of rootDir.
func NewStoreFactory(rootDir string) (ports.CloudObjectStoreFactory, error) {
	if rootDir == "" {
		return nil, ErrMissingRootDir
	}
	return &storeFactory{filepath.Clean(rootDir)}, nil
}

func (f *storeFactory) Provider() string {
	return ProviderName
}

func (f *storeFactory) NewStore(
	_ context.Context, cred *ports.CloudCredential,
) (ports.CloudObjectStore, error) {
	if cred == nil {
		return nil, ErrInvalidAccountID
	}
	if err := validateAccountID(cred.AccountID); err != nil {
		return nil, err
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("cloud filesystem: %s", format)
		log.Debugf(format, a...)
	}
	return &store{
		rootDir: filepath.Join(f.rootDir, cred.AccountID),
		log:     logFn,
	}, nil
}

type store struct {
	rootDir string

	log func(format string, a ...interface{})
}

func (s *store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(s.rootDir, dirPerm)
}

func (s *store) Exists(ctx context.Context, p string) (bool, error) {
	fullPath, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *store) Read(ctx context.Context, p string) ([]byte, error) {
	fullPath, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

// Write stores data in a temp file in the same directory, then renames it to
// the target one. Readers never see a partially written file.
func (s *store) Write(ctx context.Context, p string, data []byte) error {
	fullPath, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("unable to write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("unable to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("unable to close temp file: %w", err)
	}
	if err := os.Chmod(tempFileName, filePerm); err != nil {
		return err
	}

	// Last chance to abort before the new content becomes visible.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tempFileName, fullPath); err != nil {
		return fmt.Errorf("unable to swap files: %w", err)
	}

	s.log("written %s", p)
	return nil
}

func (s *store) Mkdir(ctx context.Context, p string) error {
	fullPath, err := s.resolve(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(fullPath, dirPerm)
}

// Sync re-stats the path so that providers downloading on access (ie.
// ubiquity containers) get the chance to fetch it. Best-effort.
func (s *store) Sync(ctx context.Context, p string) error {
	fullPath, err := s.resolve(p)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *store) Close() error {
	return nil
}

// resolve returns the absolute path of p inside the account namespace. The
// path is cleaned as if rooted, so it can't escape the namespace.
func (s *store) resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", ErrInvalidPath
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+p), "/")
	if cleaned == "" {
		return s.rootDir, nil
	}
	return filepath.Join(s.rootDir, filepath.FromSlash(cleaned)), nil
}

func validateAccountID(id string) error {
	if id == "" || id == "." || id == ".." ||
		strings.ContainsAny(id, `/\`) {
		return ErrInvalidAccountID
	}
	return nil
}
