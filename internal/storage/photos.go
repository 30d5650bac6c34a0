// Package storage keeps uploaded member photos on the local filesystem. The
// upload directory is served as static files under /uploads/, so this backend
// suits single-node deployments only.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// URLPrefix is the public path under which the upload directory is served.
const URLPrefix = "/uploads"

const membersDir = "members"

var photoExtensions = []string{".jpg", ".png", ".webp"}

// PhotoStore writes member photos below a base directory, one file per member.
type PhotoStore struct {
	basePath string
}

// NewPhotoStore creates basePath if needed and returns a store rooted there.
func NewPhotoStore(basePath string) (*PhotoStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, membersDir), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &PhotoStore{basePath: basePath}, nil
}

// BasePath returns the directory served under URLPrefix.
func (s *PhotoStore) BasePath() string {
	return s.basePath
}

// SavePhoto stores data as members/<id><extension>, replacing any previous
// photo of the member, and returns its public URL.
func (s *PhotoStore) SavePhoto(ctx context.Context, memberID uint, extension string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := strconv.FormatUint(uint64(memberID), 10)
	dir := filepath.Join(s.basePath, membersDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	target := filepath.Join(dir, name+extension)
	tmp, err := os.CreateTemp(dir, name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store photo: %w", err)
	}

	for _, ext := range photoExtensions {
		if ext == extension {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name+ext)); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to remove previous photo: %w", err)
		}
	}

	return URLPrefix + "/" + membersDir + "/" + name + extension, nil
}
