// Package storage keeps user avatars on the local filesystem.  Files are
// served statically, so the returned URL is the public base URL joined
// with the file name.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MaxAvatarBytes caps the decoded image size.
const MaxAvatarBytes = 2 << 20

var (
	ErrAvatarTooLarge   = errors.New("avatar exceeds 2 MiB")
	ErrAvatarFormat     = errors.New("avatar must be a png, jpeg or webp image")
	ErrAvatarEncoding   = errors.New("avatar is not valid base64")
	errUnsafeAvatarName = errors.New("invalid avatar owner id")
)

var avatarExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// AvatarStore writes avatars under dir.
type AvatarStore struct {
	dir     string
	baseURL string
}

func NewAvatarStore(dir, baseURL string) (*AvatarStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &AvatarStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// decode accepts raw base64 or a data URL ("data:image/png;base64,...").
func decode(b64 string) ([]byte, error) {
	if i := strings.Index(b64, ","); strings.HasPrefix(b64, "data:") && i > 0 {
		b64 = b64[i+1:]
	}
	b64 = strings.TrimSpace(b64)
	if base64.StdEncoding.DecodedLen(len(b64)) > MaxAvatarBytes+3 {
		return nil, ErrAvatarTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, ErrAvatarEncoding
	}
	if len(data) > MaxAvatarBytes {
		return nil, ErrAvatarTooLarge
	}
	return data, nil
}

// Save stores the image for userID, replacing any previous avatar, and
// returns its public URL.
func (s *AvatarStore) Save(_ context.Context, userID, b64 string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, `/\.`) {
		return "", errUnsafeAvatarName
	}
	data, err := decode(b64)
	if err != nil {
		return "", err
	}
	ext, ok := avatarExt[http.DetectContentType(data)]
	if !ok {
		return "", ErrAvatarFormat
	}
	s.removeAll(userID)

	name := userID + ext
	tmp, err := os.CreateTemp(s.dir, name+".*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return s.baseURL + "/" + name, nil
}

// Delete removes the user's avatar if there is one.
func (s *AvatarStore) Delete(_ context.Context, userID string) error {
	if userID == "" || strings.ContainsAny(userID, `/\.`) {
		return errUnsafeAvatarName
	}
	s.removeAll(userID)
	return nil
}

func (s *AvatarStore) removeAll(userID string) {
	for _, ext := range avatarExt {
		_ = os.Remove(filepath.Join(s.dir, userID+ext))
	}
}
