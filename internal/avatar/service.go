// Package avatar replaces a user's avatar with an uploaded image normalized
// to a fixed square and served from the public avatar directory.
package avatar

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-contacts-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-contacts-go/pkg/utilities"
)

const (
	Size = 250
	// URLPrefix is where the router serves AvatarDir.
	URLPrefix = "/avatars/"
)

// UserUpdater is the single user mutation this package may perform.
type UserUpdater interface {
	SetAvatarURL(ctx context.Context, id int64, url string) (*entity.User, error)
}

type Service struct {
	tmpDir    string
	avatarDir string
	users     UserUpdater
	now       func() time.Time
	suffix    func() string
}

func NewService(tmpDir, avatarDir string, users UserUpdater) *Service {
	return &Service{
		tmpDir:    tmpDir,
		avatarDir: avatarDir,
		users:     users,
		now:       time.Now,
		suffix:    utilities.NewKSUID,
	}
}

// Replace stages src, resizes it, moves it into the avatar directory and
// points the user's avatar URL at it. Staged files left behind by a
// failure are not removed.
func (s *Service) Replace(ctx context.Context, u *entity.User, src io.Reader, originalName string) (*entity.User, error) {
	staged, err := s.stage(src, originalName)
	if err != nil {
		return nil, err
	}
	if err := ResizeFile(staged, Size); err != nil {
		return nil, err
	}

	name := filepath.Base(staged)
	if err := os.MkdirAll(s.avatarDir, 0o755); err != nil {
		return nil, fmt.Errorf("avatar dir: %w", err)
	}
	if err := os.Rename(staged, filepath.Join(s.avatarDir, name)); err != nil {
		return nil, fmt.Errorf("move avatar: %w", err)
	}

	updated, err := s.users.SetAvatarURL(ctx, u.ID, path.Join(URLPrefix, name))
	if err != nil {
		return nil, fmt.Errorf("save avatar url: %w", err)
	}
	return updated, nil
}

// stage copies the upload to tmpDir as avatar-<unix ms>-<ksuid><ext>.
func (s *Service) stage(src io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(s.tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("tmp dir: %w", err)
	}
	name := fmt.Sprintf("avatar-%d-%s%s", s.now().UnixMilli(), s.suffix(), cleanExt(originalName))
	p := filepath.Join(s.tmpDir, name)

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return p, nil
}

// cleanExt keeps the original extension only when it is short and alphanumeric.
func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
