package processing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaStore re-hosts generated assets under a URL we control, so playback
// never depends on provider URLs that may expire.
type MediaStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

func NewMediaStore(dir, baseURL string, logger *zap.Logger) (*MediaStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", dir, err)
	}
	return &MediaStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Save writes the asset to disk under a fresh name and returns its public URL.
func (s *MediaStore) Save(data []byte, ext string) (string, error) {
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	s.logger.Debug("stored media asset",
		zap.String("file", name),
		zap.Int("size_bytes", len(data)))
	return s.baseURL + "/" + name, nil
}
