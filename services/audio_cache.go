package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// AudioCache keeps spoken renderings of the fixed interview questions on disk.
// Dynamic questions are never cached since they rarely repeat.
type AudioCache struct {
	cacheDir  string
	mutex     sync.RWMutex
	cacheable map[string]bool
}

func NewAudioCache(cacheDir string) *AudioCache {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		slog.Error("Failed to create cache directory", "dir", cacheDir, "error", err)
	}

	cacheable := make(map[string]bool)
	for _, question := range FixedQuestions() {
		cacheable[question] = true
	}
	return &AudioCache{
		cacheDir:  cacheDir,
		cacheable: cacheable,
	}
}

func (ac *AudioCache) cachePath(text, voiceID string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", text, voiceID)))
	return filepath.Join(ac.cacheDir, hex.EncodeToString(hash[:])+".mp3")
}

// Cacheable reports whether text is one of the fixed questions.
func (ac *AudioCache) Cacheable(text string) bool {
	return ac.cacheable[text]
}

func (ac *AudioCache) Get(ctx context.Context, text, voiceID string) ([]byte, bool) {
	if !ac.Cacheable(text) {
		return nil, false
	}

	ac.mutex.RLock()
	defer ac.mutex.RUnlock()

	path := ac.cachePath(text, voiceID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read cached audio", "path", path, "error", err)
		}
		return nil, false
	}
	slog.Debug("Question audio cache hit", "voice_id", voiceID)
	return data, true
}

func (ac *AudioCache) Set(ctx context.Context, text, voiceID string, audio []byte) error {
	if !ac.Cacheable(text) {
		return nil
	}

	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	path := ac.cachePath(text, voiceID)
	if err := os.WriteFile(path, audio, 0644); err != nil {
		slog.Error("Failed to write audio to cache", "path", path, "error", err)
		return err
	}
	slog.Info("Cached question audio", "voice_id", voiceID, "size", len(audio))
	return nil
}

// GetOrGenerate serves cached audio or calls generator and caches the result when allowed.
func (ac *AudioCache) GetOrGenerate(ctx context.Context, text, voiceID string, generator func() (io.ReadCloser, error)) ([]byte, error) {
	if cached, found := ac.Get(ctx, text, voiceID); found {
		return cached, nil
	}

	reader, err := generator()
	if err != nil {
		return nil, fmt.Errorf("failed to generate audio: %w", err)
	}
	defer reader.Close()

	audio, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if err := ac.Set(ctx, text, voiceID, audio); err != nil {
		slog.Warn("Failed to cache audio", "error", err)
	}
	return audio, nil
}
