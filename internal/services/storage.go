package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"joblinker/api/internal/models"
)

// LocalScheme prefixes pointers to files kept under the upload directory.
const LocalScheme = "local://"

type StorageService interface {
	EnsureUploadDir() error
	Save(candidateID uuid.UUID, fileType models.FileType, data []byte) (string, error)
	Read(pointer string) ([]byte, error)
	Delete(pointer string) error
}

type storageService struct {
	uploadPath string
}

func NewStorageService(uploadPath string) StorageService {
	return &storageService{
		uploadPath: uploadPath,
	}
}

func (s *storageService) EnsureUploadDir() error {
	if err := os.MkdirAll(s.uploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	return nil
}

// Save writes the upload under a unique name and returns its local:// pointer.
func (s *storageService) Save(candidateID uuid.UUID, fileType models.FileType, data []byte) (string, error) {
	uniqueFilename := fmt.Sprintf("resume_%s_%s.%s", candidateID, uuid.New(), fileType)
	filePath := filepath.Join(s.uploadPath, uniqueFilename)

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return LocalScheme + uniqueFilename, nil
}

func (s *storageService) Read(pointer string) ([]byte, error) {
	filePath, err := s.resolve(pointer)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *storageService) Delete(pointer string) error {
	filePath, err := s.resolve(pointer)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *storageService) resolve(pointer string) (string, error) {
	name, ok := strings.CutPrefix(pointer, LocalScheme)
	if !ok {
		return "", fmt.Errorf("unsupported storage pointer %q", pointer)
	}

	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid storage pointer %q", pointer)
	}

	return filepath.Join(s.uploadPath, name), nil
}
