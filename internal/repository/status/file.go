package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/keypad-controller/internal/config"
	"github.com/oshokin/keypad-controller/internal/domain/device"
)

// Repository defines persistence operations for the controller status.
type Repository interface {
	Load(ctx context.Context) (*device.Status, error)
	Save(ctx context.Context, status *device.Status) error
}

// FileRepository persists the controller status to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON status file.
	path string
	// mu protects concurrent access to the status file.
	mu sync.Mutex
}

// ErrNotFound is returned when the status file does not exist yet.
var ErrNotFound = errors.New("status not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the status from disk.
func (r *FileRepository) Load(_ context.Context) (*device.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read status file: %w", err)
	}

	var encoded structpb.Struct
	if err = protojson.Unmarshal(contents, &encoded); err != nil {
		return nil, fmt.Errorf("decode status file: %w", err)
	}

	return FromStruct(&encoded)
}

// Save writes the status to disk using JSON representation.
func (r *FileRepository) Save(_ context.Context, s *device.Status) error {
	encoded, err := ToStruct(s)
	if err != nil {
		return err
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
	}

	data, err := marshalOptions.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}

	return nil
}
