package memory

import (
	"testing"

	"renovo/internal/storage"
	"renovo/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}
