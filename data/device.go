package data

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

type deviceFile struct {
	ID string `json:"id"`
}

// Device is the persistent identity of one installation. Each handle caches
// the identifier of its own directory, so bridges with separate data dirs
// keep separate identities.
type Device struct {
	path string

	mu sync.Mutex
	id string
}

func NewDevice(dir string) *Device {
	return &Device{path: filepath.Join(dir, "device.json")}
}

// ID returns the stable identifier, generating and persisting one on first
// use.
func (d *Device) ID() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.id != "" {
		return d.id, nil
	}

	var file deviceFile
	if err := loadJSON(d.path, &file); err != nil {
		return "", err
	}
	if file.ID == "" {
		file.ID = uuid.New().String()
		if err := saveJSON(d.path, &file); err != nil {
			return "", err
		}
	}
	d.id = file.ID
	return d.id, nil
}
