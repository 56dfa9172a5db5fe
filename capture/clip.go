package capture

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

const locatorPrefix = "blob:rekam/"

var ErrLocatorExpired = errors.New("clip locator expired")

// Artifact is one finalized recording. Data must not be modified after
// publication.
type Artifact struct {
	Data      []byte
	MediaType string
	Chunks    int
	Elapsed   int
}

func (a Artifact) Empty() bool { return len(a.Data) == 0 }

// ClipStore holds at most one artifact and the locator that refers to it.
type ClipStore struct {
	mu       sync.Mutex
	artifact Artifact
	locator  string
	present  bool
}

func NewClipStore() *ClipStore {
	return &ClipStore{}
}

// Set replaces the current artifact, invalidating the previous locator.
func (c *ClipStore) Set(a Artifact) string {
	loc := locatorPrefix + uuid.NewString()
	c.mu.Lock()
	c.artifact = a
	c.locator = loc
	c.present = true
	c.mu.Unlock()
	return loc
}

func (c *ClipStore) Clear() {
	c.mu.Lock()
	c.artifact = Artifact{}
	c.locator = ""
	c.present = false
	c.mu.Unlock()
}

// ClearIf clears the store only if locator is still current.
func (c *ClipStore) ClearIf(locator string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.present || c.locator != locator {
		return false
	}
	c.artifact = Artifact{}
	c.locator = ""
	c.present = false
	return true
}

func (c *ClipStore) Current() (Artifact, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact, c.locator, c.present
}

func (c *ClipStore) Open(locator string) (io.Reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.present || c.locator != locator {
		return nil, ErrLocatorExpired
	}
	return bytes.NewReader(c.artifact.Data), nil
}
