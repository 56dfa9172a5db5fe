package submit

import "sync"

// Form holds the user-entered fields.
type Form struct {
	mu      sync.Mutex
	name    string
	address string
}

func (f *Form) SetName(v string) {
	f.mu.Lock()
	f.name = v
	f.mu.Unlock()
}

func (f *Form) SetAddress(v string) {
	f.mu.Lock()
	f.address = v
	f.mu.Unlock()
}

func (f *Form) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

func (f *Form) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address
}

func (f *Form) Clear() {
	f.mu.Lock()
	f.name = ""
	f.address = ""
	f.mu.Unlock()
}
