package hotkey

import "sync"

type FakeHotkey struct {
	keydown     chan struct{}
	registerErr error

	mu           sync.Mutex
	unregistered chan struct{}
	once         sync.Once
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		keydown:      make(chan struct{}, 1),
		unregistered: make(chan struct{}),
	}
}

// FailRegister makes Register return err.
func (f *FakeHotkey) FailRegister(err error) {
	f.mu.Lock()
	f.registerErr = err
	f.mu.Unlock()
}

func (f *FakeHotkey) Register() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerErr
}

func (f *FakeHotkey) Unregister() {
	f.once.Do(func() { close(f.unregistered) })
}

func (f *FakeHotkey) Keydown() <-chan struct{} { return f.keydown }

func (f *FakeHotkey) SimKeydown() { f.keydown <- struct{}{} }

// Unregistered is closed once Unregister has run.
func (f *FakeHotkey) Unregistered() <-chan struct{} { return f.unregistered }
