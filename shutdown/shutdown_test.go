package shutdown

import (
	"context"
	"os"
	"testing"
)

func TestContextCancelsWithParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := Context(parent)
	defer cancel()

	cancelParent()
	<-ctx.Done()
	if ctx.Err() == nil {
		t.Error("context should report an error once done")
	}
}

func TestSignalsIncludeInterrupt(t *testing.T) {
	for _, s := range signals {
		if s == os.Interrupt {
			return
		}
	}
	t.Errorf("signals %v missing os.Interrupt", signals)
}
