package thread

import (
	"errors"
	"testing"
)

func TestCall(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		err  error
	}{
		{name: "ok"},
		{name: "error", err: boom},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			called := false
			var err error
			Run(func() {
				err = Call(func() error { called = true; return test.err })
			})
			if !called {
				t.Errorf("not called")
			}
			if !errors.Is(err, test.err) {
				t.Errorf("err = %v, want %v", err, test.err)
			}
		})
	}
}
