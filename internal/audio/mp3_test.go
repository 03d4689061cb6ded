package audio

import (
	"context"
	"errors"
	"testing"
)

func TestDecodeMP3_Empty(t *testing.T) {
	if _, err := DecodeMP3(context.Background(), nil); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}
