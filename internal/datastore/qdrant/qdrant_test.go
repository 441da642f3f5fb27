package qdrant

import (
	"context"
	"testing"
)

func TestNew_RequiresCollection(t *testing.T) {
	t.Parallel()
	if _, err := New(context.Background(), &Config{Host: "localhost"}); err == nil {
		t.Fatal("expected error when collection is unset")
	}
}
