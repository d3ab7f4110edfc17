package transfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hwuu/pftp/internal/transfer"
)

func TestMapPath(t *testing.T) {
	tests := []struct {
		name       string
		local      string
		inputRoot  string
		outputRoot string
		want       string
	}{
		{"nested", "/data/in/a/b.txt", "/data/in", "/remote/out", "/remote/out/a/b.txt"},
		{"top level", "/data/in/x.txt", "/data/in", "/remote/out", "/remote/out/x.txt"},
		{"trailing slash on roots", "/data/in/x.txt", "/data/in/", "/remote/out/", "/remote/out/x.txt"},
		{"relative output root", "/data/in/sub/y.txt", "/data/in", "releases", "releases/sub/y.txt"},
		{"empty output root", "/data/in/sub/y.txt", "/data/in", "", "sub/y.txt"},
		{"unclean local path", "/data/in/./a//b.txt", "/data/in", "/out", "/out/a/b.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transfer.MapPath(tt.local, tt.inputRoot, tt.outputRoot))
		})
	}
}

func TestMapPath_Deterministic(t *testing.T) {
	a := transfer.MapPath("/data/in/a/b.txt", "/data/in", "/remote/out")
	b := transfer.MapPath("/data/in/a/b.txt", "/data/in", "/remote/out")
	assert.Equal(t, a, b)
}
