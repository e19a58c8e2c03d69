package system

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDefaultWorkers(t *testing.T) {
	if n := DefaultWorkers(); n < 1 {
		t.Errorf("expected at least one worker, got %d", n)
	}
}

func TestGrayPoolReturnsZeroedBuffers(t *testing.T) {
	rect := image.Rect(0, 0, 16, 8)

	img := GetGray(rect)
	if img.Rect != rect {
		t.Fatalf("unexpected bounds %v", img.Rect)
	}
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	PutGray(img)

	again := GetGray(rect)
	for i, v := range again.Pix {
		if v != 0 {
			t.Fatalf("pixel %d not cleared: %d", i, v)
		}
	}

	// Foreign buffers are dropped silently.
	PutGray(image.NewGray(image.Rect(0, 0, 3, 3)))
	PutGray(nil)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	log := NewLogger(&buf, "debug", "json")
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %s", log.GetLevel())
	}
	log.WithField("component", "test").Debug("hello")
	if !strings.Contains(buf.String(), `"component":"test"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	log = NewLogger(&buf, "nonsense", "text")
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("unknown level should fall back to info, got %s", log.GetLevel())
	}
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message leaked at info level: %q", buf.String())
	}
}
