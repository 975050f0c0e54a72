package metrics

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecorder_FlushOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	rec := NewWithLogger("SkyboxViewer", &logger)
	rec.Dimension("slot", "skybox-0")
	rec.Metric("TextureLoadMs", 1234.5, UnitMilliseconds)
	rec.Metric("FramesRendered", 90, UnitCount)
	rec.Property("imageUrl", "https://x/img.jpg")
	rec.Flush()

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse metrics output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if doc["namespace"] != "SkyboxViewer" {
		t.Errorf("expected namespace SkyboxViewer, got %v", doc["namespace"])
	}
	dims, ok := doc["dimensions"].(map[string]interface{})
	if !ok || dims["slot"] != "skybox-0" {
		t.Errorf("expected slot dimension skybox-0, got %v", doc["dimensions"])
	}
	metrics, ok := doc["metrics"].(map[string]interface{})
	if !ok {
		t.Fatalf("metrics block missing: %v", doc)
	}
	load, ok := metrics["TextureLoadMs"].(map[string]interface{})
	if !ok || load["value"] != 1234.5 || load["unit"] != UnitMilliseconds {
		t.Errorf("unexpected TextureLoadMs entry: %v", metrics["TextureLoadMs"])
	}
	if doc["imageUrl"] != "https://x/img.jpg" {
		t.Errorf("expected imageUrl property, got %v", doc["imageUrl"])
	}
}

func TestRecorder_EmptyFlushIsNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	NewWithLogger("SkyboxViewer", &logger).Dimension("slot", "a").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output for recorder without metrics, got %q", buf.String())
	}
}

func TestRecorder_Count(t *testing.T) {
	rec := New("SkyboxViewer").Count("Unmounts")
	if def := rec.metrics["Unmounts"]; def.Value != 1 || def.Unit != UnitCount {
		t.Errorf("Count() recorded %+v", def)
	}
}
