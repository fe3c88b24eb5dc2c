package plist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type encoderConfig struct {
	Name    string   `plist:"name"`
	Port    uint16   `plist:"port"`
	Offset  int      `plist:"offset"`
	Debug   bool     `plist:"debug,omitempty"`
	Paths   []string `plist:"paths"`
	Comment string   `plist:"comment,omitempty"`
}

func TestEncodeXMLRoundTrip(t *testing.T) {
	in := encoderConfig{
		Name:   "unit",
		Port:   8080,
		Offset: -5,
		Paths:  []string{"/a", "/b"},
	}

	buf := &bytes.Buffer{}
	encoder := NewEncoder(buf)
	encoder.Indent("\t")
	if err := encoder.Encode(in); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<key>name</key>") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
	// omitempty fields with zero values stay out of the document.
	if strings.Contains(buf.String(), "debug") || strings.Contains(buf.String(), "comment") {
		t.Errorf("empty fields were encoded:\n%s", buf.String())
	}

	var out encoderConfig
	if _, err := Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestEncodeUIDRoundTrip(t *testing.T) {
	type ref struct {
		Target UID `plist:"target"`
	}
	buf := &bytes.Buffer{}
	if err := NewEncoder(buf).Encode(ref{Target: 12}); err != nil {
		t.Fatal(err)
	}
	// UIDs have no XML element of their own; they travel as CF$UID
	// dictionaries and must come back out as UIDs.
	if !strings.Contains(buf.String(), "CF$UID") {
		t.Fatalf("UID not bridged to CF$UID:\n%s", buf.String())
	}
	var out ref
	if _, err := Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Target != 12 {
		t.Errorf("Target = %v, want 12", out.Target)
	}
}

func TestEncodeBinaryUnsupported(t *testing.T) {
	err := NewEncoderForFormat(&bytes.Buffer{}, BinaryFormat).Encode(map[string]interface{}{"a": 1})
	if err == nil {
		t.Fatal("binary encoding did not fail")
	}
}
