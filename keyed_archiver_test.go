package plist

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	uuid "github.com/satori/go.uuid"
)

type archivedDevice struct {
	Name     string    `plist:"name"`
	Serial   int       `plist:"serial"`
	Token    []byte    `plist:"token"`
	Paired   time.Time `plist:"paired"`
	Hardware uuid.UUID `plist:"hardware"`
	Tags     []string  `plist:"tags"`
}

func sampleDevice() archivedDevice {
	return archivedDevice{
		Name:     "test-device",
		Serial:   77,
		Token:    []byte{0xDE, 0xAD, 0xBE, 0xEF},
		Paired:   time.Date(2020, 4, 1, 10, 30, 0, 0, time.UTC),
		Hardware: uuid.NewV5(uuid.NamespaceDNS, "device.test"),
		Tags:     []string{"usb", "trusted"},
	}
}

func TestArchiverRoundTrip(t *testing.T) {
	in := sampleDevice()

	archiver := &Archiver{}
	data, err := archiver.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	readback := &Archiver{}
	if err = readback.ReadFromData(data); err != nil {
		t.Fatal(err)
	}
	if readback.Archiver != "NSKeyedArchiver" {
		t.Errorf("$archiver = %q", readback.Archiver)
	}

	var out archivedDevice
	if err = readback.Unmarshal(&out); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-in +out):\n%s", diff)
	}
}

func TestArchiverObjectDedup(t *testing.T) {
	archiver := &Archiver{}
	type pair struct {
		A string `plist:"a"`
		B string `plist:"b"`
	}
	if _, err := archiver.Marshal(pair{A: "same", B: "same"}); err != nil {
		t.Fatal(err)
	}
	seen := 0
	for _, obj := range archiver.Objects {
		if s, ok := obj.(string); ok && s == "same" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("string archived %d times, want 1", seen)
	}
}

func TestArchiverReadFromZipData(t *testing.T) {
	archiver := &Archiver{}
	data, err := archiver.Marshal(sampleDevice())
	if err != nil {
		t.Fatal(err)
	}

	buf := &bytes.Buffer{}
	zw := gzip.NewWriter(buf)
	if _, err = zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}

	readback := &Archiver{}
	if err = readback.ReadFromZipData(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	var out archivedDevice
	if err = readback.Unmarshal(&out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "test-device" {
		t.Errorf("Name = %q", out.Name)
	}
}

func TestArchiverPrint(t *testing.T) {
	archiver := &Archiver{}
	data, err := archiver.Marshal(sampleDevice())
	if err != nil {
		t.Fatal(err)
	}
	readback := &Archiver{}
	if err = readback.ReadFromData(data); err != nil {
		t.Fatal(err)
	}
	dump := readback.Print()
	if !strings.Contains(dump, "test-device") {
		t.Errorf("dump does not mention the archived name:\n%s", dump)
	}
}
