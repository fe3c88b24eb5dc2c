package plist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func asciiObj(s string) []byte {
	return append([]byte{bpTagASCIIString | byte(len(s))}, s...)
}

func intObj(v uint8) []byte {
	return []byte{bpTagInteger, v}
}

func realObj(f float64) []byte {
	obj := make([]byte, 9)
	obj[0] = 0x23
	binary.BigEndian.PutUint64(obj[1:], math.Float64bits(f))
	return obj
}

func dateObj(secs float64) []byte {
	obj := make([]byte, 9)
	obj[0] = 0x33
	binary.BigEndian.PutUint64(obj[1:], math.Float64bits(secs))
	return obj
}

const equalityXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>name</key><string>hello</string>
	<key>count</key><integer>42</integer>
	<key>pi</key><real>3.25</real>
	<key>ok</key><true/>
	<key>blob</key><data>aGVsbG8=</data>
	<key>when</key><date>2001-01-01T00:01:30Z</date>
	<key>items</key>
	<array><integer>1</integer><integer>2</integer></array>
</dict>
</plist>`

func equalityBinary() []byte {
	return buildBplist("00", 0,
		[]byte{0xD7,
			1, 2, 3, 4, 5, 6, 7, // key refs
			8, 9, 10, 11, 12, 13, 14, // value refs
		},
		asciiObj("name"),
		asciiObj("count"),
		asciiObj("pi"),
		asciiObj("ok"),
		asciiObj("blob"),
		asciiObj("when"),
		asciiObj("items"),
		asciiObj("hello"),
		intObj(42),
		realObj(3.25),
		[]byte{bpTagBoolTrue},
		append([]byte{0x45}, "hello"...),
		dateObj(90),
		[]byte{0xA2, 15, 16},
		intObj(1),
		intObj(2),
	)
}

// The binary and XML paths must produce structurally equal trees for
// the same logical document.
func TestBinaryXMLEquality(t *testing.T) {
	var xmlVal, binVal interface{}

	format, err := Unmarshal([]byte(equalityXML), &xmlVal)
	if err != nil {
		t.Fatalf("XML decode: %v", err)
	}
	if format != XMLFormat {
		t.Errorf("XML document detected as %s", formatNames[format])
	}

	format, err = Unmarshal(equalityBinary(), &binVal)
	if err != nil {
		t.Fatalf("binary decode: %v", err)
	}
	if format != BinaryFormat {
		t.Errorf("binary document detected as %s", formatNames[format])
	}

	if diff := cmp.Diff(xmlVal, binVal); diff != "" {
		t.Errorf("trees differ (-xml +binary):\n%s", diff)
	}
}

func TestDecodeIntoMap(t *testing.T) {
	dst := make(map[string]interface{})
	decoder := NewDecoder(bytes.NewReader(equalityBinary()))
	if err := decoder.Decode(dst); err != nil {
		t.Fatal(err)
	}
	if dst["name"] != "hello" || dst["count"] != uint64(42) {
		t.Errorf("unexpected contents: %v", dst)
	}
	if decoder.Format() != BinaryFormat {
		t.Errorf("Format() = %v", decoder.Format())
	}
}

func TestDecodeIntoStruct(t *testing.T) {
	type document struct {
		Name  string   `plist:"name"`
		Count uint32   `plist:"count"`
		Pi    float64  `plist:"pi"`
		OK    bool     `plist:"ok"`
		Blob  []byte   `plist:"blob"`
		Items []uint64 `plist:"items"`
	}
	var doc document
	if _, err := Unmarshal(equalityBinary(), &doc); err != nil {
		t.Fatal(err)
	}
	want := document{
		Name:  "hello",
		Count: 42,
		Pi:    3.25,
		OK:    true,
		Blob:  []byte("hello"),
		Items: []uint64{1, 2},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeUnrecognizedFormat(t *testing.T) {
	var v interface{}
	format, err := Unmarshal([]byte("neither binary nor xml"), &v)
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Errorf("got %v, want ErrUnrecognizedFormat", err)
	}
	if format != InvalidFormat {
		t.Errorf("format = %v, want InvalidFormat", format)
	}
}

// A damaged binary document must not fall through to the XML parser:
// the format was identified, the document is just bad.
func TestDecodeDamagedBinaryDoesNotFallBack(t *testing.T) {
	doc := buildBplist("00", 0, []byte{0xE0})
	var v interface{}
	_, err := Unmarshal(doc, &v)
	if !errors.Is(err, ErrUnrecognizedMarker) {
		t.Errorf("got %v, want ErrUnrecognizedMarker", err)
	}
}

func TestUnmarshalTruncatedTail(t *testing.T) {
	doc := equalityBinary()
	for cut := 0; cut < len(doc); cut++ {
		var v interface{}
		Unmarshal(doc[:cut], &v) // must not panic
	}
}
