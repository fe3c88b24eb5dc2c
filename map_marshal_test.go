package plist

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func conversionDocument() []byte {
	return buildBplist("00", 0,
		[]byte{0xD2, 1, 2, 3, 4},
		asciiObj("name"),
		asciiObj("count"),
		asciiObj("unit"),
		intObj(42),
	)
}

func TestConvertToJSON(t *testing.T) {
	out, err := ConvertToJSON(conversionDocument())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err = json.Unmarshal(out, &decoded); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{"name": "unit", "count": float64(42)}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertToYAML(t *testing.T) {
	out, err := ConvertToYAML(conversionDocument())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "count: 42\nname: unit\n" {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDictionaryUnmarshalEmbedded(t *testing.T) {
	type base struct {
		Name string `plist:"name"`
	}
	type derived struct {
		base
		Count int `plist:"count"`
	}
	var out derived
	dict := Dictionary{"name": "unit", "count": uint64(42)}
	if err := dict.Unmarshal(&out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "unit" || out.Count != 42 {
		t.Errorf("got %+v", out)
	}
}
