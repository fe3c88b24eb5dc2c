package plist

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"reflect"
	"time"
)

// Set holds the members of a decoded binary property list set. Member
// order carries no meaning but is preserved as encoded.
type Set []interface{}

// A Decoder reads a property list document from an input stream. The
// format is detected from the document itself: input starting with the
// binary magic is decoded as a binary property list, anything else is
// handed to the XML parser. Decoded values are copies; they do not
// alias the input.
type Decoder struct {
	reader io.ReadSeeker
	format Format
}

//NewDecoder 创建解析器
func NewDecoder(r io.ReadSeeker) *Decoder {
	return &Decoder{reader: r, format: AutomaticFormat}
}

// Format returns the format of the last document decoded, or
// AutomaticFormat if none has been.
func (d *Decoder) Format() Format {
	return d.format
}

// Decode decodes the document into v: a *interface{}, a Dictionary or
// map[string]interface{}, or a pointer to a value assignable from the
// decoded shapes (structs are filled by their plist tags).
func (d *Decoder) Decode(v interface{}) error {
	if _, err := d.reader.Seek(0, io.SeekStart); err != nil {
		return err
	}
	data, err := ioutil.ReadAll(d.reader)
	if err != nil {
		return err
	}

	pval, format, err := decodeDocument(data)
	d.format = format
	if err != nil {
		return err
	}

	obj := newGeneralizer().value(pval)
	switch dst := v.(type) {
	case nil:
		return errors.New("plist: Decode of nil target")
	case *interface{}:
		*dst = obj
		return nil
	case Dictionary:
		return fillMap(obj, dst)
	case map[string]interface{}:
		return fillMap(obj, dst)
	}
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return errors.New("plist: Decode target must be a pointer or map")
	}
	return Dictionary{}.unmarshal(obj, val)
}

//Unmarshal 解析数据
func Unmarshal(data []byte, v interface{}) (Format, error) {
	d := NewDecoder(bytes.NewReader(data))
	err := d.Decode(v)
	return d.format, err
}

// decodeDocument parses a complete in-memory document, trying the
// binary format first and falling back to XML when the input is not a
// binary property list at all. Parse errors inside an identified
// format are returned as-is.
func decodeDocument(data []byte) (cfValue, Format, error) {
	pval, err := newBplistParser(data).parseDocument()
	if err == nil {
		return pval, BinaryFormat, nil
	}
	if _, invalid := err.(invalidPlistError); !invalid {
		return nil, BinaryFormat, err
	}

	pval, err = newXMLPlistParser(bytes.NewReader(data)).parseDocument()
	if err == nil {
		return pval, XMLFormat, nil
	}
	if _, invalid := err.(invalidPlistError); invalid {
		return nil, InvalidFormat, ErrUnrecognizedFormat
	}
	return nil, XMLFormat, err
}

func fillMap(obj interface{}, dst map[string]interface{}) error {
	dict, ok := obj.(map[string]interface{})
	if !ok {
		return errors.New("plist: document root is not a dictionary")
	}
	for k, v := range dict {
		dst[k] = v
	}
	return nil
}

// generalizer converts the internal value tree to plain Go values. The
// shared map keeps deduplicated containers shared: two references to
// one source object come out as the same slice or map.
type generalizer struct {
	shared map[cfValue]interface{}
}

func newGeneralizer() *generalizer {
	return &generalizer{shared: make(map[cfValue]interface{})}
}

func (g *generalizer) value(pval cfValue) interface{} {
	switch pval := pval.(type) {
	case cfString:
		return string(pval)
	case *cfNumber:
		if pval.signed {
			return int64(pval.value)
		}
		return pval.value
	case *cfReal:
		return pval.value
	case cfBoolean:
		return bool(pval)
	case cfData:
		return []byte(pval)
	case cfDate:
		return time.Time(pval)
	case cfUID:
		return UID(pval)
	case *cfArray:
		if shared, ok := g.shared[pval]; ok {
			return shared
		}
		arr := make([]interface{}, len(pval.values))
		g.shared[pval] = arr
		for i, v := range pval.values {
			arr[i] = g.value(v)
		}
		return arr
	case *cfSet:
		if shared, ok := g.shared[pval]; ok {
			return shared
		}
		set := make(Set, len(pval.values))
		g.shared[pval] = set
		for i, v := range pval.values {
			set[i] = g.value(v)
		}
		return set
	case *cfDictionary:
		if shared, ok := g.shared[pval]; ok {
			return shared
		}
		dict := make(map[string]interface{}, len(pval.keys))
		g.shared[pval] = dict
		for i, k := range pval.keys {
			dict[k] = g.value(pval.values[i])
		}
		return dict
	}
	return nil
}
