package plist

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"time"
)

//Encoder 生成器
type Encoder struct {
	writer io.Writer
	format Format
	indent string
}

//NewEncoder 创建XML生成器
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderForFormat(w, XMLFormat)
}

//NewEncoderForFormat 创建生成器
func NewEncoderForFormat(w io.Writer, format Format) *Encoder {
	return &Encoder{writer: w, format: format}
}

// Indent sets the per-level indentation of the generated document.
func (p *Encoder) Indent(i string) {
	p.indent = i
}

// Encode writes v as a property list document. Only the XML format is
// generated; binary property list generation is not implemented.
func (p *Encoder) Encode(v interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			err = r.(error)
		}
	}()
	switch p.format {
	case XMLFormat, AutomaticFormat:
	case BinaryFormat:
		return errors.New("plist: binary property list generation is not supported")
	default:
		return fmt.Errorf("plist: cannot encode %s property list", formatNames[p.format])
	}

	pval := marshalValue(reflect.ValueOf(v))
	g := newXMLPlistGenerator(p.writer)
	g.Indent(p.indent)
	g.generateDocument(pval)
	return nil
}

var (
	marshalDateType = reflect.TypeOf((*time.Time)(nil)).Elem()
	marshalUIDType  = reflect.TypeOf(UID(0))
)

func marshalValue(val reflect.Value) cfValue {
	if !val.IsValid() {
		return nil
	}
	if val.Kind() == reflect.Interface || val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		return marshalValue(val.Elem())
	}

	switch val.Type() {
	case marshalDateType:
		return cfDate(val.Interface().(time.Time))
	case marshalUIDType:
		return cfUID(val.Interface().(UID))
	}

	switch val.Kind() {
	case reflect.String:
		return cfString(val.String())
	case reflect.Bool:
		return cfBoolean(val.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &cfNumber{signed: true, value: uint64(val.Int())}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &cfNumber{signed: false, value: val.Uint()}
	case reflect.Float32:
		return &cfReal{wide: false, value: val.Float()}
	case reflect.Float64:
		return &cfReal{wide: true, value: val.Float()}
	case reflect.Slice, reflect.Array:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			data := make([]byte, val.Len())
			reflect.Copy(reflect.ValueOf(data), val)
			return cfData(data)
		}
		arr := &cfArray{values: make([]cfValue, val.Len())}
		for i := range arr.values {
			arr.values[i] = marshalValue(val.Index(i))
		}
		return arr
	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String {
			panic(fmt.Errorf("plist: cannot encode map keyed by %v", val.Type().Key()))
		}
		dict := &cfDictionary{}
		for _, key := range val.MapKeys() {
			dict.keys = append(dict.keys, key.String())
			dict.values = append(dict.values, marshalValue(val.MapIndex(key)))
		}
		return dict
	case reflect.Struct:
		tinfo, err := GetTypeInfo(val.Type())
		if err != nil {
			panic(err)
		}
		dict := &cfDictionary{}
		for _, finfo := range tinfo.Fields {
			fval := finfo.Value(val)
			if finfo.OmitEmpty && isEmptyValue(fval) {
				continue
			}
			dict.keys = append(dict.keys, finfo.Name)
			dict.values = append(dict.values, marshalValue(fval))
		}
		return dict
	}
	panic(fmt.Errorf("plist: cannot encode value of type %v", val.Type()))
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}
