// Package plist decodes Apple property list documents, in both the
// XML and binary (bplist) forms, into generic Go values.
package plist

import (
	"sort"
	"time"
)

// A Format represents a property list wire format.
type Format int

// Property list formats understood by this package.
const (
	InvalidFormat Format = 0

	AutomaticFormat Format = iota
	XMLFormat
	BinaryFormat
)

var formatNames = map[Format]string{
	InvalidFormat:   "unknown/invalid",
	AutomaticFormat: "auto",
	XMLFormat:       "XML",
	BinaryFormat:    "binary",
}

//UID 标记归档引用
type UID uint64

// cfValue is the internal representation of a single property list
// object, shared by the binary and XML parsers.
type cfValue interface {
	typeName() string
}

type cfString string
type cfBoolean bool
type cfData []byte
type cfDate time.Time
type cfUID UID

type cfNumber struct {
	signed bool
	value  uint64
}

type cfReal struct {
	wide  bool
	value float64
}

type cfArray struct {
	values []cfValue
}

// cfSet only occurs in binary property lists of version 10 and later.
// The member order carries no meaning but is preserved as encoded.
type cfSet struct {
	values []cfValue
}

// cfDictionary keeps its pairs as two parallel slices so that the
// encounter order of the source document survives decoding.
type cfDictionary struct {
	keys   []string
	values []cfValue
}

func (cfString) typeName() string { return "string" }

func (cfBoolean) typeName() string { return "boolean" }

func (cfData) typeName() string { return "data" }

func (cfDate) typeName() string { return "date" }

func (cfUID) typeName() string { return "UID" }

func (*cfNumber) typeName() string { return "integer" }

func (*cfReal) typeName() string { return "real" }

func (*cfArray) typeName() string { return "array" }

func (*cfSet) typeName() string { return "set" }

func (*cfDictionary) typeName() string { return "dictionary" }

func (p *cfDictionary) Len() int           { return len(p.keys) }
func (p *cfDictionary) Less(i, j int) bool { return p.keys[i] < p.keys[j] }
func (p *cfDictionary) Swap(i, j int) {
	p.keys[i], p.keys[j] = p.keys[j], p.keys[i]
	p.values[i], p.values[j] = p.values[j], p.values[i]
}

func (p *cfDictionary) sort() {
	sort.Sort(p)
}

// maybeUID turns a keyed-archiver {"CF$UID": n} dictionary back into a
// cfUID. XML property lists have no UID element, so the archiver hides
// them in single-key dictionaries.
func (p *cfDictionary) maybeUID(lenient bool) cfValue {
	if len(p.keys) == 1 && p.keys[0] == "CF$UID" && len(p.values) == 1 {
		pval := p.values[0]
		if integer, ok := pval.(*cfNumber); ok {
			return cfUID(integer.value)
		}
		// Openstep only has string values.
		if lenient {
			if str, ok := pval.(cfString); ok {
				if i, err := parseUnsignedInt(string(str)); err == nil {
					return cfUID(i)
				}
			}
		}
	}
	return p
}

func (p cfUID) toDict() *cfDictionary {
	return &cfDictionary{
		keys: []string{"CF$UID"},
		values: []cfValue{&cfNumber{
			signed: false,
			value:  uint64(p),
		}},
	}
}
