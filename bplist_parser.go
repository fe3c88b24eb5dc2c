package plist

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"time"
	"unicode/utf16"
)

// bplistParser decodes a complete binary property list held in memory.
// The document is addressed exclusively through the offset table from
// the trailer; objects are never located by scanning.
type bplistParser struct {
	buffer []byte

	version       int
	trailer       bplistTrailer
	trailerOffset uint64
	offtable      []uint64

	// resolved memoizes finished objects so repeated references share
	// one value; resolving marks indices currently on the resolution
	// path, which turns reference cycles into errors instead of
	// unbounded recursion.
	resolved  map[uint64]cfValue
	resolving map[uint64]struct{}
}

func newBplistParser(buffer []byte) *bplistParser {
	return &bplistParser{
		buffer:    buffer,
		resolved:  make(map[uint64]cfValue),
		resolving: make(map[uint64]struct{}),
	}
}

func (p *bplistParser) parseDocument() (pval cfValue, parseError error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(runtime.Error); ok {
				panic(r)
			}
			if _, ok := r.(invalidPlistError); ok {
				parseError = r.(error)
			} else {
				// Wrap all non-invalid-plist errors.
				parseError = plistParseError{"binary", r.(error)}
			}
		}
	}()
	p.parseHeader()
	p.parseTrailer()
	p.parseOffsetTable()
	pval = p.objectAtIndex(p.trailer.TopObject)
	return
}

func (p *bplistParser) parseHeader() {
	if len(p.buffer) < bplistHeaderLen || string(p.buffer[:len(bplistMagic)]) != bplistMagic {
		panic(invalidPlistError{"binary", ErrUnrecognizedFormat})
	}
	hi, lo := p.buffer[6], p.buffer[7]
	if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
		panic(invalidPlistError{"binary", fmt.Errorf("%w: version %q", ErrUnrecognizedFormat, p.buffer[6:8])})
	}
	p.version = int(hi-'0')*10 + int(lo-'0')

	if uint64(len(p.buffer)) < bplistMinimumLen {
		panic(truncatedError(0, bplistMinimumLen))
	}
}

func (p *bplistParser) parseTrailer() {
	p.trailerOffset = uint64(len(p.buffer)) - bplistTrailerLen
	trailer := p.buffer[p.trailerOffset:]

	copy(p.trailer.Unused[:], trailer[0:5])
	p.trailer.SortVersion = trailer[5]
	p.trailer.OffsetIntSize = trailer[6]
	p.trailer.ObjectRefSize = trailer[7]
	p.trailer.NumObjects = binary.BigEndian.Uint64(trailer[8:16])
	p.trailer.TopObject = binary.BigEndian.Uint64(trailer[16:24])
	p.trailer.OffsetTableOffset = binary.BigEndian.Uint64(trailer[24:32])

	if p.trailer.OffsetIntSize == 0 || p.trailer.OffsetIntSize > 8 {
		panic(fmt.Errorf("%w: offset width %d", ErrInvalidTrailer, p.trailer.OffsetIntSize))
	}
	if p.trailer.ObjectRefSize == 0 || p.trailer.ObjectRefSize > 8 {
		panic(fmt.Errorf("%w: object reference width %d", ErrInvalidTrailer, p.trailer.ObjectRefSize))
	}
	if p.trailer.NumObjects == 0 {
		panic(fmt.Errorf("%w: empty object table", ErrInvalidTrailer))
	}
	if p.trailer.TopObject >= p.trailer.NumObjects {
		panic(outOfBoundsError("root object index", p.trailer.TopObject))
	}
}

func (p *bplistParser) parseOffsetTable() {
	start := p.trailer.OffsetTableOffset
	width := uint64(p.trailer.OffsetIntSize)
	if start < bplistHeaderLen || start >= p.trailerOffset {
		panic(outOfBoundsError("offset table at", start))
	}
	if p.trailer.NumObjects > (p.trailerOffset-start)/width {
		panic(outOfBoundsError("offset table end past", p.trailerOffset))
	}

	p.offtable = make([]uint64, p.trailer.NumObjects)
	for i := range p.offtable {
		entry := start + uint64(i)*width
		off := readSizedInt(p.buffer[entry : entry+width])
		if off < bplistHeaderLen || off >= p.trailerOffset {
			panic(outOfBoundsError("object offset", off))
		}
		p.offtable[i] = off
	}
}

// objectAtIndex resolves one object-table index to its value, decoding
// it at most once. Re-entering an index that is still being resolved
// means the document's reference graph contains a cycle.
func (p *bplistParser) objectAtIndex(index uint64) cfValue {
	if index >= p.trailer.NumObjects {
		panic(outOfBoundsError("object index", index))
	}
	if pval, ok := p.resolved[index]; ok {
		return pval
	}
	if _, busy := p.resolving[index]; busy {
		panic(fmt.Errorf("%w: object %d", ErrCyclicReference, index))
	}
	p.resolving[index] = struct{}{}
	pval := p.parseObjectAtOffset(p.offtable[index])
	delete(p.resolving, index)
	p.resolved[index] = pval
	return pval
}

func (p *bplistParser) parseObjectAtOffset(off uint64) cfValue {
	marker := p.readBytes(off, 1)[0]
	body := off + 1

	switch marker & 0xF0 {
	case bpTagNull & 0xF0:
		switch marker {
		case bpTagNull:
			return nil
		case bpTagBoolFalse:
			return cfBoolean(false)
		case bpTagBoolTrue:
			return cfBoolean(true)
		}
		panic(unrecognizedMarkerError(marker, off))
	case bpTagInteger:
		pval, _ := p.parseInteger(off)
		return pval
	case bpTagReal:
		nbytes := uint64(1) << (marker & 0x0F)
		buf := p.readBytes(body, nbytes)
		switch nbytes {
		case 4:
			return &cfReal{wide: false, value: float64(math.Float32frombits(binary.BigEndian.Uint32(buf)))}
		case 8:
			return &cfReal{wide: true, value: math.Float64frombits(binary.BigEndian.Uint64(buf))}
		}
		panic(fmt.Errorf("%w: %d-byte real", ErrUnsupportedWidth, nbytes))
	case bpTagDate:
		// CFBinaryPlist writes dates as one 8-byte big-endian double
		// regardless of the marker's low nibble.
		secs := math.Float64frombits(binary.BigEndian.Uint64(p.readBytes(body, 8)))
		whole, frac := math.Modf(secs)
		return cfDate(time.Unix(unixToCocoa+int64(whole), int64(frac*1e9)).UTC())
	case bpTagData:
		cnt, start := p.parseCount(marker, body)
		return cfData(append([]byte(nil), p.readBytes(start, cnt)...))
	case bpTagASCIIString:
		cnt, start := p.parseCount(marker, body)
		buf := p.readBytes(start, cnt)
		for _, c := range buf {
			if c > 0x7F {
				panic(fmt.Errorf("%w: byte 0x%02x in ASCII string", ErrInvalidText, c))
			}
		}
		return cfString(buf)
	case bpTagUTF16String:
		cnt, start := p.parseCount(marker, body)
		if cnt > math.MaxUint64/2 {
			panic(truncatedError(start, cnt))
		}
		buf := p.readBytes(start, cnt*2)
		units := make([]uint16, cnt)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(buf[i*2:])
		}
		return cfString(decodeUTF16(units))
	case bpTagUID:
		nbytes := uint64(marker&0x0F) + 1
		if nbytes > 8 {
			panic(fmt.Errorf("%w: %d-byte UID", ErrUnsupportedWidth, nbytes))
		}
		return cfUID(readSizedInt(p.readBytes(body, nbytes)))
	case bpTagArray:
		cnt, start := p.parseCount(marker, body)
		return &cfArray{values: p.resolveObjectRefs(start, cnt)}
	case bpTagSet:
		if p.version < bplistSetVersion {
			panic(fmt.Errorf("%w: set in bplist%02d document", ErrUnrecognizedMarker, p.version))
		}
		cnt, start := p.parseCount(marker, body)
		return &cfSet{values: p.resolveObjectRefs(start, cnt)}
	case bpTagDictionary:
		cnt, start := p.parseCount(marker, body)
		// Keys first, then values: two parallel reference arrays.
		keyRefs := p.readObjectRefs(start, cnt)
		valueRefs := p.readObjectRefs(start+cnt*uint64(p.trailer.ObjectRefSize), cnt)

		keys := make([]string, cnt)
		values := make([]cfValue, cnt)
		for i := uint64(0); i < cnt; i++ {
			kval := p.objectAtIndex(keyRefs[i])
			key, ok := kval.(cfString)
			if !ok {
				panic(fmt.Errorf("%w: object %d", ErrInvalidDictKey, keyRefs[i]))
			}
			keys[i] = string(key)
			values[i] = p.objectAtIndex(valueRefs[i])
		}
		return &cfDictionary{keys: keys, values: values}
	}
	panic(unrecognizedMarkerError(marker, off))
}

// parseInteger decodes an integer object at off and returns the offset
// of the first byte past it. Widths below 8 bytes are unsigned on the
// wire, the 8-byte width is two's-complement signed, and the legacy
// 16-byte width is accepted only while its value fits the 64-bit
// signed or unsigned domain.
func (p *bplistParser) parseInteger(off uint64) (*cfNumber, uint64) {
	marker := p.readBytes(off, 1)[0]
	if marker&0xF0 != bpTagInteger {
		panic(unrecognizedMarkerError(marker, off))
	}
	nbytes := uint64(1) << (marker & 0x0F)
	if nbytes > 16 {
		panic(fmt.Errorf("%w: %d-byte integer", ErrUnsupportedWidth, nbytes))
	}
	buf := p.readBytes(off+1, nbytes)
	end := off + 1 + nbytes

	switch {
	case nbytes < 8:
		return &cfNumber{signed: false, value: readSizedInt(buf)}, end
	case nbytes == 8:
		return &cfNumber{signed: true, value: binary.BigEndian.Uint64(buf)}, end
	}

	hi := binary.BigEndian.Uint64(buf[:8])
	lo := binary.BigEndian.Uint64(buf[8:])
	switch {
	case hi == 0:
		return &cfNumber{signed: false, value: lo}, end
	case hi == math.MaxUint64 && lo&0x8000000000000000 != 0:
		return &cfNumber{signed: true, value: lo}, end
	}
	panic(fmt.Errorf("%w: 128-bit integer out of range", ErrUnsupportedWidth))
}

// parseCount yields the element count for a sized object. A low nibble
// of 0xF means the real count follows as an ordinary integer object.
func (p *bplistParser) parseCount(marker uint8, off uint64) (uint64, uint64) {
	n := marker & 0x0F
	if n != 0x0F {
		return uint64(n), off
	}
	num, next := p.parseInteger(off)
	if num.signed && int64(num.value) < 0 {
		panic(outOfBoundsError("negative length", num.value))
	}
	return num.value, next
}

func (p *bplistParser) readObjectRefs(off uint64, count uint64) []uint64 {
	width := uint64(p.trailer.ObjectRefSize)
	if count > math.MaxUint64/width {
		panic(truncatedError(off, count))
	}
	buf := p.readBytes(off, count*width)
	refs := make([]uint64, count)
	for i := range refs {
		refs[i] = readSizedInt(buf[uint64(i)*width : (uint64(i)+1)*width])
	}
	return refs
}

func (p *bplistParser) resolveObjectRefs(off uint64, count uint64) []cfValue {
	refs := p.readObjectRefs(off, count)
	values := make([]cfValue, count)
	for i, ref := range refs {
		values[i] = p.objectAtIndex(ref)
	}
	return values
}

func (p *bplistParser) readBytes(off uint64, n uint64) []byte {
	end := off + n
	if end < off || end > uint64(len(p.buffer)) {
		panic(truncatedError(off, n))
	}
	return p.buffer[off:end]
}

// readSizedInt reads a 1- to 8-byte big-endian unsigned integer.
func readSizedInt(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// decodeUTF16 decodes big-endian UTF-16 code units, rejecting unpaired
// surrogates instead of substituting replacement characters.
func decodeUTF16(units []uint16) string {
	for i := 0; i < len(units); i++ {
		switch {
		case units[i] >= 0xD800 && units[i] <= 0xDBFF:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
				panic(fmt.Errorf("%w: unpaired high surrogate 0x%04x", ErrInvalidText, units[i]))
			}
			i++
		case units[i] >= 0xDC00 && units[i] <= 0xDFFF:
			panic(fmt.Errorf("%w: unpaired low surrogate 0x%04x", ErrInvalidText, units[i]))
		}
	}
	return string(utf16.Decode(units))
}

func unrecognizedMarkerError(marker uint8, off uint64) error {
	return fmt.Errorf("%w: 0x%02x at offset %d", ErrUnrecognizedMarker, marker, off)
}
