package hmap

import (
	"encoding/binary"
	"math"
	"reflect"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Context supplies the hashing and equality behaviour a Map needs for its
// key type. A zero Context is invalid; use DefaultContext to build one for
// any comparable K: it resolves a Hash/Eql pair for whatever K turns out
// to be, the same way a resolved func pair would for any other generic
// container keyed on a type switch.
type Context[K comparable] struct {
	Hash func(K) uint64
	Eql  func(a, b K) bool
}

// DefaultContext builds a Context for K using a known non-cryptographic
// mixer (xxhash) over K's bytes for scalar/string keys, and a reflective
// field-by-field descent for composite keys; struct padding is never
// observed this way, since reflect.Value addresses logical fields rather
// than raw memory offsets.
func DefaultContext[K comparable]() Context[K] {
	return Context[K]{
		Hash: defaultHash[K](),
		Eql:  func(a, b K) bool { return a == b },
	}
}

func defaultHash[K comparable]() func(K) uint64 {
	var zero K
	switch any(zero).(type) {
	case string:
		return func(k K) uint64 {
			return xxhash.Sum64String(any(k).(string))
		}
	default:
		return func(k K) uint64 {
			return hashValue(reflect.ValueOf(k))
		}
	}
}

// hashValue descends through the fields of v, combining each leaf scalar
// into a single xxhash digest. Struct/array padding is never observed
// because reflect addresses logical fields, not memory offsets.
func hashValue(v reflect.Value) uint64 {
	d := xxhash.New()
	writeValue(d, v)
	return d.Sum64()
}

func writeValue(d *xxhash.Digest, v reflect.Value) {
	var buf [8]byte
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			buf[0] = 1
		}
		_, _ = d.Write(buf[:1])
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Int()))
		_, _ = d.Write(buf[:])
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		binary.LittleEndian.PutUint64(buf[:], v.Uint())
		_, _ = d.Write(buf[:])
	case reflect.Float32, reflect.Float64:
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v.Float()))
		_, _ = d.Write(buf[:])
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(real(c)))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(imag(c)))
		_, _ = d.Write(buf[:])
	case reflect.Chan, reflect.UnsafePointer:
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Pointer()))
		_, _ = d.Write(buf[:])
	case reflect.String:
		_, _ = d.WriteString(v.String())
	case reflect.Array, reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			writeValue(d, v.Index(i))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			writeValue(d, v.Field(i))
		}
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			_, _ = d.Write(buf[:1])
			return
		}
		writeValue(d, v.Elem())
	case reflect.Invalid:
		_, _ = d.Write(buf[:1]) // a nil interface-typed key
	default:
		// Reached only for a func or map held in an interface-typed key,
		// values that Go's own == rejects with a panic as well.
		panic("hmap: unhashable field kind " + v.Kind().String())
	}
}

// sizeofVal returns unsafe.Sizeof applied to the zero value of T. It is
// used only to size the arena charge for a table's key/value arrays, never
// for pointer arithmetic over raw bytes.
func sizeofVal[T any]() uintptr {
	return unsafe.Sizeof(*new(T))
}
