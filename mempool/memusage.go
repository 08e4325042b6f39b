// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"reflect"
	"unsafe"

	"github.com/btcsuite/btcd/wire"
)

const (
	// outpointIndexUsage is the bookkeeping charged for every input of a
	// pooled transaction: the outpoint key and the pointer it maps to.
	outpointIndexUsage = int64(unsafe.Sizeof(wire.OutPoint{})) +
		int64(unsafe.Sizeof(uintptr(0)))
)

// dynamicMemUsage estimates the bytes reachable from v by walking pointers,
// slices, maps and struct fields.
func dynamicMemUsage(v reflect.Value) uintptr {
	t := v.Type()
	bytes := t.Size()

	// For complex types, we need to peek inside slices/arrays/structs/maps
	// and chase pointers.
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			bytes += dynamicMemUsage(v.Elem())
		}

	case reflect.Array, reflect.Slice:
		// Short circuit for byte slices and arrays.
		if t.Elem().Kind() == reflect.Uint8 {
			if t.Kind() == reflect.Slice {
				bytes += uintptr(v.Cap())
			}
			break
		}
		for j := 0; j < v.Len(); j++ {
			vi := v.Index(j)
			if t.Kind() == reflect.Array {
				k := vi.Kind()
				if (k == reflect.Pointer || k == reflect.Interface) &&
					!vi.IsNil() {

					bytes += dynamicMemUsage(vi.Elem())
				}
				continue
			}
			bytes += dynamicMemUsage(vi)
		}

	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			bytes += dynamicMemUsage(iter.Key())
			bytes += dynamicMemUsage(iter.Value())
		}

	case reflect.Struct:
		for _, f := range reflect.VisibleFields(t) {
			vf := v.FieldByIndex(f.Index)
			k := vf.Kind()
			if (k == reflect.Pointer || k == reflect.Interface) &&
				!vf.IsNil() {

				bytes += dynamicMemUsage(vf.Elem())
			} else if k == reflect.Array || k == reflect.Slice {
				// The header is already part of the struct size.
				bytes -= vf.Type().Size()
				bytes += dynamicMemUsage(vf)
			}
		}
	}

	return bytes
}

// txDescMemUsage returns the estimated memory charged against the pool cap
// for desc: the descriptor, the transaction it wraps and the outpoint index
// entries for its inputs.
func txDescMemUsage(desc *TxDesc) int64 {
	usage := int64(dynamicMemUsage(reflect.ValueOf(desc.Tx.MsgTx())))
	usage += int64(unsafe.Sizeof(*desc))
	usage += int64(len(desc.Tx.MsgTx().TxIn)) * outpointIndexUsage
	return usage
}
