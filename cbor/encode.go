// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cbor

import (
	"bytes"
	"reflect"
	"sync"

	_cbor "github.com/fxamacker/cbor/v2"
)

var (
	cachedEncMode     _cbor.EncMode
	cachedEncModeErr  error
	cachedEncModeOnce sync.Once
)

// getEncMode returns a cached EncMode. Map keys are sorted in core deterministic
// order so that the same value always produces the same bytes, which signing depends on.
func getEncMode() (_cbor.EncMode, error) {
	cachedEncModeOnce.Do(func() {
		opts := _cbor.EncOptions{
			Sort: _cbor.SortCoreDeterministic,
			// Encode time.Time values as RFC 3339 strings with nanoseconds
			Time: _cbor.TimeRFC3339Nano,
		}
		cachedEncMode, cachedEncModeErr = opts.EncMode()
	})
	return cachedEncMode, cachedEncModeErr
}

// Encode encodes the specified object to deterministic CBOR
func Encode(data any) ([]byte, error) {
	em, err := getEncMode()
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(nil)
	enc := em.NewEncoder(buf)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	genericTypeCache      = map[reflect.Type]reflect.Type{}
	genericTypeCacheMutex sync.RWMutex
)

// genericStructType returns a struct type with the same exported fields as the provided type,
// minus any embedded DecodeStoreCbor. The result has none of the original type's methods, which
// lets us bypass custom MarshalCBOR()/UnmarshalCBOR() functions
func genericStructType(typeSrc reflect.Type) reflect.Type {
	genericTypeCacheMutex.RLock()
	tmpType, ok := genericTypeCache[typeSrc]
	genericTypeCacheMutex.RUnlock()
	if ok {
		return tmpType
	}
	fields := []reflect.StructField{}
	for i := range typeSrc.NumField() {
		tmpField := typeSrc.Field(i)
		if tmpField.IsExported() && tmpField.Name != "DecodeStoreCbor" {
			fields = append(fields, tmpField)
		}
	}
	tmpType = reflect.StructOf(fields)
	genericTypeCacheMutex.Lock()
	genericTypeCache[typeSrc] = tmpType
	genericTypeCacheMutex.Unlock()
	return tmpType
}
