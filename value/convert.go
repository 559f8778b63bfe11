package value

import (
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/wippyai/der-runtime/errors"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("value: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("value: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// FromGo converts a host Go value into a Value.
// Supported inputs are nil, bool, signed and unsigned integers, floats,
// strings, []any, map[string]any and values that already implement Value.
func FromGo(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Nil{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int8:
		return Int(x), nil
	case int16:
		return Int(x), nil
	case int32:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(x), nil
	case uint16:
		return Int(x), nil
	case uint32:
		return Int(x), nil
	case uint:
		return fromUnsigned(uint64(x))
	case uint64:
		return fromUnsigned(x)
	case float32:
		return Float(x), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case []byte:
		return String(x), nil
	case []any:
		out := make(Array, len(x))
		for i, e := range x {
			ev, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(x))
		for k, e := range x {
			ev, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	}
	return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
		Expected("bool, number, string, []any or map[string]any").
		Actual(fmt.Sprintf("%T", v)).
		Build()
}

func fromUnsigned(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, errors.New(errors.PhaseRuntime, errors.KindOutOfBounds).
			Value(u).
			Detail("unsigned value %d overflows int", u).
			Build()
	}
	return Int(u), nil
}

// ToGo converts v into plain Go data.
// Functions, node references, memory references and async handles have no
// data representation and are rendered with their string form.
func ToGo(v Value) any {
	switch x := v.(type) {
	case nil, Nil:
		return nil
	case Bool:
		return bool(x)
	case Int:
		return int64(x)
	case Float:
		return float64(x)
	case String:
		return string(x)
	case Array:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToGo(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = ToGo(e)
		}
		return out
	}
	return v.String()
}

// MarshalCBOR encodes v with canonical CBOR.
func MarshalCBOR(v Value) ([]byte, error) {
	return cborEncMode.Marshal(ToGo(v))
}

// UnmarshalCBOR decodes CBOR data into a Value.
func UnmarshalCBOR(data []byte) (Value, error) {
	var raw any
	if err := cborDecMode.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "cbor value")
	}
	return FromGo(raw)
}
