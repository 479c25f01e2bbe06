package proto

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/protobuf/encoding/protowire"
)

// wireField struct 欄位與 proto 欄位編號的對應
type wireField struct {
	index int
	num   protowire.Number
	name  string
}

var wireFields sync.Map // reflect.Type -> []wireField

// fieldsOf 解析 `protobuf:"bytes,1,opt,name=account_number,proto3"` 格式的 tag
func fieldsOf(t reflect.Type) ([]wireField, error) {
	if cached, ok := wireFields.Load(t); ok {
		return cached.([]wireField), nil
	}
	fields := make([]wireField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag, ok := t.Field(i).Tag.Lookup("protobuf")
		if !ok {
			continue
		}
		parts := strings.Split(tag, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("proto: %s.%s: malformed tag %q", t.Name(), t.Field(i).Name, tag)
		}
		num, err := strconv.Atoi(parts[1])
		if err != nil || !protowire.Number(num).IsValid() {
			return nil, fmt.Errorf("proto: %s.%s: invalid field number in %q", t.Name(), t.Field(i).Name, tag)
		}
		fields = append(fields, wireField{index: i, num: protowire.Number(num), name: t.Field(i).Name})
	}
	wireFields.Store(t, fields)
	return fields, nil
}

func messageValue(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("proto: cannot encode %T", v)
	}
	return rv.Elem(), nil
}

func marshalWire(v any) ([]byte, error) {
	msg, err := messageValue(v)
	if err != nil {
		return nil, err
	}
	return appendMessage(nil, msg)
}

// appendMessage 依欄位編號順序寫出，proto3 的零值不寫
func appendMessage(b []byte, msg reflect.Value) ([]byte, error) {
	fields, err := fieldsOf(msg.Type())
	if err != nil {
		return nil, err
	}
	for _, field := range fields {
		f := msg.Field(field.index)
		switch f.Kind() {
		case reflect.String:
			if f.Len() > 0 {
				b = protowire.AppendTag(b, field.num, protowire.BytesType)
				b = protowire.AppendString(b, f.String())
			}
		case reflect.Bool:
			if f.Bool() {
				b = protowire.AppendTag(b, field.num, protowire.VarintType)
				b = protowire.AppendVarint(b, protowire.EncodeBool(true))
			}
		case reflect.Int32, reflect.Int64:
			if f.Int() != 0 {
				b = protowire.AppendTag(b, field.num, protowire.VarintType)
				b = protowire.AppendVarint(b, uint64(f.Int()))
			}
		case reflect.Uint32, reflect.Uint64:
			if f.Uint() != 0 {
				b = protowire.AppendTag(b, field.num, protowire.VarintType)
				b = protowire.AppendVarint(b, f.Uint())
			}
		case reflect.Pointer:
			if f.IsNil() {
				continue
			}
			if b, err = appendEmbedded(b, field.num, f.Elem()); err != nil {
				return nil, err
			}
		case reflect.Slice:
			for j := 0; j < f.Len(); j++ {
				elem := f.Index(j)
				if elem.IsNil() {
					elem = reflect.New(elem.Type().Elem())
				}
				if b, err = appendEmbedded(b, field.num, elem.Elem()); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("proto: %s.%s: unsupported kind %s", msg.Type().Name(), field.name, f.Kind())
		}
	}
	return b, nil
}

func appendEmbedded(b []byte, num protowire.Number, msg reflect.Value) ([]byte, error) {
	inner, err := appendMessage(nil, msg)
	if err != nil {
		return nil, err
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner), nil
}

func unmarshalWire(data []byte, v any) error {
	msg, err := messageValue(v)
	if err != nil {
		return err
	}
	return consumeMessage(data, msg)
}

// consumeMessage 解碼到 msg，未知欄位略過
func consumeMessage(b []byte, msg reflect.Value) error {
	fields, err := fieldsOf(msg.Type())
	if err != nil {
		return err
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		field, ok := lookupField(fields, num)
		if !ok {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}

		f := msg.Field(field.index)
		want := protowire.VarintType
		switch f.Kind() {
		case reflect.String, reflect.Pointer, reflect.Slice:
			want = protowire.BytesType
		}
		if typ != want {
			return fmt.Errorf("proto: %s.%s: wire type %d, want %d", msg.Type().Name(), field.name, typ, want)
		}

		if want == protowire.VarintType {
			x, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			switch f.Kind() {
			case reflect.Bool:
				f.SetBool(protowire.DecodeBool(x))
			case reflect.Int32, reflect.Int64:
				f.SetInt(int64(x))
			case reflect.Uint32, reflect.Uint64:
				f.SetUint(x)
			default:
				return fmt.Errorf("proto: %s.%s: unsupported kind %s", msg.Type().Name(), field.name, f.Kind())
			}
			continue
		}

		raw, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch f.Kind() {
		case reflect.String:
			f.SetString(string(raw))
		case reflect.Pointer:
			if f.IsNil() {
				f.Set(reflect.New(f.Type().Elem()))
			}
			if err := consumeMessage(raw, f.Elem()); err != nil {
				return err
			}
		case reflect.Slice:
			elem := reflect.New(f.Type().Elem().Elem())
			if err := consumeMessage(raw, elem.Elem()); err != nil {
				return err
			}
			f.Set(reflect.Append(f, elem))
		}
	}
	return nil
}

func lookupField(fields []wireField, num protowire.Number) (wireField, bool) {
	for _, field := range fields {
		if field.num == num {
			return field, true
		}
	}
	return wireField{}, false
}
