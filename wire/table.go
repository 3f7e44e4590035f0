package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Decimal carries an AMQP decimal-value field (scale + unscaled integer),
// grounded on the teacher's amqpDecimal.
type Decimal struct {
	Scale uint8
	Value int32
}

// ReadShortString reads a uint8-length-prefixed string.
func ReadShortString(r *bytes.Reader) (string, error) {
	var length uint8
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", fmt.Errorf("reading short string length: %w", err)
	}
	if length == 0 {
		return "", nil
	}
	if int(length) > r.Len() {
		return "", fmt.Errorf("not enough data for short string: expected %d, available %d", length, r.Len())
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("reading short string data: %w", err)
	}
	return string(data), nil
}

// ReadLongString reads a uint32-length-prefixed string.
func ReadLongString(r *bytes.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return "", fmt.Errorf("reading long string length: %w", err)
	}
	if length == 0 {
		return "", nil
	}
	if int(length) > r.Len() {
		return "", fmt.Errorf("not enough data for long string: expected %d, available %d", length, r.Len())
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", fmt.Errorf("reading long string data: %w", err)
	}
	return string(data), nil
}

// WriteShortString writes a uint8-length-prefixed string.
func WriteShortString(w *bytes.Buffer, s string) {
	w.WriteByte(uint8(len(s)))
	w.WriteString(s)
}

// WriteLongString writes a uint32-length-prefixed string.
func WriteLongString(w *bytes.Buffer, s string) {
	binary.Write(w, binary.BigEndian, uint32(len(s)))
	w.WriteString(s)
}

// ReadTable reads a uint32-length-prefixed AMQP field table.
func ReadTable(r *bytes.Reader) (map[string]any, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("reading table payload length: %w", err)
	}
	if length == 0 {
		return map[string]any{}, nil
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading table payload: %w", err)
	}

	tr := bytes.NewReader(raw)
	table := make(map[string]any)
	for tr.Len() > 0 {
		key, err := ReadShortString(tr)
		if err != nil {
			return table, fmt.Errorf("malformed table: reading field key: %w", err)
		}
		if tr.Len() == 0 {
			break
		}
		valueType, err := tr.ReadByte()
		if err != nil {
			return table, fmt.Errorf("reading value type for key %q: %w", key, err)
		}
		value, err := readFieldValue(tr, valueType)
		if err != nil {
			return table, fmt.Errorf("reading value for key %q: %w", key, err)
		}
		table[key] = value
	}
	return table, nil
}

// WriteTable writes a uint32-length-prefixed AMQP field table.
func WriteTable(w *bytes.Buffer, table map[string]any) error {
	var body bytes.Buffer
	for key, value := range table {
		WriteShortString(&body, key)
		if err := writeFieldValue(&body, value); err != nil {
			return fmt.Errorf("serializing value for key %q (%T): %w", key, value, err)
		}
	}
	binary.Write(w, binary.BigEndian, uint32(body.Len()))
	w.Write(body.Bytes())
	return nil
}

func readFieldValue(r *bytes.Reader, valueType byte) (any, error) {
	switch valueType {
	case 't':
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("reading bool: %w", err)
		}
		return b != 0, nil
	case 'b':
		var v int8
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading int8: %w", err)
		}
		return v, nil
	case 's':
		var v int16
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading int16: %w", err)
		}
		return v, nil
	case 'I':
		var v int32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading int32: %w", err)
		}
		return v, nil
	case 'l':
		var v int64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading int64: %w", err)
		}
		return v, nil
	case 'f':
		var v float32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading float32: %w", err)
		}
		return v, nil
	case 'd':
		var v float64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading float64: %w", err)
		}
		return v, nil
	case 'D':
		var scale uint8
		if err := binary.Read(r, binary.BigEndian, &scale); err != nil {
			return nil, fmt.Errorf("reading decimal scale: %w", err)
		}
		var v int32
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading decimal value: %w", err)
		}
		return Decimal{Scale: scale, Value: v}, nil
	case 'S':
		return ReadLongString(r)
	case 'A':
		var arrayLen uint32
		if err := binary.Read(r, binary.BigEndian, &arrayLen); err != nil {
			return nil, fmt.Errorf("reading field array length: %w", err)
		}
		if arrayLen == 0 {
			return []any{}, nil
		}
		raw := make([]byte, arrayLen)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("reading field array payload: %w", err)
		}
		ar := bytes.NewReader(raw)
		arr := make([]any, 0)
		for ar.Len() > 0 {
			t, err := ar.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("reading type in field array: %w", err)
			}
			v, err := readFieldValue(ar, t)
			if err != nil {
				return nil, fmt.Errorf("reading value in field array (type %c): %w", t, err)
			}
			arr = append(arr, v)
		}
		return arr, nil
	case 'T':
		var v uint64
		if err := binary.Read(r, binary.BigEndian, &v); err != nil {
			return nil, fmt.Errorf("reading timestamp: %w", err)
		}
		return v, nil
	case 'F':
		return ReadTable(r)
	case 'x':
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("reading byte array length: %w", err)
		}
		if length == 0 {
			return []byte{}, nil
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading byte array data: %w", err)
		}
		return data, nil
	case 'V':
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported field table value type: %c (%d)", valueType, valueType)
	}
}

func writeFieldValue(w *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case bool:
		w.WriteByte('t')
		if v {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case int8:
		w.WriteByte('b')
		binary.Write(w, binary.BigEndian, v)
	case uint8:
		w.WriteByte('b')
		binary.Write(w, binary.BigEndian, v)
	case int16:
		w.WriteByte('s')
		binary.Write(w, binary.BigEndian, v)
	case int32:
		w.WriteByte('I')
		binary.Write(w, binary.BigEndian, v)
	case int64:
		w.WriteByte('l')
		binary.Write(w, binary.BigEndian, v)
	case uint64:
		w.WriteByte('T')
		binary.Write(w, binary.BigEndian, v)
	case float32:
		w.WriteByte('f')
		binary.Write(w, binary.BigEndian, v)
	case float64:
		w.WriteByte('d')
		binary.Write(w, binary.BigEndian, v)
	case Decimal:
		w.WriteByte('D')
		binary.Write(w, binary.BigEndian, v.Scale)
		binary.Write(w, binary.BigEndian, v.Value)
	case string:
		w.WriteByte('S')
		WriteLongString(w, v)
	case []byte:
		w.WriteByte('x')
		binary.Write(w, binary.BigEndian, uint32(len(v)))
		w.Write(v)
	case []any:
		w.WriteByte('A')
		var body bytes.Buffer
		for _, item := range v {
			if err := writeFieldValue(&body, item); err != nil {
				return fmt.Errorf("writing field array item %T: %w", item, err)
			}
		}
		binary.Write(w, binary.BigEndian, uint32(body.Len()))
		w.Write(body.Bytes())
	case map[string]any:
		w.WriteByte('F')
		if err := WriteTable(w, v); err != nil {
			return fmt.Errorf("writing nested table: %w", err)
		}
	case nil:
		w.WriteByte('V')
	default:
		return fmt.Errorf("unsupported type for field table serialization: %T", v)
	}
	return nil
}
