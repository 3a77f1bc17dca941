package librarian

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how primary document values are serialized.
type Encoding int

const (
	MsgPack Encoding = iota
	JSON
)

func (enc Encoding) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("Encoding(%d)", int(enc))
	}
}

func (enc Encoding) valid() bool {
	return enc == MsgPack || enc == JSON
}

// ParseEncoding accepts the names returned by Encoding.String.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "msgpack", "":
		return MsgPack, nil
	case "json":
		return JSON, nil
	default:
		return 0, configErrf("unknown encoding %q", s)
	}
}

// EncodeValue appends the serialized form of v to buf. Map keys are sorted, so
// equal values always encode to equal bytes. Struct fields are named by their
// msgpack tag, then json tag, then field name, the same way Project finds them.
func (enc Encoding) EncodeValue(buf []byte, v any) ([]byte, error) {
	switch enc {
	case MsgPack:
		bb := bytesBuilder{buf}
		e := msgpack.GetEncoder()
		e.Reset(&bb)
		e.SetSortMapKeys(true)
		e.SetCustomStructTag("json")
		err := e.Encode(v)
		msgpack.PutEncoder(e)
		if err != nil {
			return buf, fmt.Errorf("failed to encode %T using MsgPack: %w", v, err)
		}
		return bb.Buf, nil
	case JSON:
		raw, err := json.Marshal(v)
		if err != nil {
			return buf, fmt.Errorf("failed to encode %T to JSON: %w", v, err)
		}
		return appendRaw(buf, raw), nil
	default:
		return buf, configErrf("unknown encoding %v", enc)
	}
}

// DecodeValue decodes data into generic Go values: maps become map[string]any,
// MsgPack integers become int64 (uint64 if they do not fit), JSON numbers
// become float64.
func (enc Encoding) DecodeValue(data []byte) (any, error) {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(data)
		dec := msgpack.GetDecoder()
		dec.Reset(&r)
		dec.UseLooseInterfaceDecoding(true)
		v, err := dec.DecodeInterfaceLoose()
		msgpack.PutDecoder(dec)
		if err != nil {
			return nil, dataErrf(data, 0, err, "failed to decode msgpack")
		}
		return v, nil
	case JSON:
		var v any
		err := json.Unmarshal(data, &v)
		if err != nil {
			return nil, dataErrf(data, 0, err, "failed to decode JSON")
		}
		return v, nil
	default:
		return nil, configErrf("unknown encoding %v", enc)
	}
}
