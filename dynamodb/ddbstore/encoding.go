package ddbstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Key encoding for BadgerDB that supports proper lexicographic ordering.
// Key format: [tablePrefix][separator][partitionKey][separator][sortKey]
//
// For GSIs: [tablePrefix][$gsi:][gsiName][separator][partitionKey][separator][sortKey][separator][seq]
//
// The separator byte (0x00) is used to separate components. Strings are
// escaped so they never contain it, which keeps byte order equal to string
// order. GSI entries end with the record's 8 byte insertion sequence, so
// entries with equal sort values keep insertion order and never collide.

const (
	keySeparator byte = 0x00
	gsiMarker         = "$gsi:"
	seqLen            = 8
)

type keyEncoder struct {
	prefix []byte
}

func newTableKeyEncoder(tableName string) keyEncoder {
	return keyEncoder{prefix: append([]byte(tableName), keySeparator)}
}

func newGSIKeyEncoder(tableName, gsiName string) keyEncoder {
	p := []byte(tableName + gsiMarker + gsiName)
	return keyEncoder{prefix: append(p, keySeparator)}
}

// tablePrefix returns the prefix shared by every key of this table or GSI.
func (e keyEncoder) tablePrefix() []byte {
	return bytes.Clone(e.prefix)
}

// partitionPrefix returns the prefix for scanning all items with a given partition key.
func (e keyEncoder) partitionPrefix(partitionKey string) []byte {
	var buf bytes.Buffer
	buf.Write(e.prefix)
	buf.Write(escapeBytes([]byte(partitionKey)))
	buf.WriteByte(keySeparator)
	return buf.Bytes()
}

// seekKey returns the first possible key in the partition whose sort value is >= sortKey.
func (e keyEncoder) seekKey(partitionKey, sortKey string) []byte {
	return append(e.partitionPrefix(partitionKey), escapeBytes([]byte(sortKey))...)
}

func (e keyEncoder) primaryKey(partitionKey, sortKey string) []byte {
	return e.seekKey(partitionKey, sortKey)
}

func (e keyEncoder) gsiKey(partitionKey, sortKey string, seq uint64) []byte {
	key := e.seekKey(partitionKey, sortKey)
	key = append(key, keySeparator)
	return binary.BigEndian.AppendUint64(key, seq)
}

// decodeSortKey extracts the sort key from a primary key in the partition.
func decodeSortKey(key, partitionPrefix []byte) string {
	return string(unescapeBytes(key[len(partitionPrefix):]))
}

// decodeGSISortKey extracts the sort value from a GSI key in the partition.
func decodeGSISortKey(key, partitionPrefix []byte) (string, bool) {
	rest := key[len(partitionPrefix):]
	if len(rest) < seqLen+1 {
		return "", false
	}
	return string(unescapeBytes(rest[:len(rest)-seqLen-1])), true
}

// escapeBytes escapes null bytes (0x00) in the input to preserve separator integrity.
// Uses 0x01 0x01 for literal 0x00, and 0x01 0x02 for literal 0x01.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}

// unescapeBytes reverses the escaping done by escapeBytes.
func unescapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < len(b); i++ {
		if b[i] == 0x01 && i+1 < len(b) {
			switch b[i+1] {
			case 0x01:
				buf.WriteByte(0x00)
				i++
			case 0x02:
				buf.WriteByte(0x01)
				i++
			default:
				buf.WriteByte(b[i])
			}
		} else {
			buf.WriteByte(b[i])
		}
	}
	return buf.Bytes()
}

// Record serialization for BadgerDB values

// storedRecord is the value written under a primary key.
type storedRecord struct {
	Seq          uint64
	PartitionKey string
	SortKey      string
	Type         string
	Secondary    map[string]SecondaryKey
	Attributes   map[string]serializableAV
	CreatedAt    int64
	UpdatedAt    int64
}

func toStored(r Record, seq uint64) (*storedRecord, error) {
	s := &storedRecord{
		Seq:          seq,
		PartitionKey: r.PartitionKey,
		SortKey:      r.SortKey,
		Type:         r.Type,
		Secondary:    r.Secondary,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.Attributes) > 0 {
		s.Attributes = make(map[string]serializableAV, len(r.Attributes))
		for k, v := range r.Attributes {
			sav, err := toSerializable(v)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", k, err)
			}
			s.Attributes[k] = sav
		}
	}
	return s, nil
}

func (s *storedRecord) record() Record {
	r := Record{
		PartitionKey: s.PartitionKey,
		SortKey:      s.SortKey,
		Type:         s.Type,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if len(s.Secondary) > 0 {
		r.Secondary = s.Secondary
	}
	if len(s.Attributes) > 0 {
		r.Attributes = make(map[string]types.AttributeValue, len(s.Attributes))
		for k, v := range s.Attributes {
			r.Attributes[k] = fromSerializable(v)
		}
	}
	return r
}

func encodeRecord(s *storedRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*storedRecord, error) {
	var s storedRecord
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &s, nil
}

// serializableAV is a gob-encodable representation of AttributeValue
type serializableAV struct {
	Type  string
	Value any
}

func init() {
	// Register types for gob encoding
	gob.Register(map[string]serializableAV{})
	gob.Register([]serializableAV{})
	gob.Register([]string{})
	gob.Register([][]byte{})
}

func toSerializable(av types.AttributeValue) (serializableAV, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return serializableAV{Type: "S", Value: v.Value}, nil
	case *types.AttributeValueMemberN:
		return serializableAV{Type: "N", Value: v.Value}, nil
	case *types.AttributeValueMemberB:
		return serializableAV{Type: "B", Value: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return serializableAV{Type: "BOOL", Value: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return serializableAV{Type: "NULL", Value: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return serializableAV{Type: "SS", Value: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return serializableAV{Type: "NS", Value: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return serializableAV{Type: "BS", Value: v.Value}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]serializableAV, len(v.Value))
		for k, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, fmt.Errorf("%s: %w", k, err)
			}
			m[k] = sav
		}
		return serializableAV{Type: "M", Value: m}, nil
	case *types.AttributeValueMemberL:
		l := make([]serializableAV, len(v.Value))
		for i, val := range v.Value {
			sav, err := toSerializable(val)
			if err != nil {
				return serializableAV{}, fmt.Errorf("[%d]: %w", i, err)
			}
			l[i] = sav
		}
		return serializableAV{Type: "L", Value: l}, nil
	default:
		return serializableAV{}, fmt.Errorf("unsupported attribute value type: %T", av)
	}
}

func fromSerializable(sav serializableAV) types.AttributeValue {
	switch sav.Type {
	case "S":
		s, _ := sav.Value.(string)
		return &types.AttributeValueMemberS{Value: s}
	case "N":
		n, _ := sav.Value.(string)
		return &types.AttributeValueMemberN{Value: n}
	case "B":
		b, _ := sav.Value.([]byte)
		return &types.AttributeValueMemberB{Value: b}
	case "BOOL":
		b, _ := sav.Value.(bool)
		return &types.AttributeValueMemberBOOL{Value: b}
	case "NULL":
		b, _ := sav.Value.(bool)
		return &types.AttributeValueMemberNULL{Value: b}
	case "SS":
		ss, _ := sav.Value.([]string)
		return &types.AttributeValueMemberSS{Value: ss}
	case "NS":
		ns, _ := sav.Value.([]string)
		return &types.AttributeValueMemberNS{Value: ns}
	case "BS":
		bs, _ := sav.Value.([][]byte)
		return &types.AttributeValueMemberBS{Value: bs}
	case "M":
		src, _ := sav.Value.(map[string]serializableAV)
		m := make(map[string]types.AttributeValue, len(src))
		for k, v := range src {
			m[k] = fromSerializable(v)
		}
		return &types.AttributeValueMemberM{Value: m}
	case "L":
		src, _ := sav.Value.([]serializableAV)
		l := make([]types.AttributeValue, len(src))
		for i, v := range src {
			l[i] = fromSerializable(v)
		}
		return &types.AttributeValueMemberL{Value: l}
	default:
		panic(fmt.Sprintf("unsupported serializable type: %s", sav.Type))
	}
}
