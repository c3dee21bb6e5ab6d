// Package cursor encodes iteration positions into opaque pagination tokens.
//
// A token is only valid for the query shape it was produced for. Decoding a
// token that was corrupted, truncated, produced by another version or for
// another query reports ok=false, and callers restart from the beginning.
package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Token layout: [version][shape hash 8][position...][checksum 8]
const (
	version    byte = 1
	hashLen         = 8
	headerLen       = 1 + hashLen
	overheadLn      = headerLen + hashLen
)

var encoding = base64.RawURLEncoding

// Encode returns an opaque token for resuming the iteration identified by
// shape after position.
func Encode(shape string, position []byte) string {
	buf := make([]byte, 0, overheadLn+len(position))
	buf = append(buf, version)
	buf = binary.BigEndian.AppendUint64(buf, xxhash.Sum64String(shape))
	buf = append(buf, position...)
	buf = binary.BigEndian.AppendUint64(buf, xxhash.Sum64(buf))
	return encoding.EncodeToString(buf)
}

// Decode returns the position stored in token. ok is false if the token is
// empty, malformed or was produced for a different shape.
func Decode(shape string, token string) (position []byte, ok bool) {
	if token == "" {
		return nil, false
	}
	raw, err := encoding.DecodeString(token)
	if err != nil || len(raw) < overheadLn {
		return nil, false
	}
	body, sum := raw[:len(raw)-hashLen], raw[len(raw)-hashLen:]
	if binary.BigEndian.Uint64(sum) != xxhash.Sum64(body) {
		return nil, false
	}
	if body[0] != version {
		return nil, false
	}
	if binary.BigEndian.Uint64(body[1:headerLen]) != xxhash.Sum64String(shape) {
		return nil, false
	}
	return bytes.Clone(body[headerLen:]), true
}
