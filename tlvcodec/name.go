package tlvcodec

import (
	"bytes"

	"github.com/ndnproto/ndncert/ndname"
)

// EncodeNameValue renders a Name as the Value of a named-field TLV: the
// concatenation of its components, each wrapped in a GenericNameComponent
// (0x08) block. The teacher's generator-driven "+field:name" fields work
// the same way — the outer tag (e.g. CaPrefix=0x81) replaces the standard
// Name type 0x07, and the component sequence is its Value directly.
func EncodeNameValue(n ndname.Name) []byte {
	var buf bytes.Buffer
	for _, c := range n {
		buf.Write(EncodeBlock(TypeNameComponent, []byte(c)))
	}
	return buf.Bytes()
}

// DecodeNameValue reverses EncodeNameValue.
func DecodeNameValue(value []byte) (ndname.Name, error) {
	blocks, err := ReadAllBlocks(value)
	if err != nil {
		return nil, err
	}
	n := make(ndname.Name, 0, len(blocks))
	for _, b := range blocks {
		n = append(n, string(b.Value))
	}
	return n, nil
}
