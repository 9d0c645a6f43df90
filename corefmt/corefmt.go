package corefmt

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/zintix-labs/mtlab/errs"
)

func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64 failed")
	}
	return b, err
}

func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeBase64URL(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode base64url failed")
	}
	return b, err
}

func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errs.Wrap(err, "decode hex failed")
	}
	return b, err
}

// EncodeBlobFrame encodes raw bytes into a length-prefixed binary frame.
//
// This is the transport used for snapshot blobs written to files/streams:
//
//	frame := uvarint(len(payload)) || payload
//
// Notes:
//   - This format is NOT JSON-friendly. For JSON/HTTP text transport, use Base64/Base64URL.
//   - The length prefix uses unsigned varint (encoding/binary).
func EncodeBlobFrame(payload []byte) []byte {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))

	out := make([]byte, 0, n+len(payload))
	out = append(out, hdr[:n]...)
	out = append(out, payload...)
	return out
}

// DecodeBlobFrame decodes a length-prefixed binary frame produced by EncodeBlobFrame.
// It returns an error if the frame is malformed or truncated.
func DecodeBlobFrame(frame []byte) ([]byte, error) {
	n, size := binary.Uvarint(frame)
	if size <= 0 {
		return nil, errs.NewWarn("decode blob frame failed: invalid varint length")
	}
	if uint64(len(frame)-size) < n {
		return nil, errs.NewWarn("decode blob frame failed: truncated payload")
	}
	payload := frame[size : size+int(n)]
	// Return a copy to avoid retaining the entire frame backing array.
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// WriteBlobFrame writes a length-prefixed binary frame into w.
//
// Useful for writing generator snapshots to disk or piping them through a binary channel.
func WriteBlobFrame(w io.Writer, payload []byte) error {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(payload)))
	if _, err := w.Write(hdr[:n]); err != nil {
		return errs.Wrap(err, "write blob frame header failed")
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(err, "write blob frame payload failed")
	}
	return nil
}

// ReadBlobFrame reads a length-prefixed binary frame from r.
//
// maxBytes is a safety cap to prevent unbounded allocations when reading untrusted input.
// If you read only trusted local files, you can pass a large maxBytes.
func ReadBlobFrame(r io.Reader, maxBytes uint64) ([]byte, error) {
	br := bufio.NewReader(r)
	ln, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, errs.Wrap(err, "read blob frame header failed")
	}
	if maxBytes > 0 && ln > maxBytes {
		return nil, errs.NewWarn("read blob frame failed: payload exceeds maxBytes")
	}
	buf := make([]byte, ln)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, errs.Wrap(err, "read blob frame payload failed")
	}
	return buf, nil
}

// EncodeU32Block packs a uint32 sequence into a self-describing binary block:
//
//	block := uvarint(len(vs)) || big-endian uint32...
//
// This is the on-disk layout for draw vectors (golden files, CLI dumps).
// Big-endian matches the snapshot byte order used across the repo.
func EncodeU32Block(vs []uint32) []byte {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(vs)))

	out := make([]byte, 0, n+4*len(vs))
	out = append(out, hdr[:n]...)
	for _, v := range vs {
		out = binary.BigEndian.AppendUint32(out, v)
	}
	return out
}

// DecodeU32Block unpacks a block produced by EncodeU32Block.
func DecodeU32Block(block []byte) ([]uint32, error) {
	n, size := binary.Uvarint(block)
	if size <= 0 {
		return nil, errs.NewWarn("decode u32 block failed: invalid varint length")
	}
	body := block[size:]
	if uint64(len(body)) < 4*n {
		return nil, errs.NewWarn("decode u32 block failed: truncated body")
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(body[4*i:])
	}
	return out, nil
}

// EncodeBlobFrameToBytes is a small helper to build a frame into a bytes.Buffer.
// Kept here to avoid repeated boilerplate in callers.
func EncodeBlobFrameToBytes(payload []byte) *bytes.Buffer {
	buf := bytes.NewBuffer(make([]byte, 0, binary.MaxVarintLen64+len(payload)))
	_ = WriteBlobFrame(buf, payload)
	return buf
}
