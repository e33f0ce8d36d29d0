package fingerprint

import (
	"encoding/base64"
	"encoding/binary"
)

// FrameRate is the nominal sub-fingerprint rate of the external tool in
// frames per second.
const FrameRate = 7.8

// frameBytes is the wire size of one sub-fingerprint
const frameBytes = 4

// Decode parses the external tool's textual fingerprint output: URL-safe
// unpadded base64 over big-endian 4-byte words. It returns a
// MalformedFingerprintError on undecodable input, truncated data, or a
// zero-length result.
func Decode(raw string) (Fingerprint, error) {
	if raw == "" {
		return nil, &MalformedFingerprintError{Reason: "empty input"}
	}

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, &MalformedFingerprintError{Reason: "invalid base64", Err: err}
	}

	if len(data)%frameBytes != 0 {
		return nil, &MalformedFingerprintError{Reason: "truncated data"}
	}
	if len(data) == 0 {
		return nil, &MalformedFingerprintError{Reason: "zero-length fingerprint"}
	}

	fp := make(Fingerprint, len(data)/frameBytes)
	for i := range fp {
		fp[i] = binary.BigEndian.Uint32(data[i*frameBytes:])
	}

	return fp, nil
}

// Encode is the inverse of Decode. Decode(Encode(fp)) reproduces fp exactly.
func Encode(fp Fingerprint) string {
	if len(fp) == 0 {
		return ""
	}

	data := make([]byte, len(fp)*frameBytes)
	for i, frame := range fp {
		binary.BigEndian.PutUint32(data[i*frameBytes:], frame)
	}

	return base64.RawURLEncoding.EncodeToString(data)
}
