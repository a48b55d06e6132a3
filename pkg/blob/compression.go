package blob

import (
	"encoding/binary"
	"fmt"

	"github.com/cuemby/mailcore/pkg/log"
	"github.com/pierrec/lz4/v4"
)

// magicMarker is the high nibble shared by every compression tail marker.
// A stored blob's last byte carrying magicMarker in its high nibble
// identifies it as framed by this package; any other trailing byte (or no
// marker at all, for legacy blobs written before compression existed) is
// read back as raw, uncompressed bytes.
const magicMarker = 0xa0

// Algo selects how PutBlob frames data before handing it to a Backend.
type Algo int

const (
	// None stores data unframed: exactly as given, exactly as read back.
	None Algo = iota
	// Lz4 stores a 4-byte big-endian uncompressed size, the lz4
	// block-compressed payload, and a trailing magicMarker|0x01 byte.
	Lz4
)

// ParseAlgo parses a configuration string into an Algo. "lz4" selects
// Lz4; "none", "false", "disable" and "disabled" all select None.
func ParseAlgo(s string) (Algo, error) {
	switch s {
	case "lz4":
		return Lz4, nil
	case "none", "false", "disable", "disabled", "":
		return None, nil
	default:
		return None, fmt.Errorf("blob: unknown compression algorithm %q", s)
	}
}

func (a Algo) marker() (byte, bool) {
	switch a {
	case Lz4:
		return magicMarker | 0x01, true
	default:
		return 0, false
	}
}

// compress frames raw according to algo.
func compress(algo Algo, raw []byte) ([]byte, error) {
	marker, ok := algo.marker()
	if !ok {
		return raw, nil
	}

	switch algo {
	case Lz4:
		bound := lz4.CompressBlockBound(len(raw))
		compressed := make([]byte, bound)
		var compressor lz4.Compressor
		n, err := compressor.CompressBlock(raw, compressed)
		if err != nil {
			return nil, fmt.Errorf("blob: lz4 compress: %w", err)
		}
		if n == 0 {
			// incompressible input: lz4 declines, fall back to raw
			return raw, nil
		}

		frame := make([]byte, 4, 4+n+1)
		binary.BigEndian.PutUint32(frame, uint32(len(raw)))
		frame = append(frame, compressed[:n]...)
		frame = append(frame, marker)
		return frame, nil
	}
	return raw, nil
}

// decompress reverses compress, detecting the algorithm from the stored
// bytes' trailing marker rather than from a caller-supplied algo, so a
// store whose configured algorithm changes can still read blobs written
// under a previous one.
func decompress(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	last := raw[len(raw)-1]
	if last&0xf0 != magicMarker {
		log.WithComponent("blob").Debug().Msg("no compression marker on stored blob, returning raw bytes")
		return raw, nil
	}

	switch last {
	case magicMarker | 0x01:
		payload := raw[:len(raw)-1]
		if len(payload) < 4 {
			return raw, nil
		}
		size := binary.BigEndian.Uint32(payload[:4])
		compressed := payload[4:]
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(compressed, out)
		if err != nil {
			return nil, fmt.Errorf("blob: lz4 decompress: %w", err)
		}
		return out[:n], nil
	default:
		// marker byte present but not one we recognize: treat as raw,
		// matching the original's behavior of falling back on a
		// marker/algorithm mismatch instead of failing the read.
		return raw, nil
	}
}
