package shc

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ChunkPrefix is the scheme prefix every health card QR payload begins with.
const ChunkPrefix = "shc:/"

const (
	// numericOffset shifts the token alphabet into the two-digit range.
	// Every token character must lie in [numericOffset, numericOffset+99];
	// the base64url-plus-dot alphabet compact tokens use satisfies this.
	numericOffset = 45
	numericMax    = numericOffset + 99
)

// QRChunk is one QR symbol's worth of an encoded token: a 1-based index, the
// total number of chunks in the run, and the numeric-mode digit string. The
// index/total prefix is rendered only when the run has more than one chunk.
type QRChunk struct {
	Index       int
	Total       int
	NumericBody string
}

// String renders the chunk as the literal QR payload, prefix included.
func (c QRChunk) String() string {
	if c.Total <= 1 {
		return ChunkPrefix + c.NumericBody
	}
	return ChunkPrefix + strconv.Itoa(c.Index) + "/" + strconv.Itoa(c.Total) + "/" + c.NumericBody
}

// numericEncode maps each character of the token to a zero-padded two-digit
// group. The conversion is checked: a character outside the bounded ASCII
// window is a typed failure, never a silently corrupt chunk.
func numericEncode(token string) (string, error) {
	var b strings.Builder
	b.Grow(2 * len(token))
	for i := 0; i < len(token); i++ {
		c := token[i]
		if c < numericOffset || c > numericMax {
			return "", errors.Wrapf(ErrMalformedChunk, "character %q at position %d is outside the numeric-mode alphabet", c, i)
		}
		group := int(c) - numericOffset
		b.WriteByte(byte('0' + group/10))
		b.WriteByte(byte('0' + group%10))
	}
	return b.String(), nil
}

// numericDecode is the inverse of numericEncode.
func numericDecode(digits string) (string, error) {
	if len(digits)%2 != 0 {
		return "", errors.Wrapf(ErrMalformedChunk, "numeric body has odd length %d", len(digits))
	}
	var b strings.Builder
	b.Grow(len(digits) / 2)
	for i := 0; i < len(digits); i += 2 {
		hi, lo := digits[i], digits[i+1]
		if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
			return "", errors.Wrapf(ErrMalformedChunk, "invalid digit group %q at position %d", digits[i:i+2], i)
		}
		group := int(hi-'0')*10 + int(lo-'0')
		b.WriteByte(byte(group + numericOffset))
	}
	return b.String(), nil
}

// Split partitions a compact token into QR chunks whose numeric bodies each
// fit within maxChars numeric-mode characters. The shc:/ prefix (and the
// index/total fields of a multi-chunk run) ride in the QR symbol's byte-mode
// segment, so only the digit body counts against the budget. Token
// characters, not digits, are partitioned, keeping every two-digit group
// intact within a single chunk.
func Split(token string, maxChars int) ([]QRChunk, error) {
	if token == "" {
		return nil, errors.Wrap(ErrMalformedChunk, "cannot split an empty token")
	}
	if maxChars < 2 {
		return nil, errors.Errorf("max chars per chunk must be at least 2, got %d", maxChars)
	}

	if 2*len(token) <= maxChars {
		body, err := numericEncode(token)
		if err != nil {
			return nil, err
		}
		return []QRChunk{{Index: 1, Total: 1, NumericBody: body}}, nil
	}

	perChunk := maxChars / 2
	total := (len(token) + perChunk - 1) / perChunk

	// balance chunk sizes so symbols in one run have similar density
	base := len(token) / total
	extra := len(token) % total

	chunks := make([]QRChunk, 0, total)
	offset := 0
	for i := 1; i <= total; i++ {
		size := base
		if i <= extra {
			size++
		}
		body, err := numericEncode(token[offset : offset+size])
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, QRChunk{Index: i, Total: total, NumericBody: body})
		offset += size
	}
	return chunks, nil
}

// ParseChunk parses the literal payload of a scanned QR symbol. A bare
// shc:/ payload is the single-chunk form, index 1 of 1.
func ParseChunk(payload string) (*QRChunk, error) {
	if !strings.HasPrefix(payload, ChunkPrefix) {
		return nil, errors.Wrapf(ErrMalformedChunk, "payload does not begin with %s", ChunkPrefix)
	}
	rest := payload[len(ChunkPrefix):]
	if rest == "" {
		return nil, errors.Wrap(ErrMalformedChunk, "payload has no numeric body")
	}

	if !strings.Contains(rest, "/") {
		return &QRChunk{Index: 1, Total: 1, NumericBody: rest}, nil
	}

	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 {
		return nil, errors.Wrap(ErrMalformedChunk, "chunked payload must have index/total/body form")
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedChunk, "invalid chunk index %q", parts[0])
	}
	total, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedChunk, "invalid chunk total %q", parts[1])
	}
	if parts[2] == "" {
		return nil, errors.Wrap(ErrMalformedChunk, "payload has no numeric body")
	}
	return &QRChunk{Index: index, Total: total, NumericBody: parts[2]}, nil
}

// Reassemble recovers the compact token from a chunk set. Scanners may
// present chunks in any order, so arrival order never affects the result:
// chunks are keyed by index and concatenated in ascending index order. The
// set must agree on a single total, cover every index exactly, and repeated
// indices must carry identical bodies.
func Reassemble(chunks []QRChunk) (string, error) {
	if len(chunks) == 0 {
		return "", errors.Wrap(ErrChunkCountMismatch, "no chunks provided")
	}

	total := chunks[0].Total
	bodies := make(map[int]string, total)
	for _, chunk := range chunks {
		if chunk.Total != total {
			return "", errors.Wrapf(ErrChunkCountMismatch, "chunk totals disagree: %d vs %d", chunk.Total, total)
		}
		if chunk.Index < 1 || chunk.Index > total {
			return "", errors.Wrapf(ErrChunkCountMismatch, "chunk index %d outside [1, %d]", chunk.Index, total)
		}
		if existing, ok := bodies[chunk.Index]; ok && existing != chunk.NumericBody {
			return "", errors.Wrapf(ErrChunkCountMismatch, "chunk index %d repeats with a different body", chunk.Index)
		}
		bodies[chunk.Index] = chunk.NumericBody
	}
	if len(bodies) != total {
		return "", errors.Wrapf(ErrChunkCountMismatch, "have %d of %d chunks", len(bodies), total)
	}

	indices := make([]int, 0, total)
	for index := range bodies {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	var digits strings.Builder
	for _, index := range indices {
		digits.WriteString(bodies[index])
	}
	return numericDecode(digits.String())
}
