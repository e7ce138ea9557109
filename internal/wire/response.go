package wire

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Response is a parsed reply from the AniDB UDP API: a status line
// ("tag code message") optionally followed by pipe-delimited data rows.
type Response struct {
	Tag     string
	Code    int
	Message string
	Rows    [][]string
}

// compressedPrefix is the two zero bytes AniDB puts in front of a
// compressed UDP payload (spec.md §4.1.3); a standard zlib stream
// follows them.
var compressedPrefix = []byte{0x00, 0x00}

// Decompress strips the AniDB compression prefix and inflates the zlib
// stream if present; payloads without the prefix pass through unchanged.
func Decompress(raw []byte) ([]byte, error) {
	if len(raw) < 2 || !bytes.Equal(raw[:2], compressedPrefix) {
		return raw, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw[2:]))
	if err != nil {
		return nil, fmt.Errorf("wire: zlib: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("wire: zlib read: %w", err)
	}
	return out, nil
}

// Parse decodes a decompressed UDP payload into a Response. When the
// server rejects a datagram at the transport level (bans, spec.md
// §4.1/§4.5), the tag is omitted entirely and the status line starts
// with the numeric code instead; Response.Tag is "" in that case.
func Parse(payload []byte) (*Response, error) {
	text := string(payload)
	text = strings.TrimRight(text, "\x00")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("wire: empty response")
	}

	head := strings.Fields(lines[0])
	if len(head) < 1 {
		return nil, fmt.Errorf("wire: malformed status line %q", lines[0])
	}

	var tag string
	var codeField string
	var rest []string
	if code, err := strconv.Atoi(head[0]); err == nil {
		// No tag: the first field is already the numeric code.
		_ = code
		codeField = head[0]
		rest = head[1:]
	} else {
		if len(head) < 2 {
			return nil, fmt.Errorf("wire: malformed status line %q", lines[0])
		}
		tag = head[0]
		codeField = head[1]
		rest = head[2:]
	}

	code, err := strconv.Atoi(codeField)
	if err != nil {
		return nil, fmt.Errorf("wire: non-numeric code in %q: %w", lines[0], err)
	}

	resp := &Response{
		Tag:     tag,
		Code:    code,
		Message: strings.TrimSpace(strings.Join(rest, " ")),
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		for i := range fields {
			fields[i] = unescape(fields[i])
		}
		resp.Rows = append(resp.Rows, fields)
	}
	return resp, nil
}
