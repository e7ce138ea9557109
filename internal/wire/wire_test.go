package wire

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func TestTagAllocatorWraps(t *testing.T) {
	a := NewTagAllocator("T")
	first := a.Next()
	if first != "T001" {
		t.Fatalf("first tag = %q, want T001", first)
	}
	for i := 0; i < 997; i++ {
		a.Next()
	}
	last := a.Next()
	if last != "T999" {
		t.Fatalf("999th tag = %q, want T999", last)
	}
	thousandth := a.Next()
	if thousandth != "TOOO" {
		t.Fatalf("1000th tag = %q, want TOOO", thousandth)
	}
	wrapped := a.Next()
	if wrapped != "T001" {
		t.Fatalf("1001st tag = %q, want T001", wrapped)
	}
}

func TestCommandEncodeSortsAndEscapes(t *testing.T) {
	c := NewCommand("AUTH")
	c.Set("user", "a&b")
	c.Set("pass", "secret")
	c.Set("empty", "")
	got := c.Encode("T001")
	want := "AUTH pass=secret&tag=T001&user=a&amp;b\n"
	if got != want {
		t.Fatalf("Encode() = %q, want %q", got, want)
	}
}

func TestParseResponseUntaggedBan(t *testing.T) {
	resp, err := Parse([]byte("555 BANNED\n\nreason"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Tag != "" || resp.Code != 555 {
		t.Fatalf("unexpected header: %+v", resp)
	}
}

func TestParseResponseWithRows(t *testing.T) {
	payload := []byte("T001 220 FILE\n123|456|movie.mkv\n")
	resp, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if resp.Tag != "T001" || resp.Code != 220 || resp.Message != "FILE" {
		t.Fatalf("unexpected header: %+v", resp)
	}
	if len(resp.Rows) != 1 || len(resp.Rows[0]) != 3 || resp.Rows[0][2] != "movie.mkv" {
		t.Fatalf("unexpected rows: %+v", resp.Rows)
	}
}

func TestDecompressPassthroughWithoutPrefix(t *testing.T) {
	raw := []byte("T001 300 PONG\n")
	out, err := Decompress(raw)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("Decompress() = %q, want passthrough", out)
	}
}

func TestDecompressInflatesZlib(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte("T001 220 FILE\n")); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	raw := append([]byte{0x00, 0x00}, buf.Bytes()...)
	out, err := Decompress(raw)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "T001 220 FILE\n" {
		t.Fatalf("Decompress() = %q", out)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := SessionKey("myapikey", "saltsalt")
	plaintext := []byte("T001 PING\n")
	ciphertext, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(ciphertext)%blockSize != 0 {
		t.Fatalf("ciphertext length %d not block aligned", len(ciphertext))
	}
	got, err := Decrypt(key, ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip = %q, want %q", got, plaintext)
	}
}

func TestEncryptPadsFullBlockWhenAligned(t *testing.T) {
	key := SessionKey("k", "s")
	plaintext := make([]byte, blockSize) // already aligned
	ciphertext, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(ciphertext) != 2*blockSize {
		t.Fatalf("len(ciphertext) = %d, want %d (extra padding block)", len(ciphertext), 2*blockSize)
	}
}
