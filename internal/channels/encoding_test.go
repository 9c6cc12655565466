package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTextValidUTF8PassesThrough(t *testing.T) {
	raw := []byte("order-id\tsku\nA-1001\tWIDGET-12")

	assert.Equal(t, string(raw), DecodeText(raw, "test"))
}

func TestDecodeTextFallsBackToWindows1252(t *testing.T) {
	// 0xE9 is é in Windows-1252 but an invalid UTF-8 sequence on its own
	raw := []byte("Caf\xe9 Ren\xe9")

	assert.Equal(t, "Café René", DecodeText(raw, "test"))
}

func TestDecodeTextCurlyQuotes(t *testing.T) {
	// Windows-1252 smart quotes sit in the 0x80-0x9F range
	raw := []byte("\x93Widget\x94 \x96 12 pack")

	assert.Equal(t, "“Widget” – 12 pack", DecodeText(raw, "test"))
}

func TestLooksMojibake(t *testing.T) {
	assert.False(t, looksMojibake(""))
	assert.False(t, looksMojibake("plain ascii text"))
	assert.False(t, looksMojibake("unicode café text"))
	assert.True(t, looksMojibake("Caf� Ren�"))
}
