package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramer_PartialThenComplete(t *testing.T) {
	var f Framer

	f.Feed([]byte("mess"))
	_, ok := f.Next()
	assert.False(t, ok, "partial record must not be emitted")
	assert.True(t, f.Pending())

	f.Feed([]byte("age\n"))
	line, ok := f.Next()
	assert.True(t, ok)
	assert.Equal(t, "message", line)
	assert.False(t, f.Pending())
}

func TestFramer_CoalescedRecords(t *testing.T) {
	var f Framer

	// One read carrying two complete records and the start of a third.
	f.Feed([]byte("message\n{\"id\":\"1\"}\nusers"))

	line, ok := f.Next()
	assert.True(t, ok)
	assert.Equal(t, "message", line)

	line, ok = f.Next()
	assert.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, line)

	_, ok = f.Next()
	assert.False(t, ok)
	assert.True(t, f.Pending())

	f.Feed([]byte("\n"))
	line, ok = f.Next()
	assert.True(t, ok)
	assert.Equal(t, "users", line)
}

func TestFramer_ByteAtATime(t *testing.T) {
	var f Framer
	input := "send\npayload\n"

	var got []string
	for i := 0; i < len(input); i++ {
		f.Feed([]byte{input[i]})
		for {
			line, ok := f.Next()
			if !ok {
				break
			}
			got = append(got, line)
		}
	}
	assert.Equal(t, []string{"send", "payload"}, got)
}

func TestFramer_EmptyLines(t *testing.T) {
	var f Framer
	f.Feed([]byte("\n\nhello\n"))

	line, ok := f.Next()
	assert.True(t, ok)
	assert.Equal(t, "", line)
	line, ok = f.Next()
	assert.True(t, ok)
	assert.Equal(t, "", line)
	line, ok = f.Next()
	assert.True(t, ok)
	assert.Equal(t, "hello", line)
}
