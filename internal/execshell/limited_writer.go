package execshell

import "bytes"

// limitedBuffer keeps at most limit bytes and silently drops the rest.
// Write always reports the full length so the child never sees a broken pipe.
type limitedBuffer struct {
	buffer   bytes.Buffer
	limit    int
	overflow bool
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (limited *limitedBuffer) Write(data []byte) (int, error) {
	if limited.limit <= 0 {
		return limited.buffer.Write(data)
	}

	remaining := limited.limit - limited.buffer.Len()
	if remaining <= 0 {
		if len(data) > 0 {
			limited.overflow = true
		}
		return len(data), nil
	}
	if len(data) > remaining {
		limited.buffer.Write(data[:remaining])
		limited.overflow = true
		return len(data), nil
	}
	limited.buffer.Write(data)
	return len(data), nil
}

func (limited *limitedBuffer) String() string {
	return limited.buffer.String()
}

func (limited *limitedBuffer) Truncated() bool {
	return limited.overflow
}
