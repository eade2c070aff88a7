package wire

import (
	"bytes"
	"strings"
)

// frame is one request cut from the byte stream. tooLong marks a line
// that outgrew the read buffer and must be answered with Failure.
type frame struct {
	request string
	tooLong bool
}

// framer cuts a connection's reads into requests. Until the first newline
// is seen every read is a single request answered without a delimiter.
// After that the connection is line framed: each newline-terminated line
// is a request and the bytes after the last newline wait for the next read.
type framer struct {
	max        int
	framed     bool
	carry      []byte
	discarding bool
}

func newFramer(max int) *framer {
	return &framer{max: max}
}

// feed consumes one read and returns the requests it completes.
func (f *framer) feed(chunk []byte) []frame {
	if !f.framed && bytes.IndexByte(chunk, '\n') < 0 {
		if request := strings.TrimSpace(string(chunk)); request != "" {
			return []frame{{request: request}}
		}
		return nil
	}
	f.framed = true

	data := append(f.carry, chunk...)
	f.carry = nil

	var frames []frame
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := data[:i]
		data = data[i+1:]

		if f.discarding {
			// tail of a line already answered as too long
			f.discarding = false
			continue
		}
		if len(line) > f.max {
			frames = append(frames, frame{tooLong: true})
			continue
		}
		if request := strings.TrimSpace(string(line)); request != "" {
			frames = append(frames, frame{request: request})
		}
	}

	if f.discarding {
		return frames
	}
	if len(data) > f.max {
		frames = append(frames, frame{tooLong: true})
		f.discarding = true
		return frames
	}
	if len(data) > 0 {
		f.carry = append([]byte(nil), data...)
	}
	return frames
}

// lineFramed reports whether responses must be newline-terminated.
func (f *framer) lineFramed() bool {
	return f.framed
}

// pending returns the unterminated bytes held for the next read.
func (f *framer) pending() int {
	return len(f.carry)
}
