package tailer

import (
	"bufio"
	"bytes"
)

// lineEnd terminates VRChat log lines. A bare LF is part of the line.
var lineEnd = []byte("\r\n")

// ReadLine reads one CR LF terminated line from br and returns it without
// the terminator. buf is reused as the result's backing array. Over a
// Reader it blocks until a complete line is written; partial lines stay
// buffered.
func ReadLine(br *bufio.Reader, buf []byte) ([]byte, error) {
	buf = buf[:0]
	for {
		chunk, err := br.ReadSlice('\n')
		buf = append(buf, chunk...)
		switch err {
		case nil:
			if bytes.HasSuffix(buf, lineEnd) {
				return buf[:len(buf)-len(lineEnd)], nil
			}
		case bufio.ErrBufferFull:
		default:
			return buf, err
		}
	}
}
