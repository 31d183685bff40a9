package offlinecache

import (
	"bufio"
	"bytes"
	"net/http"
)

// bytesToResponse converts a stored byte snapshot back into a http.Response.
func bytesToResponse(b []byte) (*http.Response, error) {
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(b)), nil)
}

// responseToBytes snapshots a response as its HTTP/1.1 wire representation.
// Writing the response consumes its body, so the body is replaced with a
// fresh reader over the snapshot before returning; the caller can still
// consume it.
func responseToBytes(res *http.Response) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := res.Write(buf); err != nil {
		return nil, err
	}
	bts := buf.Bytes()
	clone, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(bts)), res.Request)
	if err != nil {
		return nil, err
	}
	res.Body = clone.Body
	return bts, nil
}
