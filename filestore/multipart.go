// Copyright (c) 2025 The DataKeep Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package filestore

// Uploads arrive as multipart/form-data bodies that may be many gigabytes,
// so the body is never buffered whole: the scanner below peels the boundary
// and the part headers off a bounded stream and hands the part body to the
// hasher and the file writer in small chunks.

import (
	"bufio"
	"io"
	"mime"
	"strings"
)

const chunkSize = 4096

// a multipart file part being streamed
type filePart struct {
	// the filename from the part's Content-Disposition, if any
	Filename string
	reader   *bufio.Reader
	// "\r\n--" + boundary
	delimiter []byte
	// set once the part body ended at a well-formed boundary
	terminated bool
}

// parseBoundary extracts the multipart boundary from a Content-Type header.
func parseBoundary(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return "", &MissingBoundaryError{}
	}
	boundary := params["boundary"]
	if boundary == "" {
		return "", &MissingBoundaryError{}
	}
	return boundary, nil
}

// openFilePart reads the preamble and part headers off the stream, stopping
// at the first part that carries a filename (or, failing that, the first
// part at all). The reader must already be bounded by Content-Length.
func openFilePart(body io.Reader, boundary string) (*filePart, error) {
	reader := bufio.NewReaderSize(body, chunkSize)

	// skip the preamble: everything up to the first boundary line
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, &NoFilePartError{}
		}
		if strings.TrimRight(line, "\r\n") == "--"+boundary {
			break
		}
	}

	part := &filePart{
		reader:    reader,
		delimiter: []byte("\r\n--" + boundary),
	}

	// part headers end at the first blank line
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, &NoFilePartError{}
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, found := strings.Cut(line, ":")
		if !found || !strings.EqualFold(strings.TrimSpace(name), "Content-Disposition") {
			continue
		}
		if _, params, err := mime.ParseMediaType(strings.TrimSpace(value)); err == nil {
			part.Filename = params["filename"]
		}
	}
	return part, nil
}

// copyBody streams the part body to dst in 4 KiB chunks, stopping at the
// part's boundary delimiter. It reports the number of body bytes written and
// whether the body ended at a well-formed boundary; a short read (client
// disconnect, truncated body) yields terminated == false without an error.
func (part *filePart) copyBody(dst io.Writer) (int64, bool, error) {
	var written int64
	chunk := make([]byte, 0, chunkSize)
	matched := 0

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := dst.Write(chunk)
		written += int64(n)
		chunk = chunk[:0]
		return err
	}

	for {
		b, err := part.reader.ReadByte()
		if err != nil {
			// the matched delimiter prefix turned out to be body bytes
			chunk = append(chunk, part.delimiter[:matched]...)
			if flushErr := flush(); flushErr != nil {
				return written, false, flushErr
			}
			if err == io.EOF {
				return written, false, nil
			}
			return written, false, err
		}

		if b == part.delimiter[matched] {
			matched++
			if matched == len(part.delimiter) {
				if err := flush(); err != nil {
					return written, false, err
				}
				part.terminated = part.readTerminator()
				return written, part.terminated, nil
			}
			continue
		}
		if matched > 0 {
			chunk = append(chunk, part.delimiter[:matched]...)
			matched = 0
			if b == part.delimiter[0] {
				matched = 1
				continue
			}
		}
		chunk = append(chunk, b)
		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return written, false, err
			}
		}
	}
}

// readTerminator consumes what follows the boundary delimiter: "--" closes
// the multipart body, CRLF opens another part. Anything else is a malformed
// terminator.
func (part *filePart) readTerminator() bool {
	two := make([]byte, 2)
	if _, err := io.ReadFull(part.reader, two); err != nil {
		return false
	}
	return string(two) == "--" || string(two) == "\r\n"
}
