package sss

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/tevino/abool/v2"
)

// StreamIOError reports a failed read or write on a pipe's underlying
// stream. It ends that pipe's sequence; it does not abort other pipes.
type StreamIOError struct {
	Op  string
	Err error
}

func (e *StreamIOError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamIOError) Unwrap() error {
	return e.Err
}

// Pipe is a lazy, single-pass, line-oriented sequence of text. Next yields
// the next line, io.EOF once the sequence is over, or a *StreamIOError if the
// underlying stream failed; after either, the pipe is exhausted for good.
type Pipe interface {
	Next() (string, error)
}

// Lines in flight per OS stream. Keeping this small bounds memory while still
// decoupling the child's write pace from the script's read pace; a child that
// outruns the script simply blocks on its own OS pipe buffer.
const streamBuf = 16

// streamPipe reads one OS-level stream in a background goroutine, splitting
// it into lines. The goroutine is the only reader of the descriptor, so two
// children (or two streams of one child) never serialize on each other.
type streamPipe struct {
	lines     chan string
	err       error // set before lines is closed
	delivered bool
	exhausted *abool.AtomicBool
}

func newStreamPipe(r io.ReadCloser, quit <-chan struct{}) *streamPipe {
	p := &streamPipe{
		lines:     make(chan string, streamBuf),
		exhausted: abool.New(),
	}

	go p.scan(r, quit)

	return p
}

func (p *streamPipe) scan(r io.ReadCloser, quit <-chan struct{}) {
	defer close(p.lines)
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		select {
		case p.lines <- sc.Text():
		case <-quit:
			return
		}
	}

	if err := sc.Err(); err != nil {
		p.err = &StreamIOError{Op: "read", Err: err}
	}
}

func (p *streamPipe) Next() (string, error) {
	line, ok := <-p.lines
	if !ok {
		p.exhausted.Set()

		if p.err != nil && !p.delivered {
			p.delivered = true
			return "", p.err
		}

		return "", io.EOF
	}

	return line, nil
}

// ConcatPipes is the `+` combinator: every line of left, then every line of
// right. Reading stays lazy; right is not touched until left ends.
func ConcatPipes(left, right Pipe) Pipe {
	return &concatPipe{left: left, right: right}
}

type concatPipe struct {
	left, right Pipe
	leftDone    bool
}

func (p *concatPipe) Next() (string, error) {
	if !p.leftDone {
		line, err := p.left.Next()
		if err == nil {
			return line, nil
		}

		p.leftDone = true
		if err != io.EOF {
			return "", err
		}
	}

	return p.right.Next()
}

// ZipPipes is the `zip` combinator: one line from a, one from b, alternating;
// once a side ends the other contributes the remainder consecutively.
func ZipPipes(a, b Pipe) Pipe {
	return &zipPipe{a: a, b: b}
}

type zipPipe struct {
	a, b         Pipe
	aDone, bDone bool
	turnB        bool
}

func (p *zipPipe) Next() (string, error) {
	for {
		if p.aDone && p.bDone {
			return "", io.EOF
		}

		readB := p.turnB
		if p.aDone {
			readB = true
		} else if p.bDone {
			readB = false
		}
		p.turnB = !readB

		var line string
		var err error
		if readB {
			line, err = p.b.Next()
		} else {
			line, err = p.a.Next()
		}

		if err != nil {
			if readB {
				p.bDone = true
			} else {
				p.aDone = true
			}

			if err == io.EOF {
				continue
			}

			return "", err
		}

		return line, nil
	}
}

// WritePipe drains a pipe to completion, emitting each line newline
// terminated.
func WritePipe(p Pipe, w io.Writer) error {
	for {
		line, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return &StreamIOError{Op: "write", Err: err}
		}
	}
}

// WritePipeFile drains a pipe into a file with truncate-create semantics.
func WritePipeFile(p Pipe, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &StreamIOError{Op: "create " + path, Err: err}
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := WritePipe(p, w); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return &StreamIOError{Op: "write " + path, Err: err}
	}

	return nil
}

// feedPipe streams a pipe into a child's stdin line by line, closing it at
// end-of-sequence. A write failure means the child stopped reading; feeding
// just stops.
func feedPipe(src Pipe, w io.WriteCloser) {
	defer w.Close()

	for {
		line, err := src.Next()
		if err != nil {
			return
		}

		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return
		}
	}
}
