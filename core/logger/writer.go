package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// sink owns the log outputs. Lines are handed to a single goroutine that buffers them
// and flushes whenever the queue runs dry, so a burst of events costs one syscall per
// output. Flush is a barrier: it returns once every line queued before it is written.
type sink struct {
	queue  chan entry
	done   chan struct{}
	stop   sync.Once
	outs   []*bufio.Writer
	files  []io.Closer
	mu     sync.Mutex
	failed error
}

// entry is either a line to write or, when ack is set, a flush request.
type entry struct {
	line []byte
	ack  chan error
}

func newSink(outputs []io.Writer, files []io.Closer) *sink {
	s := &sink{
		queue: make(chan entry, 512),
		done:  make(chan struct{}),
		files: files,
	}
	for _, w := range outputs {
		if w != nil {
			s.outs = append(s.outs, bufio.NewWriterSize(w, 32*1024))
		}
	}
	go s.run()
	return s
}

func (s *sink) run() {
	defer close(s.done)
	for e := range s.queue {
		if e.ack != nil {
			e.ack <- s.flush()
			continue
		}
		s.fail(s.emit(e.line))
		if len(s.queue) == 0 {
			s.fail(s.flush())
		}
	}
	s.fail(s.flush())
}

// write queues a copy of line. It blocks when the queue is full rather than dropping.
func (s *sink) write(line []byte) error {
	if err := s.err(); err != nil {
		return err
	}
	s.queue <- entry{line: append([]byte(nil), line...)}
	return nil
}

// Flush blocks until every line queued so far reached the outputs.
func (s *sink) Flush() error {
	ack := make(chan error, 1)
	select {
	case <-s.done:
		return s.err()
	default:
	}
	s.queue <- entry{ack: ack}
	return <-ack
}

// Close drains the queue, flushes, and closes the files the sink opened.
func (s *sink) Close() error {
	s.stop.Do(func() { close(s.queue) })
	<-s.done
	errs := []error{s.err()}
	for _, f := range s.files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

func (s *sink) emit(line []byte) error {
	for _, out := range s.outs {
		if _, err := out.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (s *sink) flush() error {
	var errs []error
	for _, out := range s.outs {
		errs = append(errs, out.Flush())
	}
	return errors.Join(errs...)
}

func (s *sink) fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.failed == nil {
		s.failed = err
	}
	s.mu.Unlock()
}

func (s *sink) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}
