package process

import (
	"bufio"
	"context"
	"io"
	"log/slog"
)

const maxLineLength = 1024 * 1024

// lineLogger is an io.Writer that logs each complete line to a logger.
type lineLogger struct {
	logger     *slog.Logger
	level      slog.Level
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	done       chan struct{}
}

// newLineLogger creates a lineLogger tagging every line with stream.
func newLineLogger(logger *slog.Logger, level slog.Level, stream string) *lineLogger {
	pr, pw := io.Pipe()
	ll := &lineLogger{
		logger:     logger.With("stream", stream),
		level:      level,
		pipeReader: pr,
		pipeWriter: pw,
		done:       make(chan struct{}),
	}
	go ll.processLines()
	return ll
}

// Write implements io.Writer by writing to the pipe.
func (ll *lineLogger) Write(p []byte) (int, error) {
	return ll.pipeWriter.Write(p)
}

func (ll *lineLogger) processLines() {
	defer close(ll.done)
	scanner := bufio.NewScanner(ll.pipeReader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		ll.logger.Log(context.Background(), ll.level, scanner.Text())
	}
	// Drain whatever is left so writers never block on an abandoned pipe.
	_, _ = io.Copy(io.Discard, ll.pipeReader)
}

// Close flushes the final partial line and waits until every line is logged.
func (ll *lineLogger) Close() error {
	err := ll.pipeWriter.Close()
	<-ll.done
	return err
}
