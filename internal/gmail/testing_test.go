package gmail

import (
	"io"
	"log/slog"
	"time"
)

const (
	testWaitTimeout = 2 * time.Second
	testWaitTick    = 5 * time.Millisecond
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
