// Command i2ctrace reads the transfer engine trace the firmware streams on its
// UART and logs each event.
//
// Usage:
//
//	i2ctrace -device /dev/ttyUSB0 -board board.json
//	i2ctrace -replay capture.bin
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"golang.org/x/exp/slog"

	"stmi2c/config"
	"stmi2c/core"
	"stmi2c/host/serial"
	"stmi2c/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate")
	board   = flag.String("board", "", "Board description (JSON) used to name buses")
	replay  = flag.String("replay", "", "Decode a captured byte stream instead of the serial port")
	verbose = flag.Bool("verbose", false, "Log completions as well as errors")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(log); err != nil {
		log.Error("i2ctrace", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	names := map[uint8]string{}
	if *board != "" {
		data, err := os.ReadFile(*board)
		if err != nil {
			return err
		}
		b, err := config.Load(data)
		if err != nil {
			return fmt.Errorf("%s: %w", *board, err)
		}
		names = b.Names()
	}

	var r io.Reader
	if *replay != "" {
		f, err := os.Open(*replay)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	} else {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		port, err := serial.Open(cfg)
		if err != nil {
			return err
		}
		defer port.Close()
		if err := port.Flush(); err != nil {
			log.Warn("flush", "err", err)
		}
		log.Info("listening", "device", *device, "baud", *baud)
		r = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := decodeStream(ctx, r, log, names)
	logStats(ctx, log, st)
	return err
}

// decodeStream logs every record read from r until EOF or ctx is done. Error
// events log at warn level, the rest at debug.
func decodeStream(ctx context.Context, r io.Reader, log *slog.Logger, names map[uint8]string) (protocol.DecoderStats, error) {
	d := protocol.NewDecoder()
	buf := make([]byte, 256)
	var recs []protocol.TraceRecord
	for {
		if err := ctx.Err(); err != nil {
			return d.Stats(), nil
		}
		n, err := r.Read(buf)
		recs = d.Feed(buf[:n], recs[:0])
		for _, rec := range recs {
			logRecord(ctx, log, names, rec)
		}
		if errors.Is(err, io.EOF) {
			return d.Stats(), nil
		}
		if err != nil {
			return d.Stats(), err
		}
	}
}

// logStats reports the decoder counters, at warn level when frames were lost.
func logStats(ctx context.Context, log *slog.Logger, st protocol.DecoderStats) {
	level := slog.LevelInfo
	if st.Dropped > 0 || st.Lost > 0 {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, "done", "frames", st.Frames, "dropped", st.Dropped, "skipped", st.Skipped, "lost", st.Lost)
}

func logRecord(ctx context.Context, log *slog.Logger, names map[uint8]string, rec protocol.TraceRecord) {
	ev := core.Event(rec.Event)
	level := slog.LevelDebug
	if ev.IsError() {
		level = slog.LevelWarn
	}
	name, ok := names[rec.Bus]
	if !ok {
		name = fmt.Sprintf("i2c%d", rec.Bus)
	}
	log.Log(ctx, level, "event",
		"bus", name,
		"event", ev.String(),
		"us", core.TimerToUS(rec.Clock),
		"remaining", rec.Remaining)
}
