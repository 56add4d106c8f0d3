package main

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/daniu006/qrgate/internal/config"
	"github.com/daniu006/qrgate/internal/db"
	"github.com/daniu006/qrgate/internal/qrgate/actuator"
	"github.com/daniu006/qrgate/internal/qrgate/dedupe"
	"github.com/daniu006/qrgate/internal/qrgate/remote"
	"github.com/daniu006/qrgate/internal/qrgate/service"
	"github.com/daniu006/qrgate/internal/qrgate/store"
	sqlitestore "github.com/daniu006/qrgate/internal/qrgate/store/sqlite"
)

// qrgate reads decoded QR payloads, one per line, from stdin and runs each
// through the access pipeline.  Pair it with any decoder that emits raw
// strings, e.g. `zbarcam --raw | qrgate`.
func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "qrgate ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatalf("open audit db: %v", err)
	}
	defer conn.Close()

	writer := db.NewWorker(conn)
	defer writer.Close()
	auditLog := sqlitestore.NewAccessLogStore(conn, writer)

	act := actuator.OpenSerial(cfg.SerialPort, cfg.SerialBaud, logger)
	defer act.Close()

	pipeline := service.NewPipeline(service.Dependencies{
		Logger:      logger,
		Gate:        dedupe.New(cfg.ScanCooldown),
		Validator:   remote.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout),
		AuditLog:    auditLog,
		Actuator:    act,
		Display:     service.NewDisplayHolder(),
		DisplayTTL:  cfg.DisplayTTL,
		LogPayloads: cfg.Env == "dev",
	})

	logger.Printf("scanning (api=%s db=%s cooldown=%s)", cfg.APIBaseURL, cfg.DBPath, cfg.ScanCooldown)

	run(ctx, logger, pipeline, readLines(os.Stdin))

	printReport(logger, auditLog)
}

// run consumes payloads until the input closes or a stop signal arrives.
// An in-flight scan always completes: HandleScan gets a context that
// survives cancellation so no mid-flight remote call is interrupted.
func run(ctx context.Context, logger *log.Logger, pipeline *service.Pipeline, payloads <-chan string) {
	scanCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Printf("stop requested")
			return
		case payload, ok := <-payloads:
			if !ok {
				logger.Printf("input closed")
				return
			}
			pipeline.HandleScan(scanCtx, payload)
		}
	}
}

// readLines feeds non-empty trimmed lines from r into a channel, closing it
// on EOF.
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" {
				ch <- line
			}
		}
	}()
	return ch
}

// printReport logs access statistics and the most recent audit records on
// the way out.
func printReport(logger *log.Logger, auditLog store.AccessLogStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st, err := auditLog.Stats(ctx)
	if err != nil {
		logger.Printf("stats: %v", err)
		return
	}
	logger.Printf("access stats: total=%d granted=%d denied=%d", st.Total, st.Granted, st.Denied)
	if st.Total > 0 {
		logger.Printf("grant rate: %.1f%%", float64(st.Granted)/float64(st.Total)*100)
	}

	recs, err := auditLog.Recent(ctx, 5)
	if err != nil {
		logger.Printf("recent logs: %v", err)
		return
	}
	for _, r := range recs {
		logger.Printf("  %s | %-19s | granted=%-5v | %s",
			r.Timestamp.Format(time.RFC3339), r.ResultKind, r.AccessGranted, truncate(r.Payload, 20))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
