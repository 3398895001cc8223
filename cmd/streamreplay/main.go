package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/bridgenotify/internal/bridge"
	"github.com/ent0n29/bridgenotify/internal/logging"
	"github.com/ent0n29/bridgenotify/internal/protocol"
)

type options struct {
	baseURL   string
	bridgeURL string
	callSID   string
	sender    string
	transport string
	frames    int
	frameGap  time.Duration
	hold      time.Duration
	verbose   bool
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamreplay: %v\n", err)
		os.Exit(2)
	}

	level := "info"
	if cfg.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "streamreplay: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "streamreplay: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var frameGapMS, holdMS int

	fs := flag.NewFlagSet("streamreplay", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8080", "bridgenotify base URL; the replay drives its media stream endpoint")
	fs.StringVar(&cfg.bridgeURL, "bridge-url", "", "notify this bridge directly instead of replaying a media stream")
	fs.StringVar(&cfg.callSID, "call-sid", "", "call SID for the synthetic session (random when empty)")
	fs.StringVar(&cfg.sender, "sender", "+15550000000", "caller identity passed as the From parameter")
	fs.StringVar(&cfg.transport, "transport", "twilio", "transport label for direct bridge notifications")
	fs.IntVar(&cfg.frames, "frames", 25, "number of media frames to send between start and stop")
	fs.IntVar(&frameGapMS, "frame-gap-ms", 20, "delay between media frames in milliseconds")
	fs.IntVar(&holdMS, "hold-ms", 0, "pause between start and end in direct mode, in milliseconds")
	fs.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	cfg.bridgeURL = strings.TrimSpace(cfg.bridgeURL)
	if cfg.baseURL == "" && cfg.bridgeURL == "" {
		return options{}, fmt.Errorf("base-url or bridge-url is required")
	}
	if cfg.frames < 0 {
		return options{}, fmt.Errorf("frames must be >= 0")
	}
	if frameGapMS < 0 {
		frameGapMS = 0
	}
	if holdMS < 0 {
		holdMS = 0
	}
	cfg.frameGap = time.Duration(frameGapMS) * time.Millisecond
	cfg.hold = time.Duration(holdMS) * time.Millisecond
	if strings.TrimSpace(cfg.callSID) == "" {
		cfg.callSID = "CA" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg options) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	if cfg.bridgeURL != "" {
		return runDirect(ctx, cfg)
	}
	return runStream(ctx, cfg)
}

// runDirect exercises the bridge without a running service. Outcomes only
// show up in the log, exactly as they would inside the service.
func runDirect(ctx context.Context, cfg options) error {
	if cfg.verbose {
		fmt.Printf("streamreplay: direct call_sid=%s bridge=%s\n", cfg.callSID, cfg.bridgeURL)
	}
	bridge.NotifySessionStarted(ctx, cfg.bridgeURL, cfg.callSID, cfg.sender, cfg.transport)
	if cfg.hold > 0 {
		time.Sleep(cfg.hold)
	}
	bridge.NotifyCallEnded(ctx, cfg.bridgeURL, cfg.callSID)
	return nil
}

func runStream(ctx context.Context, cfg options) error {
	wsURL, err := streamURL(cfg.baseURL)
	if err != nil {
		return fmt.Errorf("build stream URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	streamSID := "MZ" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if cfg.verbose {
		fmt.Printf("streamreplay: call_sid=%s stream_sid=%s frames=%d\n", cfg.callSID, streamSID, cfg.frames)
	}

	if err := conn.WriteJSON(protocol.Connected{Event: protocol.EventConnected, Protocol: "Call", Version: "1.0.0"}); err != nil {
		return fmt.Errorf("send connected: %w", err)
	}
	if err := conn.WriteJSON(startFrame(cfg.callSID, streamSID, cfg.sender)); err != nil {
		return fmt.Errorf("send start: %w", err)
	}
	silence := base64.StdEncoding.EncodeToString(make([]byte, 160))
	for i := 0; i < cfg.frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := conn.WriteJSON(mediaFrame(streamSID, i+1, silence)); err != nil {
			return fmt.Errorf("send media %d: %w", i+1, err)
		}
		if cfg.frameGap > 0 {
			time.Sleep(cfg.frameGap)
		}
	}
	if err := conn.WriteJSON(stopFrame(cfg.callSID, streamSID, cfg.frames+2)); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	if cfg.verbose {
		fmt.Println("streamreplay: replay completed")
	}
	return nil
}

func streamURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/twilio/stream"
	return u.String(), nil
}

func startFrame(callSID, streamSID, sender string) protocol.Start {
	return protocol.Start{
		Event:          protocol.EventStart,
		SequenceNumber: "1",
		StreamSID:      streamSID,
		Start: protocol.StartMeta{
			StreamSID:        streamSID,
			CallSID:          callSID,
			Tracks:           []string{"inbound"},
			CustomParameters: map[string]string{"From": sender},
		},
	}
}

func mediaFrame(streamSID string, chunk int, payload string) protocol.Media {
	return protocol.Media{
		Event:          protocol.EventMedia,
		SequenceNumber: strconv.Itoa(chunk + 1),
		StreamSID:      streamSID,
		Media: protocol.MediaPayload{
			Track:     "inbound",
			Chunk:     strconv.Itoa(chunk),
			Timestamp: strconv.Itoa(chunk * 20),
			Payload:   payload,
		},
	}
}

// stopFrame closes the stream; seq follows the start frame and every media
// frame.
func stopFrame(callSID, streamSID string, seq int) protocol.Stop {
	var msg protocol.Stop
	msg.Event = protocol.EventStop
	msg.SequenceNumber = strconv.Itoa(seq)
	msg.StreamSID = streamSID
	msg.Stop.CallSID = callSID
	return msg
}
