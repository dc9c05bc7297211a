// Command alertsim publishes synthetic alert topics to the NATS alert stream,
// for running the gateway with push.transport nats without a backend feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/your-org/sentinel/internal/config"
	"github.com/your-org/sentinel/internal/observability"
	"github.com/your-org/sentinel/internal/push"
	"github.com/your-org/sentinel/pkg/dto"
)

var messages = []string{
	"person detected",
	"vehicle in restricted zone",
	"loitering",
	"perimeter crossing",
}

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	interval := flag.Duration("interval", 5*time.Second, "time between alerts")
	cameras := flag.Int("cameras", 3, "number of camera ids to spread alerts over")
	startID := flag.Int64("start-id", time.Now().Unix(), "first alert id")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.NATS.URL == "" {
		slog.Error("nats.url is required")
		os.Exit(1)
	}

	pub, err := push.NewPublisher(cfg.NATS.URL, cfg.NATS.Stream)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer pub.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := pub.EnsureStream(ctx); err != nil {
		slog.Error("ensure stream", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	slog.Info("publishing synthetic alerts", "stream", cfg.NATS.Stream, "interval", interval.String())
	for id := *startID; ; id++ {
		if err := publishOne(ctx, pub, rng, id, *cameras); err != nil {
			slog.Warn("publish alert", "alert_id", id, "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("alertsim stopped")
			return
		case <-ticker.C:
		}
	}
}

func publishOne(ctx context.Context, pub *push.Publisher, rng *rand.Rand, id int64, cameras int) error {
	camera := int64(rng.Intn(cameras) + 1)
	msg := messages[rng.Intn(len(messages))]
	now := time.Now().UTC()
	score := 0.5 + rng.Float64()/2
	state := 0

	payload := dto.AlertPayload{
		ID:              &id,
		CameraID:        &camera,
		Message:         &msg,
		OccurredAt:      &now,
		ConfidenceScore: &score,
		State:           &state,
	}
	if err := pub.Publish(ctx, push.TopicNewAlert, payload); err != nil {
		return err
	}
	slog.Info("alert published", "alert_id", id, "camera_id", camera)

	// Annotate some of them a moment later.
	if rng.Intn(4) == 0 {
		desc := "auto-annotated by alertsim"
		return pub.Publish(ctx, push.TopicDescriptionUpdated, dto.DescriptionUpdate{ID: &id, Description: &desc})
	}
	return nil
}
