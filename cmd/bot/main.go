package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"voxelarena/client"
	"voxelarena/config"
	"voxelarena/logging"
	"voxelarena/protocol"
)

// 无头机器人：加入世界，按固定路线走动并节流上报位姿
func main() {
	var (
		cfgPath string
		url     string
		bots    int
		world   string
		turn    float64
	)
	flag.StringVar(&cfgPath, "config", "", "path to YAML config")
	flag.StringVar(&url, "url", "", "coordinator websocket url (overrides config)")
	flag.StringVar(&world, "world", "", "world name")
	flag.IntVar(&bots, "bots", 1, "number of bots to run")
	flag.Float64Var(&turn, "turn", 0.6, "yaw change per second in radians")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	if url != "" {
		cfg.Client.URL = url
	}
	if world != "" {
		cfg.Client.URL += "?world=" + world
	}
	if err := logging.InitLogger(logging.Options{Level: cfg.Log.Level, Console: true}); err != nil {
		panic(err)
	}
	defer logging.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < bots; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			runBot(ctx, cfg, i, turn)
		}(i)
	}
	wg.Wait()
	logging.Log.Info("bots stopped")
}

func runBot(ctx context.Context, cfg *config.Config, index int, turn float64) {
	opts := client.DefaultOptions()
	opts.EmitInterval = cfg.Client.EmitInterval
	opts.Tuning.MaxSpeed = cfg.Client.MaxSpeed
	opts.Spawn = protocol.Vec3{X: float64(index) * 10, Y: 2}

	c := client.New(cfg.Client.URL, nil, opts)
	c.TickRate = cfg.Client.TickRate

	var last time.Time
	c.OnTick = func(s *client.Session, now time.Time) {
		avatar := s.Avatar()
		if !last.IsZero() {
			avatar.Yaw += turn * now.Sub(last).Seconds()
		}
		last = now
		// 间歇前进：不限速时避免速度无限增长
		avatar.Input.Forward = math.Mod(float64(now.UnixMilli())/1000, 2) < 1
		if avatar.CanJump() && now.UnixMilli()%5000 < 20 {
			avatar.Jump()
		}
	}

	if err := c.RunWithRetry(ctx, 2*time.Second); err != nil && ctx.Err() == nil {
		logging.Log.Errorf("bot %d: %v", index, err)
	}
}
