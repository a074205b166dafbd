package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/hfncore/internal/codec"
	"github.com/tzrikka/hfncore/internal/logger"
	"github.com/tzrikka/hfncore/pkg/hfncore"
)

const (
	ConfigFilePath  = "./hfncore.toml"
	DefaultBindPort = 8080
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "hfncore",
		Usage:   "application gateway runtime: terminates client WebSockets, or multiplexes them over a devtools uplink",
		Version: bi.Main.Version,
		Flags:   flags(),
		Action:  run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	path := altsrc.StringSourcer(ConfigFilePath)

	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human-readable console logging, instead of JSON",
		},
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "dev mode: multiplex virtual sockets over a single devtools uplink, instead of terminating WebSockets directly",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HFN_DEV"),
				toml.TOML("core.dev", path),
			),
		},
		&cli.IntFlag{
			Name:  "bind-port",
			Usage: "local port number for the server-mode WebSocket listener",
			Value: DefaultBindPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HFN_BIND_PORT"),
				toml.TOML("core.bind_port", path),
			),
			Validator: validatePort,
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to the hfn.json descriptor (overridden by HFN_CONFIG_PATH)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HFN_CONFIG"),
				toml.TOML("core.config", path),
			),
		},
		&cli.StringFlag{
			Name:  "sdk",
			Usage: "identifier of the host SDK driving this process",
			Value: "hfncore-go",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HFN_SDK"),
				toml.TOML("core.sdk", path),
			),
		},
		&cli.StringFlag{
			Name:  "upstream-id",
			Usage: "dev-mode upstream id to present to the devtools relay (generated if empty)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HFN_UPSTREAM_ID"),
				toml.TOML("core.upstream_id", path),
			),
		},
		&cli.UintFlag{
			Name:  "worker-threads",
			Usage: "size of the cooperative task worker pool (0 lets the runtime choose)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("HFN_WORKER_THREADS"),
				toml.TOML("core.worker_threads", path),
			),
		},
	}
}

func validatePort(p int) error {
	if p < 0 || p > 65535 {
		return fmt.Errorf("out of range [0-65535]")
	}
	return nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	initLog(cmd.Bool("pretty-log"))
	log := logger.FromContext(ctx)

	args := codec.InitArgs{
		Dev: cmd.Bool("dev"),
		SDK: cmd.String("sdk"),
	}
	if v := cmd.String("config"); v != "" {
		args.HasHfnConfigPath, args.HfnConfigPath = true, v
	}
	if v := cmd.String("upstream-id"); v != "" {
		args.HasUpstreamID, args.UpstreamID = true, v
	}
	if v := cmd.Uint("worker-threads"); v > 0 {
		args.HasWorkerThreads, args.WorkerThreads = true, uint32(v) //nolint:gosec // CLI-bounded value.
	}

	result, err := hfncore.Init(codec.EncodeInitArgs(args))
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	r, err := codec.DecodeInitResult(result)
	if err != nil {
		return fmt.Errorf("decoding init result: %w", err)
	}
	log.Info().Str("upstream_id", r.UpstreamID).Int("packages", len(r.Packages)).
		Int("modules", len(r.Modules)).Int("hfns", len(r.Hfns)).Msg("initialized")

	if err := hfncore.Run(ctx, cmd.Int("bind-port")); err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	for {
		data, err := hfncore.Read()
		if err != nil {
			log.Err(err).Msg("read pipe closed")
			return nil
		}
		pkgID, headers, payload, socketID, ok := codec.DecodeHostMessage(data)
		if !ok {
			log.Warn().Msg("dropping unparseable read-pipe message")
			continue
		}
		log.Info().Str("socket_id", socketID).Int32("pkg_id", pkgID).
			Int("headers", len(headers)).Int("payload_len", len(payload)).Msg("message received")
	}
}

// initLog initializes the process-wide zerolog logger, based on whether
// pretty (human-readable) console output was requested.
func initLog(pretty bool) {
	logger.Init(pretty)
}
