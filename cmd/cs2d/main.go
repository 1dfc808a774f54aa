package main

import (
	"os"

	"github.com/danmuck/cs2kit/internal/config"
	"github.com/danmuck/cs2kit/internal/convert"
	"github.com/danmuck/cs2kit/internal/logging"
	"github.com/danmuck/cs2kit/internal/observability"
	"github.com/danmuck/cs2kit/internal/schemafile"
	"github.com/danmuck/cs2kit/internal/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	observability.InitLogger("cs2d")
	app := &cli.App{
		Name:  "cs2d",
		Usage: "serve CS2 conversion over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, EnvVars: []string{"CS2D_CONFIG"}, Usage: "TOML config file"},
			&cli.StringFlag{Name: "addr", Usage: "listen address, overrides the config"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.DefaultConfig()
			if path := c.String("config"); path != "" {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
				log.Info().Str("path", path).Msg("loaded cs2d config")
			}
			if c.IsSet("addr") {
				cfg.Addr = c.String("addr")
			}
			server, err := newServer(cfg)
			if err != nil {
				return err
			}
			return server.Serve()
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("cs2d stopped")
	}
}

func newServer(cfg config.Config) (*service.Server, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		zerolog.SetGlobalLevel(lvl)
		log.Logger = log.Logger.Level(lvl)
	}
	reg, err := schemafile.NewRegistry(cfg.SchemaDir)
	if err != nil {
		return nil, err
	}
	conv := convert.New(reg, convert.Options{
		TrailingNewline: cfg.TrailingNewline,
		DisallowUnknown: cfg.DisallowUnknown,
	})
	return service.New(service.Config{
		Name:         cfg.Name,
		Addr:         cfg.Addr,
		CorsOrigins:  cfg.CorsOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		APIToken:     cfg.APIToken,
	}, conv), nil
}
