package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/cs2kit/internal/bridge"
	"github.com/danmuck/cs2kit/internal/config"
	"github.com/danmuck/cs2kit/internal/convert"
	"github.com/danmuck/cs2kit/internal/logging"
	"github.com/danmuck/cs2kit/internal/schemafile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "cs2ctl",
		Usage: "convert Central Station 2 files to and from YAML/JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "TOML config file"},
			&cli.StringFlag{Name: "schema-dir", Usage: "directory of extra *.toml schema files"},
			&cli.BoolFlag{Name: "no-trailing-newline", Usage: "omit the newline after the last CS2 line"},
			&cli.BoolFlag{Name: "disallow-unknown", Usage: "reject CS2 fields the schema does not declare"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "trace|debug|info|warn|error|off"},
		},
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "CS2 text to YAML or JSON",
				ArgsUsage: "[FILE|-]",
				Flags:     documentFlags(),
				Action:    runDecode,
			},
			{
				Name:      "encode",
				Usage:     "YAML or JSON to CS2 text",
				ArgsUsage: "[FILE|-]",
				Flags:     documentFlags(),
				Action:    runEncode,
			},
			{
				Name:      "validate",
				Usage:     "check CS2 files against a schema",
				ArgsUsage: "FILE...",
				Flags:     []cli.Flag{schemaFlag()},
				Action:    runValidate,
			},
			{
				Name:      "schemas",
				Usage:     "list schemas, or print one as TOML",
				ArgsUsage: "[NAME]",
				Action:    runSchemas,
			},
			{
				Name:  "init-config",
				Usage: "write a config or schema template",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "kind", Value: "cs2d", Usage: "cs2d|schema"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true},
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: func(c *cli.Context) error {
					if err := config.WriteTemplate(c.String("output"), c.String("kind"), c.Bool("force")); err != nil {
						return err
					}
					fmt.Fprintf(c.App.ErrWriter, "wrote %s template to %s\n", c.String("kind"), c.String("output"))
					return nil
				},
			},
		},
	}
}

func schemaFlag() cli.Flag {
	return &cli.StringFlag{Name: "schema", Aliases: []string{"s", "tag"}, Required: true, Usage: "registered schema name"}
}

func documentFlags() []cli.Flag {
	return []cli.Flag{
		schemaFlag(),
		&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "yaml", Usage: "yaml|json"},
	}
}

// loadConfig applies the config file, then any global flags set explicitly.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = c.String("log-level")
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
		if c.IsSet("log-level") {
			cfg.LogLevel = c.String("log-level")
		}
	}
	if c.IsSet("schema-dir") {
		cfg.SchemaDir = c.String("schema-dir")
	}
	if c.IsSet("no-trailing-newline") {
		cfg.TrailingNewline = !c.Bool("no-trailing-newline")
	}
	if c.IsSet("disallow-unknown") {
		cfg.DisallowUnknown = c.Bool("disallow-unknown")
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("config invalid: %w", err)
	}
	if lvl, ok := logging.ParseLevel(cfg.LogLevel); ok {
		zerolog.SetGlobalLevel(lvl)
		log.Logger = log.Logger.Level(lvl)
	}
	return cfg, nil
}

func newConverter(c *cli.Context) (*convert.Converter, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	reg, err := schemafile.NewRegistry(cfg.SchemaDir)
	if err != nil {
		return nil, err
	}
	return convert.New(reg, convert.Options{
		TrailingNewline: cfg.TrailingNewline,
		DisallowUnknown: cfg.DisallowUnknown,
	}), nil
}

func readInput(c *cli.Context) ([]byte, error) {
	path := c.Args().First()
	if path == "" || path == "-" {
		return io.ReadAll(c.App.Reader)
	}
	return os.ReadFile(path)
}

func runDecode(c *cli.Context) error {
	conv, err := newConverter(c)
	if err != nil {
		return err
	}
	format, err := bridge.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	in, err := readInput(c)
	if err != nil {
		return err
	}
	out, err := conv.ToDocument(c.String("schema"), format, in)
	if err != nil {
		return describe(err)
	}
	_, err = c.App.Writer.Write(out)
	return err
}

func runEncode(c *cli.Context) error {
	conv, err := newConverter(c)
	if err != nil {
		return err
	}
	format, err := bridge.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	in, err := readInput(c)
	if err != nil {
		return err
	}
	out, err := conv.FromDocument(c.String("schema"), format, in)
	if err != nil {
		return describe(err)
	}
	_, err = c.App.Writer.Write(out)
	return err
}

func runValidate(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("validate: no files given", 2)
	}
	conv, err := newConverter(c)
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err == nil {
			_, err = conv.Decode(c.String("schema"), data)
		}
		if err != nil {
			failed++
			info, _ := json.Marshal(convert.Describe(err))
			fmt.Fprintf(c.App.Writer, "%s: %s\n", path, info)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: ok\n", path)
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("validate: %d of %d files invalid", failed, c.NArg()), 1)
	}
	return nil
}

func runSchemas(c *cli.Context) error {
	conv, err := newConverter(c)
	if err != nil {
		return err
	}
	if name := c.Args().First(); name != "" {
		schema, err := conv.Schema(name)
		if err != nil {
			return describe(err)
		}
		out, err := schemafile.Format(schema)
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(out)
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, strings.Join(conv.Registry.Names(), "\n"))
	return err
}

func describe(err error) error {
	return fmt.Errorf("%w (kind=%s)", err, convert.Describe(err).Kind)
}
