// Command consolidation-proof is the CLI front door for this module: it
// generates JSON test vectors for the Solidity contract's test suite, and
// runs the scanner and status API service against a live beacon node
// (the submitter is not started).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/dapplion/consolidation-incentives-go/apiserver"
	"github.com/dapplion/consolidation-incentives-go/config"
	"github.com/dapplion/consolidation-incentives-go/scanner"
	"github.com/dapplion/consolidation-incentives-go/testvectors"
)

func main() {
	app := &cli.App{
		Name:  "consolidation-proof",
		Usage: "Merkle proof tooling for Gnosis consolidation incentives",
		Commands: []*cli.Command{
			testVectorsCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("consolidation-proof failed")
	}
}

func testVectorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "testvectors",
		Usage: "generate JSON test vectors for the Solidity contract's test suite",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Value: "contracts/test-vectors",
				Usage: "output directory for generated test vectors",
			},
			&cli.StringFlag{
				Name:  "preset",
				Value: "production",
				Usage: `capacity preset: "production" or "test"`,
			},
		},
		Action: func(c *cli.Context) error {
			preset, err := testvectors.PresetByName(c.String("preset"))
			if err != nil {
				return err
			}

			vectors, err := testvectors.Generate(preset)
			if err != nil {
				return fmt.Errorf("generating test vectors: %w", err)
			}

			outputDir := c.String("output")
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("creating output directory %s: %w", outputDir, err)
			}

			for _, v := range vectors {
				path := outputDir + "/" + v.Name + ".json"
				data, err := json.MarshalIndent(v.Bundle, "", "  ")
				if err != nil {
					return fmt.Errorf("marshaling vector %s: %w", v.Name, err)
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
				logrus.WithField("path", path).Info("wrote test vector")
			}
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the beacon-chain scanner and status API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file"},
			&cli.StringFlag{Name: "beacon-url", EnvVars: []string{"BEACON_URL"}},
			&cli.StringFlag{Name: "listen", EnvVars: []string{"LISTEN_ADDR"}},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if v := c.String("beacon-url"); v != "" {
				cfg.BeaconURL = v
			}
			if v := c.String("listen"); v != "" {
				cfg.ListenAddr = v
			}

			logrus.WithFields(logrus.Fields{
				"beacon_url": cfg.BeaconURL,
				"listen":     cfg.ListenAddr,
			}).Info("starting consolidation incentives service")

			store := scanner.NewStore(time.Now().Unix())
			sc := scanner.New(scanner.Config{
				BeaconURL:     cfg.BeaconURL,
				PollInterval:  cfg.PollInterval,
				SlotsPerEpoch: cfg.SlotsPerEpoch,
			}, store, logrus.WithField("component", "scanner"))
			api := apiserver.New(store, cfg.MaxSlotsBehind, logrus.WithField("component", "apiserver"))

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			go sc.Run(ctx)

			errCh := make(chan error, 1)
			go func() { errCh <- api.ListenAndServe(cfg.ListenAddr) }()

			select {
			case <-ctx.Done():
				logrus.Info("received shutdown signal")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("API server error: %w", err)
				}
			}
			return nil
		},
	}
}
