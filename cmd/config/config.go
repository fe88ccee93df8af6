// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config implements the config subcommand.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/TylerBrock/colorjson"
	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/mysh/cmd/cmdstate"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const formatFlag = "format"

// ErrUnknownFormat is returned for a --format other than yaml or json.
var ErrUnknownFormat = errors.New("unknown output format")

// ConfigCmd prints the effective configuration.
var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Print the effective configuration",
	Description: `Print the configuration after defaults, the --config file and
MYSH_CONFIG have been applied. The YAML output is a valid config file.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    formatFlag,
			Aliases: []string{"o"},
			Usage:   "Output format, yaml or json",
			Value:   "yaml",
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	cfg := cmdstate.Config(ctx)

	out, err := cfg.Marshal()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	switch cmd.String(formatFlag) {
	case "yaml":
	case "json":
		colour := os.Getenv("NO_COLOR") == "" && cmd.Root().Writer == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))

		out, err = toJSON(out, colour)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		out = append(out, '\n')
	default:
		return cli.Exit(fmt.Sprintf("%s: %s", ErrUnknownFormat, cmd.String(formatFlag)), 1)
	}

	_, err = cmd.Root().Writer.Write(out)

	return err
}

// toJSON re-encodes the YAML rendering so the keys match the config file.
// The map passes through encoding/json first: colorjson only formats float64
// numbers and YAML decodes integers as uint64.
func toJSON(data []byte, colour bool) ([]byte, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	f := colorjson.NewFormatter()
	f.Indent = 2
	f.DisabledColor = !colour

	return f.Marshal(m)
}
