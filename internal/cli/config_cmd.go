// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Show and edit configuration from the command line.
package cli

import (
	"fmt"

	"github.com/jeranaias/polychat/internal/config"
	"github.com/jeranaias/polychat/internal/display"
)

// runConfig handles "polychat config [show|path|get|set]". Plain
// "polychat config" shows all keys with secrets redacted.
func (a *App) runConfig(args *ArgParser) error {
	sub := args.Positional(0)

	switch sub {
	case "", "show", "list":
		return a.configShow()

	case "path":
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "get":
		key := args.Positional(1)
		if key == "" {
			return fmt.Errorf("usage: polychat config get <key>")
		}
		value, err := a.cfg.Get(key)
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil

	case "set":
		key := args.Positional(1)
		value := args.JoinPositional(2)
		if key == "" || value == "" {
			return fmt.Errorf("usage: polychat config set <key> <value>")
		}
		if err := a.cfg.Set(key, value); err != nil {
			return err
		}
		if err := a.cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(a.cfg); err != nil {
			return err
		}
		display.Info("Set %s.", key)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (show, path, get, set)", sub)
	}
}

// configShow prints every known key with API keys redacted. Values from
// environment overrides show as they are in effect, not as stored on disk.
func (a *App) configShow() error {
	redacted := a.cfg.Redacted()
	for _, key := range config.GetAllKeys() {
		value, err := redacted.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("%-22s = %v\n", key, value)
	}
	return nil
}
