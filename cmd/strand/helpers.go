package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/unicode"

	"strand/internal/config"
)

// loadLimits resolves runtime limits from --config, a discovered
// strand.toml, or defaults, in that order.
func loadLimits(cmd *cobra.Command) (config.Limits, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Limits{}, err
	}
	if path == "" {
		discovered, ok, err := config.Discover(".")
		if err != nil {
			return config.Limits{}, err
		}
		if !ok {
			return config.Default(), nil
		}
		path = discovered
	}
	return config.Load(path)
}

// decodeInput converts raw file bytes to text according to the
// --encoding flag.
func decodeInput(data []byte, encoding string) (string, error) {
	switch encoding {
	case "", "utf8":
		return string(data), nil
	case "utf16le":
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16LE input: %w", err)
		}
		return string(decoded), nil
	case "utf16be":
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-16BE input: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unknown encoding %q (want utf8, utf16le or utf16be)", encoding)
	}
}
