package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"clob-engine/src/engine"
)

// Settings holds the scalar knobs enumerated in spec.md §6. Everything
// but Symbols is plain env-tag driven, in the corpus's caarlos0/env
// idiom; Symbols is a registry of (symbol, price scale, quantity scale)
// triples that doesn't fit a flat struct tag, so it gets its own small
// parser in the teacher's manual os.Getenv style.
type Settings struct {
	Port              string `env:"PORT" envDefault:"8080"`
	RecentTradesCap   int    `env:"RECENT_TRADES_CAP" envDefault:"1000"`
	DefaultDepth      int    `env:"DEFAULT_DEPTH" envDefault:"20"`
	Symbols           string `env:"SYMBOLS" envDefault:"BTC-USDT:2:6,ETH-USDT:2:6"`
	RateLimitMax      int    `env:"RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow   string `env:"RATE_LIMIT_WINDOW" envDefault:"1s"`
	RateLimitDisabled bool   `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
}

// Load reads Settings from the environment.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse config: %w", err)
	}
	return s, nil
}

// ParseSymbols turns the SYMBOLS string ("BTC-USDT:2:6,ETH-USDT:2:6")
// into the SymbolConfig registry the engine is constructed with.
func ParseSymbols(raw string) ([]engine.SymbolConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("no symbols configured")
	}

	var out []engine.SymbolConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("malformed symbol entry %q, want SYMBOL:priceScale:quantityScale", entry)
		}
		priceScale, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed price scale in %q: %w", entry, err)
		}
		quantityScale, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("malformed quantity scale in %q: %w", entry, err)
		}
		out = append(out, engine.SymbolConfig{
			Symbol:        strings.ToUpper(parts[0]),
			PriceScale:    int32(priceScale),
			QuantityScale: int32(quantityScale),
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no symbols configured")
	}
	return out, nil
}
