// Package config loads the daemon configuration from a toml file via viper.
package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"bazaar/domain/market"
	"bazaar/logger"
)

type KafkaConfig struct {
	Brokers   []string `mapstructure:"brokers"`
	Topic     string   `mapstructure:"topic"`
	Listeners []string `mapstructure:"listeners"`
}

type AuctionConfig struct {
	MinDuration     time.Duration `mapstructure:"min_duration"`
	MaxDuration     time.Duration `mapstructure:"max_duration"`
	BidIncrementBps uint64        `mapstructure:"bid_increment_bps"`
	ExtensionWindow time.Duration `mapstructure:"extension_window"`
	CreationFee     *CoinConfig   `mapstructure:"creation_fee"`
}

type CoinConfig struct {
	Denom  string `mapstructure:"denom"`
	Amount uint64 `mapstructure:"amount"`
}

type MarketConfig struct {
	ProtocolFeeBps   uint64 `mapstructure:"protocol_fee_bps"`
	MaxRoyaltyFeeBps uint64 `mapstructure:"max_royalty_fee_bps"`
	MakerRewardBps   uint64 `mapstructure:"maker_reward_bps"`
	TakerRewardBps   uint64 `mapstructure:"taker_reward_bps"`

	AllowedDenoms []string `mapstructure:"allowed_denoms"`

	SweepCapAsks           int `mapstructure:"sweep_cap_asks"`
	SweepCapBids           int `mapstructure:"sweep_cap_bids"`
	SweepCapCollectionBids int `mapstructure:"sweep_cap_collection_bids"`

	FeeManager string `mapstructure:"fee_manager"`

	Auction AuctionConfig `mapstructure:"auction"`
}

type Config struct {
	StoreDir string `mapstructure:"store_dir"`
	HTTPAddr string `mapstructure:"http_addr"`

	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`

	Admins []string `mapstructure:"admins"`

	Kafka  KafkaConfig   `mapstructure:"kafka"`
	Log    logger.Config `mapstructure:"log"`
	Market MarketConfig  `mapstructure:"market"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("store_dir", "data")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("sweep_interval", time.Minute)
	v.SetDefault("broadcast_interval", 250*time.Millisecond)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed on read config")
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed on decode config")
	}
	return &cfg, nil
}

// Params converts the market section into engine params, validating the
// embedded addresses.
func (c *Config) Params() (market.Params, error) {
	m := c.Market
	if !common.IsHexAddress(m.FeeManager) {
		return market.Params{}, errors.Errorf("fee_manager is not a hex address: %q", m.FeeManager)
	}
	p := market.Params{
		ProtocolFeeBps:         m.ProtocolFeeBps,
		MaxRoyaltyFeeBps:       m.MaxRoyaltyFeeBps,
		MakerRewardBps:         m.MakerRewardBps,
		TakerRewardBps:         m.TakerRewardBps,
		AllowedDenoms:          m.AllowedDenoms,
		SweepCapAsks:           m.SweepCapAsks,
		SweepCapBids:           m.SweepCapBids,
		SweepCapCollectionBids: m.SweepCapCollectionBids,
		FeeManager:             common.HexToAddress(m.FeeManager),
		Auction: market.AuctionParams{
			MinDuration:     m.Auction.MinDuration,
			MaxDuration:     m.Auction.MaxDuration,
			BidIncrementBps: m.Auction.BidIncrementBps,
			ExtensionWindow: m.Auction.ExtensionWindow,
		},
	}
	if fee := m.Auction.CreationFee; fee != nil {
		coin := market.NewCoin(fee.Denom, fee.Amount)
		p.Auction.CreationFee = &coin
	}
	return p, p.Validate()
}

// AdminAddrs parses the configured admin allow-list.
func (c *Config) AdminAddrs() ([]common.Address, error) {
	out := make([]common.Address, 0, len(c.Admins))
	for _, raw := range c.Admins {
		if !common.IsHexAddress(raw) {
			return nil, errors.Errorf("admin is not a hex address: %q", raw)
		}
		out = append(out, common.HexToAddress(raw))
	}
	return out, nil
}
