package events

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseSink persists events for analytical queries.
type ClickHouseSink struct {
	conn driver.Conn
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

func NewClickHouseSink(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &ClickHouseSink{conn: conn}, nil
}

func (s *ClickHouseSink) PublishSwap(ctx context.Context, ev *SwapExecuted) error {
	query := `
		INSERT INTO swaps (
			user, input_mint, main_output_mint, reflection_output_mint,
			amount_in, main_out, reflection_out, treasury_fee, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		ev.User.String(),
		ev.InputMint.String(),
		ev.MainOutputMint.String(),
		ev.ReflectionOutputMint.String(),
		ev.AmountIn,
		ev.MainOut,
		ev.ReflectionOut,
		ev.TreasuryFee,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert swap event: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) PublishConfig(ctx context.Context, ev *ConfigUpdated) error {
	query := `
		INSERT INTO config_updates (
			authority, treasury_wallet, reflection_fee_bps, treasury_fee_bps, timestamp
		) VALUES (?, ?, ?, ?, ?)
	`
	err := s.conn.Exec(ctx, query,
		ev.Authority.String(),
		ev.TreasuryWallet.String(),
		ev.ReflectionFeeBps,
		ev.TreasuryFeeBps,
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert config event: %w", err)
	}
	return nil
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
