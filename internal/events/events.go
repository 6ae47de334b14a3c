package events

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// SwapExecuted is emitted once per committed swap and consumed by
// off-system monitoring; the engine itself never reads it back.
type SwapExecuted struct {
	User                 solana.PublicKey `json:"user"`
	InputMint            solana.PublicKey `json:"input_mint"`
	MainOutputMint       solana.PublicKey `json:"main_output_mint"`
	ReflectionOutputMint solana.PublicKey `json:"reflection_output_mint"`
	AmountIn             uint64           `json:"amount_in"`
	MainOut              uint64           `json:"main_out"`
	ReflectionOut        uint64           `json:"reflection_out"`
	TreasuryFee          uint64           `json:"treasury_fee"`
	Timestamp            time.Time        `json:"timestamp"`
}

// ConfigUpdated is emitted when the fee configuration is created or changed.
type ConfigUpdated struct {
	Authority        solana.PublicKey `json:"authority"`
	TreasuryWallet   solana.PublicKey `json:"treasury_wallet"`
	ReflectionFeeBps uint16           `json:"reflection_fee_bps"`
	TreasuryFeeBps   uint16           `json:"treasury_fee_bps"`
	Timestamp        time.Time        `json:"timestamp"`
}

// Sink receives emitted events. Emission is best-effort: a sink failure is
// an observability problem, never a reason to fail the swap that produced
// the event.
type Sink interface {
	PublishSwap(ctx context.Context, ev *SwapExecuted) error
	PublishConfig(ctx context.Context, ev *ConfigUpdated) error
}

// LogSink writes events to the structured log.
type LogSink struct {
	Logger *logrus.Logger
}

func (s *LogSink) PublishSwap(_ context.Context, ev *SwapExecuted) error {
	s.Logger.WithFields(logrus.Fields{
		"user":           ev.User.String(),
		"input_mint":     ev.InputMint.String(),
		"main_mint":      ev.MainOutputMint.String(),
		"amount_in":      ev.AmountIn,
		"main_out":       ev.MainOut,
		"reflection_out": ev.ReflectionOut,
		"treasury_fee":   ev.TreasuryFee,
	}).Info("swap executed")
	return nil
}

func (s *LogSink) PublishConfig(_ context.Context, ev *ConfigUpdated) error {
	s.Logger.WithFields(logrus.Fields{
		"authority":          ev.Authority.String(),
		"treasury_wallet":    ev.TreasuryWallet.String(),
		"reflection_fee_bps": ev.ReflectionFeeBps,
		"treasury_fee_bps":   ev.TreasuryFeeBps,
	}).Info("config updated")
	return nil
}

// MultiSink fans out to several sinks, logging failures and carrying on.
type MultiSink struct {
	Sinks  []Sink
	Logger *logrus.Logger
}

func (m *MultiSink) PublishSwap(ctx context.Context, ev *SwapExecuted) error {
	for _, s := range m.Sinks {
		if err := s.PublishSwap(ctx, ev); err != nil {
			m.Logger.WithError(err).Warn("swap event sink failed")
		}
	}
	return nil
}

func (m *MultiSink) PublishConfig(ctx context.Context, ev *ConfigUpdated) error {
	for _, s := range m.Sinks {
		if err := s.PublishConfig(ctx, ev); err != nil {
			m.Logger.WithError(err).Warn("config event sink failed")
		}
	}
	return nil
}
