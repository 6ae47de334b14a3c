package constants

// PDA seeds
const (
	ConfigSeed    = "raceswap-config"
	AuthoritySeed = "raceswap-authority"
)

// Fee arithmetic
const (
	FeeDenominator = 10_000
	MaxFeeBps      = 1_000
)

// Well-known program and wallet addresses. These are the deployed defaults;
// the engine only ever sees addresses through its injected params, so tests
// and alternate deployments can substitute their own.
const (
	RacepumpProgramID = "Cy63SzwBBCP5ywaByjUrLuUXQ4pXP9nR7e7kdQqp5uLk"
	JupiterProgramID  = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	TreasuryWallet    = "Exh4ZxgzA32hnLrQq3UnqxEXMRd4vifogMc6oXn7bP4L"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps  = "racepump:swaps"
	PubSubChannelConfig = "racepump:config"
)
