package server

// ErrorResponse is the standard JSON error shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// ConfigResponse mirrors the stored fee configuration.
type ConfigResponse struct {
	ConfigKey        string `json:"config_key"`
	Authority        string `json:"authority"`
	TreasuryWallet   string `json:"treasury_wallet"`
	ReflectionFeeBps uint16 `json:"reflection_fee_bps"`
	TreasuryFeeBps   uint16 `json:"treasury_fee_bps"`
}

// InitConfigRequest creates the fee configuration.
type InitConfigRequest struct {
	Authority        string `json:"authority"`
	TreasuryWallet   string `json:"treasury_wallet"`
	ReflectionFeeBps uint16 `json:"reflection_fee_bps"`
	TreasuryFeeBps   uint16 `json:"treasury_fee_bps"`
}

// UpdateConfigRequest applies a partial, authority-gated update. Authority
// identifies the signer of the update; nil fields keep their value.
type UpdateConfigRequest struct {
	Authority        string  `json:"authority"`
	NewAuthority     *string `json:"new_authority,omitempty"`
	TreasuryWallet   *string `json:"treasury_wallet,omitempty"`
	ReflectionFeeBps *uint16 `json:"reflection_fee_bps,omitempty"`
	TreasuryFeeBps   *uint16 `json:"treasury_fee_bps,omitempty"`
}

// TableEntry is one account of the transaction's flat account table with
// the privileges the outer call grants it.
type TableEntry struct {
	Key      string `json:"key"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// DecodeRequest carries a base58-encoded swap request for inspection.
type DecodeRequest struct {
	Request  string `json:"request"` // base58-encoded record
	TableLen int    `json:"table_len"`
}

// DecodedLeg describes one decoded opaque call.
type DecodedLeg struct {
	AccountCount uint16       `json:"account_count"`
	Refs         []DecodedRef `json:"refs"`
	PayloadLen   int          `json:"payload_len"`
}

type DecodedRef struct {
	Key               string `json:"key,omitempty"`
	Index             uint8  `json:"index"`
	RequestedSigner   bool   `json:"requested_signer"`
	RequestedWritable bool   `json:"requested_writable"`
}

// DecodeResponse is the decoded view of a swap request.
type DecodeResponse struct {
	InputMint         string      `json:"input_mint"`
	MainOutputMint    string      `json:"main_output_mint"`
	ReflectionMint    string      `json:"reflection_mint"`
	AmountIn          uint64      `json:"amount_in"`
	MinMainOut        uint64      `json:"min_main_out"`
	MinReflectionOut  uint64      `json:"min_reflection_out"`
	DisableReflection bool        `json:"disable_reflection"`
	MainLeg           *DecodedLeg `json:"main_leg,omitempty"`
	ReflectionLeg     *DecodedLeg `json:"reflection_leg,omitempty"`
}

// NamedAccounts are the outer call's named accounts for execution.
type NamedAccounts struct {
	User                      string `json:"user"`
	UserInput                 string `json:"user_input,omitempty"`
	InputMint                 string `json:"input_mint,omitempty"`
	InputTokenProgram         string `json:"input_token_program,omitempty"`
	InputVault                string `json:"input_vault,omitempty"`
	UserMainDestination       string `json:"user_main_destination"`
	UserReflectionDestination string `json:"user_reflection_destination,omitempty"`
}

// ExecuteRequest runs an encoded swap request in the sandbox ledger.
type ExecuteRequest struct {
	Request  string        `json:"request"` // base58-encoded record
	Accounts NamedAccounts `json:"accounts"`
	Table    []TableEntry  `json:"table"`
}

// ExecuteResponse reports a committed sandbox swap.
type ExecuteResponse struct {
	User          string `json:"user"`
	AmountIn      uint64 `json:"amount_in"`
	MainOut       uint64 `json:"main_out"`
	ReflectionOut uint64 `json:"reflection_out"`
	TreasuryFee   uint64 `json:"treasury_fee"`
}

// SeedRequest pulls live chain accounts into the sandbox ledger.
type SeedRequest struct {
	Keys []string `json:"keys"`
}
