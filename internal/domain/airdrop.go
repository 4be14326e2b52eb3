package domain

import "github.com/shopspring/decimal"

// Method is the transfer strategy used for an airdrop run.
type Method string

const (
	MethodDirect     Method = "direct"
	MethodAggregated Method = "aggregated"
)

// String returns the string representation of Method.
func (m Method) String() string {
	return string(m)
}

// IsValid checks if the method is a valid value.
func (m Method) IsValid() bool {
	return m == MethodDirect || m == MethodAggregated
}

// TransferOutcome is the result of a successful transfer to one recipient.
type TransferOutcome struct {
	Address          string          `json:"address"`
	Amount           decimal.Decimal `json:"amount"`
	Success          bool            `json:"success"`
	Signature        string          `json:"signature,omitempty"`
	AlreadyProcessed bool            `json:"alreadyProcessed,omitempty"` // skipped, paid by an earlier run with the same idempotency key
}

// FailedTransfer is a recipient whose transfer did not complete.
type FailedTransfer struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
}

// AirdropResult is the combined result of one airdrop run.
type AirdropResult struct {
	ID             string            `json:"id"`
	Successful     []TransferOutcome `json:"successful"`
	Failed         []FailedTransfer  `json:"failed"`
	Method         Method            `json:"method"`
	AggregateTxRef string            `json:"aggregateTxRef,omitempty"`
}

// BulkTransferRequest is one aggregated transfer handed to a bulk provider.
type BulkTransferRequest struct {
	Mint            string
	Recipients      []ValidatedRecipient
	SenderSecretKey []byte // 64-byte ed25519 secret key
}
