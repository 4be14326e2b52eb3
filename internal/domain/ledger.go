package domain

// RunStatus is the lifecycle state of an airdrop run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// TransferStatus is the final state of one recipient transfer.
type TransferStatus string

const (
	TransferStatusSuccess TransferStatus = "success"
	TransferStatusFailed  TransferStatus = "failed"
)

// AirdropRun represents one invocation of the orchestrator.
// Corresponds to airdrop_runs table in PostgreSQL.
type AirdropRun struct {
	ID             string    // uuid
	IdempotencyKey *string   // caller-supplied key (nullable)
	Method         Method    // direct | aggregated
	Mint           string    // token mint address
	RecipientCount int       // validated recipients in the run
	SuccessCount   int       // successful transfers
	FailedCount    int       // failed transfers
	AggregateTxRef *string   // provider reference, aggregated runs only (nullable)
	Status         RunStatus // running | completed | failed
	Error          *string   // run-level failure (nullable)
	StartedAt      int64     // run start (ms)
	FinishedAt     *int64    // run end (ms, nullable)
}

// TransferRecord is the ledger entry for one recipient of a run.
// Corresponds to airdrop_transfers (PostgreSQL) and transfer_outcomes (ClickHouse).
type TransferRecord struct {
	ID             string         // deterministic hash of run_id|address|index
	RunID          string         // FK to airdrop_runs
	IdempotencyKey *string        // copied from the run (nullable)
	RecipientIndex int            // position in the validated list
	Address        string         // recipient wallet
	Amount         string         // decimal UI amount
	BaseUnits      uint64         // amount in token base units (0 for aggregated runs)
	Mint           string         // token mint address
	Method         Method         // direct | aggregated
	Status         TransferStatus // success | failed
	Signature      *string        // transaction signature (nullable)
	FailureReason  *string        // failure description (nullable)
	CreatedAt      int64          // record creation timestamp (ms)
}
