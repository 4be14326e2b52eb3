package airdrop

import "errors"

var (
	// ErrEmptyBatch is returned when there are no recipients to validate or process.
	ErrEmptyBatch = errors.New("recipients array cannot be empty")

	// ErrConfiguration is returned when a required collaborator or setting is missing.
	ErrConfiguration = errors.New("airdrop service misconfigured")

	// ErrProviderNotConfigured is returned by the aggregated path without a bulk provider.
	ErrProviderNotConfigured = errors.New("bulk transfer provider not configured for aggregated airdrops")

	// ErrAirdropFailed wraps setup and aggregate failures that abort a whole run.
	ErrAirdropFailed = errors.New("airdrop failed")
)
