package airdrop

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-airdrop/internal/domain"
	"solana-airdrop/internal/observability"
	"solana-airdrop/internal/storage"
	"solana-airdrop/internal/storage/memory"
)

type testEnv struct {
	svc      *Service
	chain    *fakeChain
	provider *fakeProvider
	runs     *memory.RunStore
	ledger   *memory.TransferLedger
	archive  *memory.OutcomeArchive
	metrics  *observability.Metrics
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		chain:    newFakeChain(),
		provider: &fakeProvider{ref: "bulk-ref-1"},
		runs:     memory.NewRunStore(),
		ledger:   memory.NewTransferLedger(),
		archive:  memory.NewOutcomeArchive(),
		metrics:  observability.NewMetrics("test", prometheus.NewRegistry()),
	}
	opts := Options{
		Chain:    env.chain,
		Signer:   fakeSigner{},
		Mint:     testMint,
		Provider: env.provider,
		Runs:     env.runs,
		Ledger:   env.ledger,
		Archive:  env.archive,
		Metrics:  env.metrics,
		Logger:   quietLogger(),
		Now:      func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	}
	if mutate != nil {
		mutate(&opts)
	}

	svc, err := NewService(opts)
	require.NoError(t, err)
	env.svc = svc
	return env
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no chain", func(o *Options) { o.Chain = nil }},
		{"no signer", func(o *Options) { o.Signer = nil }},
		{"no mint", func(o *Options) { o.Mint = "" }},
		{"negative threshold", func(o *Options) { o.DirectThreshold = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Chain: newFakeChain(), Signer: fakeSigner{}, Mint: testMint}
			tt.mutate(&opts)
			_, err := NewService(opts)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestSelectMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, domain.MethodDirect, env.svc.SelectMethod(1))
	assert.Equal(t, domain.MethodDirect, env.svc.SelectMethod(9))
	assert.Equal(t, domain.MethodAggregated, env.svc.SelectMethod(10))
	assert.Equal(t, domain.MethodAggregated, env.svc.SelectMethod(500))

	custom := newTestEnv(t, func(o *Options) { o.DirectThreshold = 3 })
	assert.Equal(t, domain.MethodDirect, custom.svc.SelectMethod(2))
	assert.Equal(t, domain.MethodAggregated, custom.svc.SelectMethod(3))
}

func TestProcessAirdrop_Empty(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.ProcessAirdrop(context.Background(), nil, ProcessOptions{})
	assert.ErrorIs(t, err, ErrEmptyBatch)
	assert.Zero(t, env.chain.transferCount())
}

func TestProcessAirdrop_BelowThresholdGoesDirect(t *testing.T) {
	env := newTestEnv(t, nil)
	recipients := testRecipients(9, "1.5")

	result, err := env.svc.ProcessAirdrop(context.Background(), recipients, ProcessOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.MethodDirect, result.Method)
	assert.Len(t, result.Successful, 9)
	assert.Empty(t, result.Failed)
	assert.Empty(t, result.AggregateTxRef)
	assert.Zero(t, env.provider.calls)
	assert.Equal(t, 9, env.chain.transferCount())

	// Transfers follow input order and carry base units at mint precision.
	for i, p := range env.chain.transfers {
		assert.Equal(t, uint64(1_500_000), p.Amount)
		assert.Equal(t, uint8(6), p.Decimals)
		assert.Equal(t, "ata:"+testSender+":"+testMint, p.Source)
		assert.Equal(t, "ata:"+testAddress(i)+":"+testMint, p.Destination)
		assert.Equal(t, recipients[i].Address, result.Successful[i].Address)
		assert.NotEmpty(t, result.Successful[i].Signature)
	}
}

func TestProcessAirdrop_AtThresholdGoesAggregated(t *testing.T) {
	env := newTestEnv(t, nil)
	recipients := testRecipients(10, "2")

	result, err := env.svc.ProcessAirdrop(context.Background(), recipients, ProcessOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.MethodAggregated, result.Method)
	assert.Equal(t, "bulk-ref-1", result.AggregateTxRef)
	assert.Len(t, result.Successful, 10)
	assert.Empty(t, result.Failed)
	assert.Zero(t, env.chain.transferCount())

	require.Equal(t, 1, env.provider.calls)
	assert.Equal(t, testMint, env.provider.last.Mint)
	assert.Equal(t, recipients, env.provider.last.Recipients)
	assert.Equal(t, []byte{1, 2, 3}, env.provider.last.SenderSecretKey)
}

func TestProcessAirdrop_FailureIsolation(t *testing.T) {
	env := newTestEnv(t, nil)
	recipients := testRecipients(5, "1")
	env.chain.transferErr[testAddress(2)] = errors.New("insufficient funds")

	result, err := env.svc.ProcessAirdrop(context.Background(), recipients, ProcessOptions{})
	require.NoError(t, err)

	require.Len(t, result.Successful, 4)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, testAddress(2), result.Failed[0].Address)
	assert.Contains(t, result.Failed[0].Reason, "insufficient funds")
	assert.NotEmpty(t, result.Failed[0].Reason)

	// Recipients after the failure were still attempted.
	assert.Equal(t, 1, env.chain.attempts[testAddress(3)])
	assert.Equal(t, 1, env.chain.attempts[testAddress(4)])
	assert.Equal(t, testAddress(3), result.Successful[2].Address)
	assert.Equal(t, testAddress(4), result.Successful[3].Address)
}

func TestProcessAirdrop_ConfirmFailureKeepsSignature(t *testing.T) {
	env := newTestEnv(t, nil)
	env.chain.confirmErr[testAddress(1)] = errors.New("transaction failed on-chain")

	result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(3, "1"), ProcessOptions{})
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed[0].Reason, "transaction failed on-chain")

	records, err := env.svc.ListTransfers(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.TransferStatusFailed, records[1].Status)
	require.NotNil(t, records[1].Signature)
	assert.Equal(t, "sig-2", *records[1].Signature)
}

func TestProcessAirdrop_ExcessPrecision(t *testing.T) {
	env := newTestEnv(t, nil)
	recipients := testRecipients(3, "1")
	recipients[1].Amount = recipients[1].Amount.Add(decimal.RequireFromString("0.0000001"))

	result, err := env.svc.ProcessAirdrop(context.Background(), recipients, ProcessOptions{})
	require.NoError(t, err)

	assert.Len(t, result.Successful, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, testAddress(1), result.Failed[0].Address)
	assert.Contains(t, result.Failed[0].Reason, "exceeds token precision")
	assert.Zero(t, env.chain.attempts[testAddress(1)])
}

func TestProcessAirdrop_AggregatedFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.provider.err = errors.New("provider returned 500")

	result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(12, "1"), ProcessOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAirdropFailed)
	assert.Contains(t, err.Error(), "provider returned 500")
	assert.Nil(t, result)
	assert.Zero(t, env.chain.transferCount())
}

func TestProcessAirdrop_AggregatedWithoutProvider(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Provider = nil })

	_, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(10, "1"), ProcessOptions{})
	assert.ErrorIs(t, err, ErrAirdropFailed)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	// Small batches still work without a provider.
	result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(2, "1"), ProcessOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Successful, 2)
}

func TestProcessAirdrop_SetupFailure(t *testing.T) {
	t.Run("sender account", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.chain.senderErr = errors.New("rpc unavailable")

		_, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(2, "1"), ProcessOptions{})
		assert.ErrorIs(t, err, ErrAirdropFailed)
		assert.Contains(t, err.Error(), "rpc unavailable")
		assert.Zero(t, env.chain.transferCount())
	})

	t.Run("mint decimals", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.chain.decimalsErr = errors.New("not a mint")

		_, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(2, "1"), ProcessOptions{})
		assert.ErrorIs(t, err, ErrAirdropFailed)
		assert.Contains(t, err.Error(), "read mint decimals")
	})
}

func TestProcessAirdrop_SetupFailureRecordsRun(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.NewID = func() string { return "run-1" }
	})
	env.chain.senderErr = errors.New("rpc unavailable")

	_, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(2, "1"), ProcessOptions{})
	require.Error(t, err)

	run, err := env.svc.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "rpc unavailable")
	assert.NotNil(t, run.FinishedAt)
}

func TestProcessAirdrop_NoIdempotencyWithoutKey(t *testing.T) {
	env := newTestEnv(t, nil)
	recipients := testRecipients(3, "1")

	first, err := env.svc.ProcessAirdrop(context.Background(), recipients, ProcessOptions{})
	require.NoError(t, err)
	second, err := env.svc.ProcessAirdrop(context.Background(), recipients, ProcessOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 6, env.chain.transferCount())
	for _, o := range second.Successful {
		assert.False(t, o.AlreadyProcessed)
	}
}

func TestProcessAirdrop_IdempotencyKeySkipsPaid(t *testing.T) {
	env := newTestEnv(t, nil)
	recipients := testRecipients(4, "1")
	env.chain.transferErr[testAddress(3)] = errors.New("blocked")
	opts := ProcessOptions{IdempotencyKey: "batch-42"}

	first, err := env.svc.ProcessAirdrop(context.Background(), recipients, opts)
	require.NoError(t, err)
	require.Len(t, first.Successful, 3)
	require.Len(t, first.Failed, 1)

	// The failed recipient is retried; paid ones are reported without a new transfer.
	delete(env.chain.transferErr, testAddress(3))
	second, err := env.svc.ProcessAirdrop(context.Background(), recipients, opts)
	require.NoError(t, err)

	assert.Equal(t, 4, env.chain.transferCount())
	require.Len(t, second.Successful, 4)
	assert.Empty(t, second.Failed)
	for i, o := range second.Successful[:3] {
		assert.True(t, o.AlreadyProcessed)
		assert.Equal(t, first.Successful[i].Signature, o.Signature)
	}
	assert.False(t, second.Successful[3].AlreadyProcessed)
	assert.Equal(t, testAddress(3), second.Successful[3].Address)

	// A different key pays everyone again.
	_, err = env.svc.ProcessAirdrop(context.Background(), recipients, ProcessOptions{IdempotencyKey: "batch-43"})
	require.NoError(t, err)
	assert.Equal(t, 8, env.chain.transferCount())

	assert.Equal(t, float64(3), testutil.ToFloat64(env.metrics.TransfersSkipped))
}

func TestProcessAirdrop_IdempotencyKeyAllPaid(t *testing.T) {
	env := newTestEnv(t, nil)
	recipients := testRecipients(10, "1")
	opts := ProcessOptions{IdempotencyKey: "bulk-1"}

	first, err := env.svc.ProcessAirdrop(context.Background(), recipients, opts)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodAggregated, first.Method)

	second, err := env.svc.ProcessAirdrop(context.Background(), recipients, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, env.provider.calls)
	assert.Len(t, second.Successful, 10)
	for _, o := range second.Successful {
		assert.True(t, o.AlreadyProcessed)
		assert.Equal(t, "bulk-ref-1", o.Signature)
	}

	run, err := env.svc.GetRun(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 10, run.SuccessCount)
}

func TestProcessAirdrop_RecordsLedgerAndArchive(t *testing.T) {
	env := newTestEnv(t, nil)
	env.chain.transferErr[testAddress(1)] = errors.New("boom")

	result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(3, "0.25"), ProcessOptions{})
	require.NoError(t, err)

	run, err := env.svc.GetRun(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MethodDirect, run.Method)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.RecipientCount)
	assert.Equal(t, 2, run.SuccessCount)
	assert.Equal(t, 1, run.FailedCount)
	assert.Nil(t, run.IdempotencyKey)

	records, err := env.svc.ListTransfers(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, i, rec.RecipientIndex)
		assert.Equal(t, testAddress(i), rec.Address)
		assert.Equal(t, "0.25", rec.Amount)
		assert.Equal(t, uint64(250_000), rec.BaseUnits)
		assert.Equal(t, domain.MethodDirect, rec.Method)
	}
	assert.Equal(t, domain.TransferStatusFailed, records[1].Status)
	require.NotNil(t, records[1].FailureReason)
	assert.Contains(t, *records[1].FailureReason, "boom")

	archived, err := env.archive.GetByRunID(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Len(t, archived, 3)
}

func TestProcessAirdrop_RecordsAggregatedLedger(t *testing.T) {
	env := newTestEnv(t, nil)

	result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(10, "3"), ProcessOptions{IdempotencyKey: "k"})
	require.NoError(t, err)

	run, err := env.svc.GetRun(context.Background(), result.ID)
	require.NoError(t, err)
	require.NotNil(t, run.AggregateTxRef)
	assert.Equal(t, "bulk-ref-1", *run.AggregateTxRef)
	require.NotNil(t, run.IdempotencyKey)
	assert.Equal(t, "k", *run.IdempotencyKey)

	records, err := env.svc.ListTransfers(context.Background(), result.ID)
	require.NoError(t, err)
	require.Len(t, records, 10)
	for _, rec := range records {
		assert.Equal(t, domain.TransferStatusSuccess, rec.Status)
		assert.Equal(t, domain.MethodAggregated, rec.Method)
		require.NotNil(t, rec.Signature)
		assert.Equal(t, "bulk-ref-1", *rec.Signature)
	}
}

func TestProcessAirdrop_Retry(t *testing.T) {
	t.Run("transient submit error is retried", func(t *testing.T) {
		env := newTestEnv(t, func(o *Options) {
			o.Retry = RetryPolicy{Attempts: 3, Delay: time.Millisecond}
		})
		env.chain.flaky[testAddress(0)] = 2

		result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(1, "1"), ProcessOptions{})
		require.NoError(t, err)
		assert.Len(t, result.Successful, 1)
		assert.Equal(t, 3, env.chain.attempts[testAddress(0)])
	})

	t.Run("no retry by default", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.chain.flaky[testAddress(0)] = 1

		result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(1, "1"), ProcessOptions{})
		require.NoError(t, err)
		assert.Len(t, result.Failed, 1)
		assert.Equal(t, 1, env.chain.attempts[testAddress(0)])
	})

	t.Run("confirmation failure is not resent", func(t *testing.T) {
		env := newTestEnv(t, func(o *Options) {
			o.Retry = RetryPolicy{Attempts: 3, Delay: time.Millisecond}
		})
		env.chain.confirmErr[testAddress(0)] = errors.New("expired")

		result, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(1, "1"), ProcessOptions{})
		require.NoError(t, err)
		assert.Len(t, result.Failed, 1)
		assert.Equal(t, 1, env.chain.attempts[testAddress(0)])
	})
}

func TestProcessAirdrop_CanceledContext(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.svc.ProcessAirdrop(ctx, testRecipients(2, "1"), ProcessOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Successful)
	assert.Len(t, result.Failed, 2)

	// Failures are still recorded after cancellation.
	records, err := env.svc.ListTransfers(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestProcessAirdrop_Metrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.chain.transferErr[testAddress(0)] = errors.New("boom")

	_, err := env.svc.ProcessAirdrop(context.Background(), testRecipients(2, "1"), ProcessOptions{})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.RunsTotal.WithLabelValues("direct", "completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.TransfersTotal.WithLabelValues("direct", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.TransfersTotal.WithLabelValues("direct", "failed")))
}

func TestGetRun_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
