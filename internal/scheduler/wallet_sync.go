package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWalletSyncTimeout bounds a single balance pull
const DefaultWalletSyncTimeout = 15 * time.Second

// WalletSyncer pulls the authoritative balance from the backend
type WalletSyncer interface {
	Sync(ctx context.Context) error
}

// WalletSyncJob keeps the local balance in step with the backend wallet
// while a user is signed in.
type WalletSyncJob struct {
	wallet  WalletSyncer
	timeout time.Duration
	log     zerolog.Logger
}

// NewWalletSyncJob creates a new wallet sync job
func NewWalletSyncJob(wallet WalletSyncer, timeout time.Duration, log zerolog.Logger) *WalletSyncJob {
	if timeout <= 0 {
		timeout = DefaultWalletSyncTimeout
	}
	return &WalletSyncJob{
		wallet:  wallet,
		timeout: timeout,
		log:     log.With().Str("job", "wallet_sync").Logger(),
	}
}

// Name returns the job name
func (j *WalletSyncJob) Name() string {
	return "wallet_sync"
}

// Run executes the wallet sync
func (j *WalletSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.wallet.Sync(ctx); err != nil {
		j.log.Debug().Err(err).Msg("Wallet sync failed, keeping local balance")
		return err
	}
	return nil
}
