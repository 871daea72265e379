package mobile

import (
	"encoding/json"

	"github.com/vulpemventures/keeper/internal/core/application"
	"github.com/vulpemventures/keeper/internal/core/domain"
)

// The views below are the JSON documents handed to the app. None of them
// contains the seed of a wallet.

type walletView struct {
	Address       string `json:"address"`
	ReadOnly      bool   `json:"readOnly"`
	LocalBackupAt int64  `json:"localBackupAt"`
	CloudBackupAt int64  `json:"cloudBackupAt"`
}

func newWalletView(w *domain.WalletIdentity) walletView {
	return walletView{
		Address:       w.Address,
		ReadOnly:      w.IsReadOnly(),
		LocalBackupAt: w.LocalBackupAt,
		CloudBackupAt: w.CloudBackupAt,
	}
}

type recoveryView struct {
	walletView
	Source string `json:"source"`
}

type recoverableWalletView struct {
	Address       string `json:"address"`
	Label         string `json:"label"`
	CreatedAt     int64  `json:"createdAt"`
	LocalBackupAt int64  `json:"localBackupAt"`
	CloudBackupAt int64  `json:"cloudBackupAt"`
	CloudBackup   string `json:"cloudBackup"`
}

func newRecoverableWalletViews(
	list []application.RecoverableWallet,
) []recoverableWalletView {
	views := make([]recoverableWalletView, 0, len(list))
	for _, w := range list {
		views = append(views, recoverableWalletView{
			Address:       w.Address,
			Label:         w.Label,
			CreatedAt:     w.CreatedAt,
			LocalBackupAt: w.LocalBackupAt,
			CloudBackupAt: w.CloudBackupAt,
			CloudBackup:   w.CloudBackup.String(),
		})
	}
	return views
}

// confirmationView exposes only what the confirmation screen shows: the
// words left to pick and the ones already placed.
type confirmationView struct {
	Address  string   `json:"address"`
	Pool     []string `json:"pool"`
	Slots    []string `json:"slots"`
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
}

func newConfirmationView(c *domain.MnemonicConfirmation) confirmationView {
	state := c.State()
	return confirmationView{
		Address:  c.Address(),
		Pool:     state.Pool,
		Slots:    state.Slots,
		Status:   state.Status.String(),
		Attempts: state.Attempts,
	}
}

type backupStatusView struct {
	Address       string `json:"address"`
	LocalBackupAt int64  `json:"localBackupAt"`
	CloudBackupAt int64  `json:"cloudBackupAt"`
}

func toJSON(v interface{}) (string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return "", toError(err)
	}
	return string(buf), nil
}
