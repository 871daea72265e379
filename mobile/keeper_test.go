package mobile_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/keeper/internal/config"
	"github.com/vulpemventures/keeper/mobile"
)

type wallet struct {
	Address       string `json:"address"`
	ReadOnly      bool   `json:"readOnly"`
	LocalBackupAt int64  `json:"localBackupAt"`
	CloudBackupAt int64  `json:"cloudBackupAt"`
	Source        string `json:"source"`
}

type confirmation struct {
	Pool     []string `json:"pool"`
	Slots    []string `json:"slots"`
	Status   string   `json:"status"`
	Attempts int      `json:"attempts"`
}

func TestKeeper(t *testing.T) {
	datadir := t.TempDir()
	for key, val := range map[string]string{
		config.DatadirKey:         datadir,
		config.NetworkKey:         "liquid",
		config.SecureStoreTypeKey: "inmemory",
		config.RegistryTypeKey:    "inmemory",
		config.CloudProviderKey:   "filesystem",
		config.KdfTimeKey:         "1",
		config.KdfMemoryKey:       "64",
		config.KdfThreadsKey:      "1",
	} {
		mobile.SetConfig(key, val)
	}

	_, err := mobile.NewKeeper("")
	requireErrorCode(t, err, "invalid_argument")

	k, err := mobile.NewKeeper("account1")
	require.NoError(t, err)

	mnemonic, err := k.GenerateMnemonic(12)
	require.NoError(t, err)
	words := strings.Fields(mnemonic)
	require.Len(t, words, 12)

	walletJSON, err := k.CreateWallet(mnemonic, "main")
	require.NoError(t, err)
	require.NotContains(t, walletJSON, mnemonic)
	w := parse[wallet](t, walletJSON)
	require.True(t, strings.HasPrefix(w.Address, "ex1q"))
	require.False(t, w.ReadOnly)

	t.Run("local backup", func(t *testing.T) {
		state := parse[confirmation](t, mustCall(t)(k.StartConfirmation(w.Address)))
		require.Equal(t, "placing", state.Status)
		require.ElementsMatch(t, words, state.Pool)

		reversed := make([]string, 0, len(words))
		for i := len(words) - 1; i >= 0; i-- {
			reversed = append(reversed, words[i])
		}
		state = placeAll(t, k, w.Address, state, reversed)
		state = parse[confirmation](t, mustCall(t)(k.ValidateConfirmation(w.Address)))
		require.Equal(t, "retry", state.Status)
		require.Equal(t, 1, state.Attempts)

		state = placeAll(t, k, w.Address, state, words)
		state = parse[confirmation](t, mustCall(t)(k.ValidateConfirmation(w.Address)))
		require.Equal(t, "committed", state.Status)

		_, err := k.PlaceWord(w.Address, words[0], 0)
		requireErrorCode(t, err, "invalid_argument")

		status := parse[wallet](t, mustCall(t)(k.GetBackupStatus(w.Address)))
		require.Greater(t, status.LocalBackupAt, int64(0))
	})

	t.Run("cloud backup and recovery", func(t *testing.T) {
		backedUp := parse[wallet](t, mustCall(t)(k.BackupToCloud(w.Address, "pwd")))
		require.Greater(t, backedUp.CloudBackupAt, int64(0))

		_, err := k.RecoverFromCloud(w.Address, "wrong")
		requireErrorCode(t, err, "incorrect_password")

		res := parse[wallet](t, mustCall(t)(k.RecoverFromCloud(w.Address, "pwd")))
		require.Equal(t, "cloud", res.Source)
		require.Equal(t, backedUp.CloudBackupAt, res.CloudBackupAt)

		_, err = k.CommitRecovery(w.Address)
		require.NoError(t, err)
		_, err = k.CommitRecovery(w.Address)
		requireErrorCode(t, err, "invalid_argument")

		res = parse[wallet](t, mustCall(t)(k.RecoverFromMnemonic(w.Address, mnemonic)))
		require.Equal(t, "mnemonic", res.Source)

		_, err = k.RecoverFromMnemonic(w.Address, strings.Join(words[:11], " "))
		requireErrorCode(t, err, "invalid_phrase_length")
	})

	k.Close()

	files, err := os.ReadDir(filepath.Join(datadir, "liquid", config.MetricsLocation))
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func placeAll(
	t *testing.T, k *mobile.Keeper, address string, state confirmation,
	words []string,
) confirmation {
	for _, word := range words {
		idx := -1
		for i, w := range state.Pool {
			if w == word {
				idx = i
				break
			}
		}
		require.GreaterOrEqual(t, idx, 0)
		state = parse[confirmation](t, mustCall(t)(k.PlaceWord(address, word, idx)))
	}
	return state
}

func mustCall(t *testing.T) func(string, error) string {
	return func(res string, err error) string {
		require.NoError(t, err)
		return res
	}
}

func parse[T any](t *testing.T, str string) T {
	var v T
	require.NoError(t, json.Unmarshal([]byte(str), &v))
	return v
}

func requireErrorCode(t *testing.T, err error, code string) {
	var e *mobile.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, code, e.Code)
}
