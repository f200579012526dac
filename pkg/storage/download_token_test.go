package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("job-1", "approval_history_cal1.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Verify(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", claims.JobID)
	require.Equal(t, "approval_history_cal1.csv", claims.Path)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestDownloadSignerExpired(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("job-1", "summary.pdf")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, err = signer.Verify(token, false)
	require.ErrorContains(t, err, "expired")

	// Cleanup needs to resolve the file path behind stale tokens.
	claims, err := signer.Verify(token, true)
	require.NoError(t, err)
	require.Equal(t, "summary.pdf", claims.Path)
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, _, err := signer.Sign("job-1", "summary.pdf")
	require.NoError(t, err)

	body, sig, ok := strings.Cut(token, ".")
	require.True(t, ok)
	forged := body + "x." + sig
	_, err = signer.Verify(forged, false)
	require.Error(t, err)

	other := NewDownloadSigner("different-secret", time.Hour)
	_, err = other.Verify(token, false)
	require.ErrorContains(t, err, "signature")
}

func TestExportDirRejectsEscapingNames(t *testing.T) {
	dir, err := NewExportDir(t.TempDir())
	require.NoError(t, err)

	_, err = dir.Save("../outside.csv", []byte("x"))
	require.ErrorContains(t, err, "escapes")
	_, err = dir.Open("/etc/passwd")
	require.ErrorContains(t, err, "escapes")

	name, err := dir.Save("reports/summary.csv", []byte("a,b\n"))
	require.NoError(t, err)
	file, err := dir.Open(name)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportDirSweep(t *testing.T) {
	dir, err := NewExportDir(t.TempDir())
	require.NoError(t, err)
	_, err = dir.Save("old.csv", []byte("stale"))
	require.NoError(t, err)

	removed, err := dir.Sweep(0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = dir.Open("old.csv")
	require.Error(t, err)
}
