package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uncertaindrop/tickethelper/internal/config"
	"github.com/uncertaindrop/tickethelper/internal/invoice"
)

func TestProcessFile_ExtractionFailureReportsAndFails(t *testing.T) {
	dir := t.TempDir()
	// Not a PDF at all: extraction fails before any browser work, and nil
	// reporting sinks must not panic.
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	r := New(config.RunnerConfig{}, invoice.NewExtractor(nil), nil, nil, nil, nil)
	assert.False(t, r.ProcessFile(context.Background(), path))
}

func TestSweep_ArchivesFailures(t *testing.T) {
	inbox := t.TempDir()
	failed := t.TempDir()
	done := t.TempDir()

	path := filepath.Join(inbox, "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))
	// Non-PDF files are ignored entirely.
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("x"), 0o644))

	r := New(config.RunnerConfig{InboxDir: inbox, DoneDir: done, FailedDir: failed},
		invoice.NewExtractor(nil), nil, nil, nil, nil)
	require.NoError(t, r.sweep(context.Background()))

	_, err := os.Stat(filepath.Join(failed, "bad.pdf"))
	assert.NoError(t, err, "failed invoice moves to the failed directory")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "processed file leaves the inbox")
	_, err = os.Stat(filepath.Join(inbox, "notes.txt"))
	assert.NoError(t, err, "non-PDF files stay put")
}
