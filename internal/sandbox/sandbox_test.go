package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEchoesStdinThroughPython(t *testing.T) {
	r := NewRunner(2*time.Second, 1<<20)
	res := r.Run(context.Background(), "python3", "import sys\nprint(sys.stdin.read().strip())\n", "5\n")
	require.True(t, res.Success, res.Stderr)
	assert.Equal(t, "5\n", res.Stdout)
}

func TestRunReportsNonZeroExit(t *testing.T) {
	r := NewRunner(2*time.Second, 1<<20)
	res := r.Run(context.Background(), "python3", "import sys\nsys.exit(3)\n", "")
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunReportsTimeout(t *testing.T) {
	r := NewRunner(50*time.Millisecond, 1<<20)
	res := r.Run(context.Background(), "python3", "import time\ntime.sleep(5)\n", "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "timed out")
}

func TestRunReportsOutputOverflow(t *testing.T) {
	r := NewRunner(2*time.Second, 16)
	res := r.Run(context.Background(), "python3", "print('x' * 1000)\n", "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "cap")
}

func TestRunRejectsUnknownLanguage(t *testing.T) {
	r := NewRunner(time.Second, 1024)
	res := r.Run(context.Background(), "cobol", "whatever", "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "unsupported")
}

func TestRunBatchPreservesOrder(t *testing.T) {
	r := NewRunner(2*time.Second, 1<<20)
	results := r.RunBatch(context.Background(), "python3", "import sys\nprint(sys.stdin.read().strip())\n", []string{"1\n", "2\n", "3\n"})
	require.Len(t, results, 3)
	assert.Equal(t, "1\n", results[0].Stdout)
	assert.Equal(t, "2\n", results[1].Stdout)
	assert.Equal(t, "3\n", results[2].Stdout)
}
