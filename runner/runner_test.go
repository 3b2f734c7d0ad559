package runner

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// script writes an executable shell script and returns its path.
func script(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestLaunchSpecArgs(t *testing.T) {
	tests := []struct {
		name string
		spec LaunchSpec
		want []string
	}{
		{
			name: "defaults",
			spec: LaunchSpec{Path: "/t"},
			want: nil,
		},
		{
			name: "verbosity repeats",
			spec: LaunchSpec{Path: "/t", Verbosity: 2},
			want: []string{"-v", "-v"},
		},
		{
			name: "video output",
			spec: LaunchSpec{Path: "/t", VideoOutput: "/r/video.webm"},
			want: []string{"--video-output", "/r/video.webm"},
		},
		{
			name: "everything",
			spec: LaunchSpec{Path: "/t", Verbosity: 1, VideoOutput: "/r/video.webm", DumpImages: true},
			want: []string{"-v", "--video-output", "/r/video.webm", "--dump-images"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.spec.Args())
			require.Equal(t, append([]string{tt.spec.Path}, tt.want...), tt.spec.CommandLine())
		})
	}
}

func TestWaitReturnsExitStatus(t *testing.T) {
	p, err := Launch(LaunchSpec{Path: script(t, "exit 7")})
	require.NoError(t, err)

	status, preempted := p.Wait(nil)
	require.False(t, preempted)
	require.Equal(t, 7, status)
}

func TestWaitIsIdempotent(t *testing.T) {
	p, err := Launch(LaunchSpec{Path: script(t, "exit 3")})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		status, preempted := p.Wait(nil)
		require.False(t, preempted)
		require.Equal(t, 3, status, "wait %d", i)
	}
}

func TestWaitPreemptedThenRewait(t *testing.T) {
	p, err := Launch(LaunchSpec{Path: script(t, "sleep 1")})
	require.NoError(t, err)

	preempt := make(chan struct{}, 1)
	preempt <- struct{}{}

	_, preempted := p.Wait(preempt)
	require.True(t, preempted, "queued notice must preempt the wait")

	// Re-waiting on the same handle reflects genuine termination.
	status, preempted := p.Wait(preempt)
	require.False(t, preempted)
	require.Equal(t, 0, status)
}

func TestDurationSeconds(t *testing.T) {
	p, err := Launch(LaunchSpec{Path: script(t, "sleep 1")})
	require.NoError(t, err)

	status, _ := p.Wait(nil)
	require.Equal(t, 0, status)
	require.GreaterOrEqual(t, p.DurationSeconds(), 1)
	require.Less(t, p.DurationSeconds(), 5)
}

func TestKillGroupReachesDescendants(t *testing.T) {
	// The script prints its helper's pid, then blocks on it.
	p, err := Launch(LaunchSpec{Path: script(t, "sleep 30 &\necho $!\nwait")})
	require.NoError(t, err)

	sc := bufio.NewScanner(p.Stdout())
	require.True(t, sc.Scan(), "expected helper pid on stdout")
	helperPid, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	require.NoError(t, err)

	require.NoError(t, p.KillGroup())

	status, preempted := p.Wait(nil)
	require.False(t, preempted)
	require.Equal(t, 128+int(syscall.SIGKILL), status)

	// The helper was in the same process group and must be gone too.
	require.Eventually(t, func() bool {
		return syscall.Kill(helperPid, 0) != nil
	}, 2*time.Second, 50*time.Millisecond, "helper process survived the group kill")
}

func TestKillGroupAfterExitIsNoop(t *testing.T) {
	p, err := Launch(LaunchSpec{Path: script(t, "exit 0")})
	require.NoError(t, err)

	status, _ := p.Wait(nil)
	require.Equal(t, 0, status)
	require.NoError(t, p.KillGroup())
}

func countFDs(t *testing.T) int {
	t.Helper()
	ents, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(ents)
}

func TestCloseReleasesPipeDescriptors(t *testing.T) {
	path := script(t, "echo out\necho err >&2")

	runOnce := func() {
		p, err := Launch(LaunchSpec{Path: path})
		require.NoError(t, err)
		_, err = io.Copy(io.Discard, p.Stdout())
		require.NoError(t, err)
		_, err = io.Copy(io.Discard, p.Stderr())
		require.NoError(t, err)
		status, _ := p.Wait(nil)
		require.Equal(t, 0, status)
		require.NoError(t, p.Close())
	}

	// Prime lazily opened descriptors before measuring.
	runOnce()

	before := countFDs(t)
	for i := 0; i < 10; i++ {
		runOnce()
	}
	require.LessOrEqual(t, countFDs(t), before+2,
		"descriptors must not accumulate across invocations")
}

func TestLaunchMissingProgram(t *testing.T) {
	_, err := Launch(LaunchSpec{Path: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}

func TestStreamsSeeOutput(t *testing.T) {
	p, err := Launch(LaunchSpec{Path: script(t, "echo out\necho err >&2")})
	require.NoError(t, err)

	outSc := bufio.NewScanner(p.Stdout())
	require.True(t, outSc.Scan())
	require.Equal(t, "out", outSc.Text())

	errSc := bufio.NewScanner(p.Stderr())
	require.True(t, errSc.Scan())
	require.Equal(t, "err", errSc.Text())

	status, _ := p.Wait(nil)
	require.Equal(t, 0, status)
}
