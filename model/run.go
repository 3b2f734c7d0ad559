package model

import "time"

// Policy is the continuation policy captured once at startup and never
// mutated afterwards.
type Policy struct {
	// Leniency controls which exit statuses let the loop continue:
	// 0 stops on any failure, 1 tolerates infrastructure failures
	// (status > 1), 2 tolerates every failure.
	Leniency int `json:"leniency"`
	// RunOnce limits the outer loop to a single iteration.
	RunOnce bool `json:"run_once"`
}

// Invocation is one execution attempt of a single test program.
type Invocation struct {
	// Absolute path to the test program
	TestPath string `json:"test_path"`
	// Timestamp when the test process was started
	StartedAt time.Time `json:"started_at"`
	// Elapsed wall-clock seconds, set on completion
	Duration int `json:"duration"`
	// Exit status of the test process, set on completion
	ExitStatus int `json:"exit_status"`
	// Verbosity level (0, 1 or 2) controlling live output mirroring
	Verbosity int `json:"verbosity"`
	// Whether the test program was asked to record a video
	Video bool `json:"video"`
}

// RunRecord is the durable artifact of one Invocation, as read back
// from its record directory.
type RunRecord struct {
	// Directory name (timestamp plus optional tag suffix)
	Name string `json:"name"`
	// Absolute path of the record directory
	Dir string `json:"dir"`
	// Timestamp parsed from the directory name
	Timestamp time.Time `json:"timestamp"`
	// Run tag, empty when none was supplied
	Tag string `json:"tag,omitempty"`
	// Path of the test relative to its repository root
	TestName string `json:"test_name,omitempty"`
	// Git revision descriptor at time of execution
	GitCommit string `json:"git_commit,omitempty"`
	// Elapsed wall-clock seconds
	Duration int `json:"duration"`
	// Exit status of the test process
	ExitStatus int `json:"exit_status"`
}

// Failed reports whether the recorded invocation exited non-zero.
func (r *RunRecord) Failed() bool {
	return r.ExitStatus != 0
}
