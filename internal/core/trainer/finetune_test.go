package trainer

import "testing"

func TestJobStatusTerminal(t *testing.T) {
	terminal := []string{remoteSucceeded, remoteFailed, remoteCancelled}
	for _, s := range terminal {
		if !(JobStatus{Status: s}).Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	live := []string{remoteRunning, remoteQueued, remoteValidated, ""}
	for _, s := range live {
		if (JobStatus{Status: s}).Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}
