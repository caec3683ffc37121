// ABOUTME: Package-level goroutine leak detection for the orchestrator tests
// ABOUTME: Every streaming and notifier goroutine must be accounted for at exit

package conversation

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
