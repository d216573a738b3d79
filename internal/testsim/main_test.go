package testsim

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain guards against leaked Raft run-loop goroutines: every
// Cluster.Stop in this package must fully drain its nodes' goroutines.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
